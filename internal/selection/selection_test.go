// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selection

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/papersearch/pkg/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		expr string
		max  int
		want []int
	}{
		{"list and range", "1,3,5-10", 12, []int{0, 2, 4, 5, 6, 7, 8, 9}},
		{"spaces ignored", " 2 , 4 - 5 ", 10, []int{1, 3, 4}},
		{"duplicates merged", "3,1-3,3", 5, []int{0, 1, 2}},
		{"unsorted input", "5,1", 5, []int{0, 4}},
		{"range clipped to max", "8-12", 10, []int{7, 8, 9}},
		{"single out of range", "0,11,2", 10, []int{1}},
		{"malformed skipped", "a,2,3-x,-", 10, []int{1}},
		{"reversed range empty", "5-3", 10, []int{}},
		{"empty", "", 10, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.expr, tt.max, zerolog.Nop()))
		})
	}
}

func TestParseWarns(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	Parse("abc,99", 10, log)

	assert.Contains(t, buf.String(), "invalid number")
	assert.Contains(t, buf.String(), "out of range")
}

func TestWithDOI(t *testing.T) {
	papers := []types.Paper{
		{DOI: types.StringPtr("10.1/a")},
		{},
		{DOI: types.StringPtr("10.1/c")},
	}
	assert.Equal(t, []int{0, 2}, WithDOI(papers))
	assert.Nil(t, WithDOI(nil))
}

func TestIsQuit(t *testing.T) {
	for _, in := range []string{"q", "quit", "EXIT", " q\n"} {
		assert.True(t, IsQuit(in), in)
	}
	for _, in := range []string{"", "1", "all", "quite"} {
		assert.False(t, IsQuit(in), in)
	}
}

func TestPick(t *testing.T) {
	papers := []types.Paper{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := Pick(papers, []int{2, 0, 7})
	assert.Equal(t, []types.Paper{{ID: "c"}, {ID: "a"}}, got)
}
