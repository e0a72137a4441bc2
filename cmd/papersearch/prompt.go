// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// prompter reads answers line by line. Reading happens on a separate
// goroutine so a pending prompt gives way to context cancellation
// (Ctrl-C) instead of blocking on stdin.
type prompter struct {
	in    io.Reader
	out   io.Writer
	lines chan string
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out}
}

// ask prints question and returns the trimmed answer. ok is false on end
// of input or cancellation; both mean the user backed out.
func (p *prompter) ask(ctx context.Context, question string) (answer string, ok bool) {
	if p.lines == nil {
		p.lines = make(chan string)
		go p.read()
	}

	fmt.Fprint(p.out, question)
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", false
	case line, open := <-p.lines:
		if !open {
			fmt.Fprintln(p.out)
			return "", false
		}
		return strings.TrimSpace(line), true
	}
}

func (p *prompter) read() {
	defer close(p.lines)
	sc := bufio.NewScanner(p.in)
	for sc.Scan() {
		p.lines <- sc.Text()
	}
}

// confirm asks a [Y/n] question. An empty answer is yes.
func (p *prompter) confirm(ctx context.Context, question string) bool {
	answer, ok := p.ask(ctx, question+" [Y/n]: ")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "", "y", "yes":
		return true
	}
	return false
}
