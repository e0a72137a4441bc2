// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads credentials from a directory of plain-text files,
// one secret per file: the filename is the key and the trimmed contents are
// the value.
//
// Recognized keys: scopus-api-key, unpaywall-email.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultDir is where the CLI looks for secrets.
const DefaultDir = ".secrets"

// Key names.
const (
	ScopusAPIKey   = "scopus-api-key"
	UnpaywallEmail = "unpaywall-email"
)

// Secrets maps key names to values.
type Secrets map[string]string

// Get returns the value for key, or "".
func (s Secrets) Get(key string) string { return s[key] }

// Keys returns the loaded key names, sorted. Values are never logged.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error and yields an empty map. Unreadable and empty files are
// skipped; unreadable ones are logged.
func Load(dir string, log zerolog.Logger) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Secrets{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := Secrets{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			out[name] = v
		}
	}
	return out, nil
}
