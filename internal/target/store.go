// Package target reads, edits and writes sshd_config files.
package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/kevinwang15/sshdedit"
)

const newFileMode os.FileMode = 0o600

// Store applies edits to files on fs.
type Store struct {
	fs     afero.Fs
	policy *sshdedit.Policy
	log    zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPolicy sets the key policy; the default table is used otherwise.
func WithPolicy(p *sshdedit.Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore returns a Store working on fs.
func NewStore(fs afero.Fs, opts ...Option) *Store {
	s := &Store{fs: fs, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy == nil {
		s.policy = sshdedit.DefaultPolicy()
	}
	return s
}

// Result describes one Apply.
type Result struct {
	Path    string
	Changed bool
	Before  []byte
	After   []byte
}

// Diff renders the change as a unified diff; empty when nothing changed.
func (r *Result) Diff() string {
	if !r.Changed {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(r.Before)),
		B:        difflib.SplitLines(string(r.After)),
		FromFile: r.Path,
		ToFile:   r.Path,
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

// Load reads and parses path. A missing file is an empty document.
func (s *Store) Load(path string) (*sshdedit.Document, []byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Debug().Str("path", path).Msg("file does not exist, starting empty")
		data = nil
	} else if err != nil {
		return nil, nil, fmt.Errorf("target: failed to read %s: %w", path, err)
	}
	doc, err := sshdedit.Parse(data, sshdedit.WithPath(path), sshdedit.WithPolicy(s.policy))
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

// Apply converges path to batch. The file is written only when the rendered text differs, and
// never when parsing or any item fails. With dryRun nothing is written.
func (s *Store) Apply(path string, batch []sshdedit.Desired, dryRun bool) (*Result, error) {
	doc, before, err := s.Load(path)
	if err != nil {
		return nil, err
	}
	if err := doc.Apply(batch...); err != nil {
		return nil, err
	}
	after := sshdedit.Render(doc)
	res := &Result{Path: path, Before: before, After: after, Changed: string(before) != string(after)}

	log := s.log.With().Str("path", path).Int("items", len(batch)).Logger()
	switch {
	case !res.Changed:
		log.Debug().Msg("already converged")
	case dryRun:
		log.Info().Msg("would change file")
	default:
		if err := s.write(path, after); err != nil {
			return nil, err
		}
		log.Info().Msg("file updated")
	}
	return res, nil
}

// Entries lists the addresses present in path.
func (s *Store) Entries(path string) ([]sshdedit.Entry, error) {
	doc, _, err := s.Load(path)
	if err != nil {
		return nil, err
	}
	return doc.Entries(), nil
}

// write replaces path through a temporary file in the same directory, keeping the mode of the
// existing file.
func (s *Store) write(path string, data []byte) error {
	mode := newFileMode
	if info, err := s.fs.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("target: failed to create temporary file in %s: %w", dir, err)
	}
	name := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(name) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("target: failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("target: failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("target: failed to close %s: %w", name, err)
	}
	if err := s.fs.Chmod(name, mode); err != nil {
		cleanup()
		return fmt.Errorf("target: failed to chmod %s: %w", name, err)
	}
	if err := s.fs.Rename(name, path); err != nil {
		cleanup()
		return fmt.Errorf("target: failed to replace %s: %w", path, err)
	}
	return nil
}
