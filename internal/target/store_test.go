package target

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinwang15/sshdedit"
)

const (
	path     = "/etc/ssh/sshd_config"
	original = "# managed elsewhere\nPermitRootLogin yes\nPort 22\n\nMatch User git\n  X11Forwarding yes\n"
)

func newFS(t *testing.T, content string, mode os.FileMode) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/etc/ssh", 0o755))
	if content != "" {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), mode))
	}
	return fs
}

func read(t *testing.T, fs afero.Fs) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestApplyWritesChanges(t *testing.T) {
	fs := newFS(t, original, 0o640)
	var logs bytes.Buffer
	store := NewStore(fs, WithLogger(zerolog.New(&logs)))

	res, err := store.Apply(path, []sshdedit.Desired{
		{Key: "PermitRootLogin", Values: []string{"no"}},
		{Key: "X11Forwarding", Absent: true, Condition: sshdedit.MustCondition("User git")},
	}, false)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	want := "# managed elsewhere\nPermitRootLogin no\nPort 22\n\nMatch User git\n"
	assert.Equal(t, want, read(t, fs))
	assert.Equal(t, want, string(res.After))
	assert.Equal(t, original, string(res.Before))

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm(), "file mode must be kept")

	diff := res.Diff()
	assert.Contains(t, diff, "-PermitRootLogin yes")
	assert.Contains(t, diff, "+PermitRootLogin no")
	assert.Contains(t, diff, "-  X11Forwarding yes")
	assert.Contains(t, logs.String(), "file updated")

	entries, err := afero.ReadDir(fs, "/etc/ssh")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestApplyNoChange(t *testing.T) {
	fs := newFS(t, original, 0o600)
	store := NewStore(fs)

	res, err := store.Apply(path, []sshdedit.Desired{{Key: "Port", Values: []string{"22"}}}, false)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, res.Diff())
	assert.Equal(t, original, read(t, fs))
}

func TestApplyDryRun(t *testing.T) {
	fs := newFS(t, original, 0o600)
	store := NewStore(fs)

	res, err := store.Apply(path, []sshdedit.Desired{{Key: "Port", Values: []string{"2222"}}}, true)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Contains(t, string(res.After), "Port 2222")
	assert.Equal(t, original, read(t, fs), "dry run must not write")
}

func TestApplyMissingFile(t *testing.T) {
	fs := newFS(t, "", 0)
	store := NewStore(fs)

	res, err := store.Apply(path, []sshdedit.Desired{
		{Key: "X11Forwarding", Values: []string{"yes"}, Condition: sshdedit.MustCondition("User root Host foo")},
	}, false)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "Match Host foo User root\n  X11Forwarding yes\n", read(t, fs))

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, newFileMode, info.Mode().Perm())
}

func TestApplyParseErrorDoesNotWrite(t *testing.T) {
	broken := "PermitRootLogin yes\nMatch\n\tX11Forwarding no\n"
	fs := newFS(t, broken, 0o600)
	store := NewStore(fs)

	_, err := store.Apply(path, []sshdedit.Desired{{Key: "PermitRootLogin", Values: []string{"no"}}}, false)
	var pe *sshdedit.ParseError
	require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
	assert.Equal(t, path, pe.Path)
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, broken, read(t, fs))
}

func TestApplyAllOrNothing(t *testing.T) {
	fs := newFS(t, original, 0o600)
	store := NewStore(fs)

	_, err := store.Apply(path, []sshdedit.Desired{
		{Key: "PermitRootLogin", Values: []string{"no"}},
		{Key: "NotAKeyword", Values: []string{"1"}},
	}, false)
	assert.True(t, errors.Is(err, sshdedit.ErrUnknownKey), "got %v", err)
	assert.Equal(t, original, read(t, fs))
}

func TestApplyWithPolicy(t *testing.T) {
	p, err := sshdedit.LoadPolicy([]byte("strict: false\n"))
	require.NoError(t, err)
	fs := newFS(t, original, 0o600)
	store := NewStore(fs, WithPolicy(p))

	_, err = store.Apply(path, []sshdedit.Desired{{Key: "NotAKeyword", Values: []string{"1"}}}, false)
	require.NoError(t, err)
	assert.True(t, strings.Contains(read(t, fs), "NotAKeyword 1\n"))
}

func TestEntries(t *testing.T) {
	fs := newFS(t, original, 0o600)
	store := NewStore(fs)

	entries, err := store.Entries(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "PermitRootLogin", entries[0].Key)
	assert.Equal(t, []string{"yes"}, entries[0].Values)
	assert.Equal(t, "User git", entries[2].Condition.String())
}
