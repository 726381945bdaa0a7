package uploads

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func TestRemoveDeletesFileInsideDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pic.png")
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))

	r, err := NewRemover(dir, newTestLogger())
	require.NoError(t, err)

	require.NoError(t, r.Remove("/uploads/messages/pic.png"))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestRemoveMissingFileIsNotAnError(t *testing.T) {
	r, err := NewRemover(t.TempDir(), newTestLogger())
	require.NoError(t, err)

	require.NoError(t, r.Remove("gone.png"))
}

func TestRemoveRefusesTraversal(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep me"), 0o644))
	t.Cleanup(func() { os.Remove(outside) })

	r, err := NewRemover(dir, newTestLogger())
	require.NoError(t, err)

	for _, ref := range []string{"../secret.txt", "..", ".", "/"} {
		err := r.Remove(ref)
		require.Error(t, err, "ref %q must be rejected", ref)
	}

	_, err = os.Stat(outside)
	require.NoError(t, err, "file outside the uploads dir must survive")
}
