package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	s, err := New(t.TempDir(), maxBytes)
	require.NoError(t, err)
	return s
}

func TestUploadOpenDelete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 0)
	ctx := context.Background()

	ref, err := s.Upload(ctx, "../../estimate.pdf", strings.NewReader("%PDF-1.7 body"))
	require.NoError(t, err)
	assert.Equal(t, "estimate.pdf", ref.Name)
	assert.Equal(t, int64(13), ref.Size)
	assert.Equal(t, "/files/"+ref.ID, ref.URL)
	assert.False(t, ref.CreatedAt.IsZero())

	rc, err := s.Open(ctx, ref.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.7 body", string(data))

	require.NoError(t, s.Delete(ctx, []string{ref.ID, "not-a-uuid"}))
	_, err = s.Open(ctx, ref.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, []string{ref.ID}), "deleting twice is a no-op")
}

func TestUpload_TooLarge(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 4)

	_, err := s.Upload(context.Background(), "big.pdf", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".upload-"), "temp file left behind: %s", e.Name())
	}
}

func TestUpload_CancelledContext(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Upload(ctx, "a.pdf", strings.NewReader("data"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPath_RejectsTraversal(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 0)

	assert.Empty(t, s.Path("../etc/passwd"))
	_, err := s.Open(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)

	id := "0b3c2f9e-5d1a-4c7e-9a51-0f1d2e3c4b5a"
	assert.Equal(t, filepath.Join(s.dir, id+".pdf"), s.Path(id))
}
