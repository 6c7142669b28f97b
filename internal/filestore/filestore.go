// Package filestore keeps uploaded PDFs in a local directory. Writes are
// atomic (temp file plus rename) and serialized across processes with an
// flock on <dir>/.lock.
package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/roofclaim/internal/model"
)

// ErrTooLarge is returned when an upload exceeds the size limit.
var ErrTooLarge = eris.New("filestore: file exceeds size limit")

// ErrNotFound is returned by Open for unknown IDs.
var ErrNotFound = eris.New("filestore: file not found")

const lockRetry = 25 * time.Millisecond

// Store is a directory of uploaded files named by UUID.
type Store struct {
	dir      string
	maxBytes int64
	lock     *flock.Flock
	now      func() time.Time
}

// New creates the directory if needed. maxBytes <= 0 disables the size limit.
func New(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "filestore: create %s", dir)
	}
	return &Store{
		dir:      dir,
		maxBytes: maxBytes,
		lock:     flock.New(filepath.Join(dir, ".lock")),
		now:      time.Now,
	}, nil
}

// Path returns where the file with the given ID lives, or "" for an ID that
// is not a UUID.
func (s *Store) Path(id string) string {
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return filepath.Join(s.dir, id+".pdf")
}

// Upload copies r into the store under a new ID.
func (s *Store) Upload(ctx context.Context, name string, r io.Reader) (model.FileRef, error) {
	id := uuid.New().String()

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return model.FileRef{}, eris.Wrap(err, "filestore: create temp file")
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(tmp, readerWithContext{ctx: ctx, r: src})
	if err != nil {
		return model.FileRef{}, eris.Wrap(err, "filestore: write upload")
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return model.FileRef{}, ErrTooLarge
	}
	if err := tmp.Sync(); err != nil {
		return model.FileRef{}, eris.Wrap(err, "filestore: sync upload")
	}
	if err := tmp.Close(); err != nil {
		return model.FileRef{}, eris.Wrap(err, "filestore: close upload")
	}

	if err := s.withLock(ctx, func() error {
		return os.Rename(tmpPath, s.Path(id))
	}); err != nil {
		return model.FileRef{}, eris.Wrap(err, "filestore: commit upload")
	}

	return model.FileRef{
		ID:        id,
		Name:      filepath.Base(name),
		URL:       "/files/" + id,
		Size:      n,
		CreatedAt: s.now().UTC(),
	}, nil
}

// Open returns a reader for the stored file.
func (s *Store) Open(_ context.Context, id string) (io.ReadCloser, error) {
	path := s.Path(id)
	if path == "" {
		return nil, ErrNotFound
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "filestore: open %s", id)
	}
	return f, nil
}

// Delete removes the files. Unknown IDs are ignored.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	return s.withLock(ctx, func() error {
		for _, id := range ids {
			path := s.Path(id)
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return eris.Wrapf(err, "filestore: delete %s", id)
			}
		}
		return nil
	})
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	ok, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return eris.Wrap(err, "filestore: acquire lock")
	}
	if !ok {
		return eris.New("filestore: lock not acquired")
	}
	defer s.lock.Unlock() //nolint:errcheck
	return fn()
}

type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (r readerWithContext) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
