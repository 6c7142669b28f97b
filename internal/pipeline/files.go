package pipeline

import (
	"context"
	"io"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/ocr"
)

// UploadFile stores a PDF for the task. The upload replaces any earlier
// file of the same kind; files that are not readable PDFs are rejected.
func (p *Pipeline) UploadFile(ctx context.Context, userID, taskID string, kind model.DocumentKind, name string, r io.Reader) (*model.Task, error) {
	task, err := p.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	log := taskLogger(userID, taskID).With(zap.String("kind", string(kind)))

	ref, err := p.files.Upload(ctx, name, r)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: upload")
	}
	discard := func() {
		if err := p.files.Delete(ctx, []string{ref.ID}); err != nil {
			log.Warn("pipeline: discard upload", zap.String("file_id", ref.ID), zap.Error(err))
		}
	}

	pages, err := p.countPages(ctx, ref.ID)
	if err != nil {
		discard()
		return nil, inputErr("%s is not a readable PDF", ref.Name)
	}
	ref.Kind = kind
	ref.Pages = pages

	var replaced []string
	files := make([]model.FileRef, 0, len(task.Files)+1)
	for _, f := range task.Files {
		if f.Kind == kind {
			replaced = append(replaced, f.ID)
			continue
		}
		files = append(files, f)
	}
	files = append(files, ref)

	updated, err := p.store.UpsertTask(ctx, userID, taskID, model.TaskUpdate{Files: &files})
	if err != nil {
		discard()
		return nil, err
	}
	if len(replaced) > 0 {
		if err := p.files.Delete(ctx, replaced); err != nil {
			log.Warn("pipeline: delete replaced files", zap.Strings("file_ids", replaced), zap.Error(err))
		}
	}

	log.Info("pipeline: file uploaded",
		zap.String("file_id", ref.ID),
		zap.Int64("size", ref.Size),
		zap.Int("pages", pages),
	)
	return updated, nil
}

func (p *Pipeline) countPages(ctx context.Context, id string) (int, error) {
	rc, err := p.files.Open(ctx, id)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	rs, ok := rc.(io.ReadSeeker)
	if !ok {
		return 0, eris.New("pipeline: stored file is not seekable")
	}
	return ocr.PageCount(rs)
}

// DeleteFiles removes the given files from the task. IDs that do not belong
// to the task are ignored.
func (p *Pipeline) DeleteFiles(ctx context.Context, userID, taskID string, ids []string) (*model.Task, error) {
	task, err := p.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	var removed []string
	files := make([]model.FileRef, 0, len(task.Files))
	for _, f := range task.Files {
		if slices.Contains(ids, f.ID) {
			removed = append(removed, f.ID)
			continue
		}
		files = append(files, f)
	}
	if len(removed) == 0 {
		return task, nil
	}

	updated, err := p.store.UpsertTask(ctx, userID, taskID, model.TaskUpdate{Files: &files})
	if err != nil {
		return nil, err
	}
	if err := p.files.Delete(ctx, removed); err != nil {
		return nil, eris.Wrap(err, "pipeline: delete files")
	}
	taskLogger(userID, taskID).Info("pipeline: files deleted", zap.Strings("file_ids", removed))
	return updated, nil
}
