package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roofclaim/internal/filestore"
	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/oracle"
	"github.com/sells-group/roofclaim/internal/resilience"
	"github.com/sells-group/roofclaim/internal/store"
)

const testUser = "user-1"

const roofRaw = `{
  "structureCount": 1,
  "structures": [{
    "structureNumber": 1,
    "measurements": {"total_roof_area": "3000", "eaves_rakes": "120", "predominant_pitch": "6/12"},
    "pitch_breakdown": [{"pitch": "6/12", "area_sqft": "3000", "squares": "30"}],
    "waste_table": [
      {"waste_percent": "0", "area_sqft": "3000", "squares": "30", "recommended": false},
      {"waste_percent": "10", "area_sqft": "3300", "squares": "33", "recommended": true}
    ]
  }]
}`

const insuranceRaw = `{
  "claim_id": "CLM-42",
  "date": "2024-05-01",
  "structureCount": 1,
  "roofSections": [{
    "roofNumber": 1,
    "section_name": "Dwelling Roof",
    "line_items": [
      {"item_no": 1, "description": "Tear off, haul and dispose of comp. shingles - Laminated", "quantity": {"value": 30, "unit": "SQ"}, "options_text": null},
      {"item_no": 2, "description": "Drip edge", "quantity": {"value": 120, "unit": "LF"}, "options_text": null}
    ]
  }]
}`

// fakeExtractor returns one page naming the file it was given.
type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeExtractor) ExtractPages(_ context.Context, pdfPath string) ([]oracle.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []oracle.Page{{Number: 1, Text: "text of " + filepath.Base(pdfPath)}}, nil
}

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) Extract(ctx context.Context, kind model.DocumentKind, pages []oracle.Page, structureCount int) (json.RawMessage, error) {
	args := m.Called(ctx, kind, pages, structureCount)
	raw, _ := args.Get(0).(string)
	if raw == "" {
		return nil, args.Error(1)
	}
	return json.RawMessage(raw), args.Error(1)
}

// staleStore hides comparisons from reads once stale is set, so writes are
// never seen by verification.
type staleStore struct {
	store.Store
	mu    sync.Mutex
	stale bool
}

func (s *staleStore) setStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

func (s *staleStore) GetTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	t, err := s.Store.GetTask(ctx, userID, taskID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != nil && s.stale {
		t.Comparison = nil
	}
	return t, err
}

type harness struct {
	p         *Pipeline
	store     *store.SQLiteStore
	files     *filestore.Store
	extractor *fakeExtractor
	oracle    *mockOracle
}

func fastVerify() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Backoff:        resilience.BackoffLinear,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	st, err := store.NewSQLite(filepath.Join(dir, "tasks.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	files, err := filestore.New(filepath.Join(dir, "files"), 0)
	require.NoError(t, err)

	h := &harness{store: st, files: files, extractor: &fakeExtractor{}, oracle: &mockOracle{}}
	h.p = New(st, files, h.extractor, h.oracle, Options{Verify: fastVerify()})
	return h
}

func (h *harness) newTask(t *testing.T) *model.Task {
	t.Helper()
	task, err := h.p.CreateTask(context.Background(), testUser, "123 Main St")
	require.NoError(t, err)
	return task
}

func (h *harness) upload(t *testing.T, taskID string, kind model.DocumentKind) *model.Task {
	t.Helper()
	task, err := h.p.UploadFile(context.Background(), testUser, taskID, kind, string(kind)+".pdf", bytes.NewReader(minimalPDF("Total Roof Area 3000")))
	require.NoError(t, err)
	return task
}

// minimalPDF builds a one-page PDF with a single line of text.
func minimalPDF(text string) []byte {
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + text + ") Tj\nET"

	var b strings.Builder
	offsets := make([]int, 6)
	b.WriteString("%PDF-1.4\n")
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		"<< /Length " + strconv.Itoa(len(stream)) + " >>\nstream\n" + stream + "\nendstream",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	for i, obj := range objs {
		offsets[i+1] = b.Len()
		b.WriteString(strconv.Itoa(i+1) + " 0 obj\n" + obj + "\nendobj\n")
	}
	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		off := strconv.Itoa(offsets[i])
		b.WriteString(strings.Repeat("0", 10-len(off)) + off + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n" + strconv.Itoa(xref) + "\n%%EOF\n")
	return []byte(b.String())
}
