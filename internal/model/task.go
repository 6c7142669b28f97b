package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// TaskStatus represents where a review task is in its lifecycle.
type TaskStatus string

const (
	TaskStatusCreated    TaskStatus = "created"
	TaskStatusExtracting TaskStatus = "extracting"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusAnalyzed   TaskStatus = "analyzed"
	TaskStatusFailed     TaskStatus = "failed"
)

// DocumentKind distinguishes the two uploaded documents.
type DocumentKind string

const (
	DocumentRoof      DocumentKind = "roof"
	DocumentInsurance DocumentKind = "insurance"
)

// ParseDocumentKind validates a document kind name.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch DocumentKind(s) {
	case DocumentRoof, DocumentInsurance:
		return DocumentKind(s), nil
	default:
		return "", eris.Errorf("unknown document kind %q", s)
	}
}

// FileRef points at an uploaded document in the file store.
type FileRef struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	URL       string       `json:"url"`
	Kind      DocumentKind `json:"kind,omitempty"`
	Size      int64        `json:"size"`
	Pages     int          `json:"pages,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Task is one roof-vs-insurance review owned by a user.
type Task struct {
	ID         string               `json:"id"`
	UserID     string               `json:"user_id"`
	Name       string               `json:"name"`
	Status     TaskStatus           `json:"status"`
	Files      []FileRef            `json:"files"`
	Roof       *RoofReportData      `json:"roof,omitempty"`
	Insurance  *InsuranceReportData `json:"insurance,omitempty"`
	Comparison *ComparisonResult    `json:"comparison,omitempty"`
	Error      string               `json:"error,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// FileByKind returns the most recent file of the given kind, or nil.
func (t *Task) FileByKind(kind DocumentKind) *FileRef {
	for i := len(t.Files) - 1; i >= 0; i-- {
		if t.Files[i].Kind == kind {
			return &t.Files[i]
		}
	}
	return nil
}

// TaskUpdate carries the fields to change in an upsert. Nil fields are left
// untouched; ClearComparison drops a stale analysis.
type TaskUpdate struct {
	Name            *string
	Status          *TaskStatus
	Files           *[]FileRef
	Roof            *RoofReportData
	Insurance       *InsuranceReportData
	Comparison      *ComparisonResult
	ClearComparison bool
	Error           *string
}

// Apply merges u into t.
func (u TaskUpdate) Apply(t *Task) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Files != nil {
		t.Files = append([]FileRef(nil), (*u.Files)...)
	}
	if u.Roof != nil {
		r := *u.Roof
		t.Roof = &r
	}
	if u.Insurance != nil {
		ins := *u.Insurance
		t.Insurance = &ins
	}
	if u.ClearComparison {
		t.Comparison = nil
	}
	if u.Comparison != nil {
		c := *u.Comparison
		t.Comparison = &c
	}
	if u.Error != nil {
		t.Error = *u.Error
	}
}
