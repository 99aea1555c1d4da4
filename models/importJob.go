package models

import "time"

type ImportStage string

const (
	ImportStageParsing   ImportStage = "parsing"
	ImportStageMapping   ImportStage = "mapping"
	ImportStageInserting ImportStage = "inserting"
	ImportStageCompleted ImportStage = "completed"
	ImportStageError     ImportStage = "error"
)

// MaxImportErrorDetails caps the sampled row errors kept on a job.
const MaxImportErrorDetails = 10

// ImportJob is the volatile progress state of one spreadsheet upload.
type ImportJob struct {
	ID             string      `json:"id"`
	Stage          ImportStage `json:"stage"`
	Progress       int         `json:"progress"`
	Message        string      `json:"message"`
	TotalRows      int         `json:"totalRows"`
	ValidRows      int         `json:"validRows"`
	ProcessedRows  int         `json:"processedRows"`
	Imported       int         `json:"imported"`
	Errors         int         `json:"errors"`
	ErrorDetails   []string    `json:"errorDetails"`
	UnknownColumns []string    `json:"unknownColumns,omitempty"`
	Table          string      `json:"table"`
	FileName       string      `json:"fileName,omitempty"`
	FileSize       int64       `json:"fileSize,omitempty"`
	ArchivedObject string      `json:"archivedObject,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	FinishedAt     *time.Time  `json:"finishedAt,omitempty"`
}

func (j ImportJob) IsTerminal() bool {
	return j.Stage == ImportStageCompleted || j.Stage == ImportStageError
}

// Clone returns a copy that shares no slices with j.
func (j ImportJob) Clone() ImportJob {
	c := j
	c.ErrorDetails = append([]string{}, j.ErrorDetails...)
	if j.UnknownColumns != nil {
		c.UnknownColumns = append([]string(nil), j.UnknownColumns...)
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return c
}
