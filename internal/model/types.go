// Package model holds the data types shared by every engine component:
// the project, its content-document references, segments, and the handful
// of enums the queue/scheduler state machine and the engine-to-UI contract
// are built around.
package model

import "time"

// SchemaVersion selects the segmentation strategy a project was imported
// under (spec §3 / §4.2). v1 is retained for backward compatibility only;
// new imports always use v2.
type SchemaVersion int

const (
	SchemaV1 SchemaVersion = 1
	SchemaV2 SchemaVersion = 2
)

// SegmentStatus is the lifecycle state of one translation unit (spec §4.3).
type SegmentStatus string

const (
	StatusPending     SegmentStatus = "PENDING"
	StatusTranslating SegmentStatus = "TRANSLATING"
	StatusTranslated  SegmentStatus = "TRANSLATED"
	StatusFailed      SegmentStatus = "FAILED"
	StatusSkipped     SegmentStatus = "SKIPPED"
)

// EngineState is the scheduler's coarse state machine (spec §4.3).
type EngineState string

const (
	StateIdle        EngineState = "IDLE"
	StateAnalyzing   EngineState = "ANALYZING"
	StateTranslating EngineState = "TRANSLATING"
	StatePaused      EngineState = "PAUSED"
	StateQuotaPaused EngineState = "QUOTA_PAUSED"
	StateCompleted   EngineState = "COMPLETED"
	StateError       EngineState = "ERROR"
)

// ContentDocRef is the path of a spine entry within the archive, resolved
// to its absolute location inside the zip. Immutable after import.
type ContentDocRef struct {
	SpinePath string `json:"spinePath"` // path as referenced by the spine/manifest, relative to the OPF directory
	ArchivePath string `json:"archivePath"` // resolved path inside the zip archive
}

// Project is the single "book project" record (spec §3).
type Project struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	TranslatedTitle string          `json:"translatedTitle,omitempty"`
	CoverBytes      []byte          `json:"coverBytes,omitempty"`
	CustomCover     []byte          `json:"customCover,omitempty"`
	ArchiveBytes    []byte          `json:"archiveBytes"`
	ContentDocs     []ContentDocRef `json:"contentDocs"`
	TotalSegments   int             `json:"totalSegments"`
	Translated      int             `json:"translatedSegments"`
	SchemaVersion   SchemaVersion   `json:"schemaVersion"`
	SourceLang      string          `json:"sourceLang"`
	TargetLang      string          `json:"targetLang"`
	ExportSettings  ExportSettings  `json:"exportSettings"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ExportSettings controls the Reassembler's stylesheet injection (spec §4.5).
type ExportSettings struct {
	TextAlignment  string `json:"textAlignment"` // left|center|right|justify
	ForceAlignment bool   `json:"forceAlignment"`
}

// Segment is one translation unit (spec §3).
type Segment struct {
	ID           string        `json:"id"` // "<content-doc-path>::<batch-index>"
	DocPath      string        `json:"docPath"`
	BatchIndex   int           `json:"batchIndex"`
	OriginalHTML string        `json:"originalHtml"`
	Translated   string        `json:"translatedHtml,omitempty"`
	Status       SegmentStatus `json:"status"`
	RetryCount   int           `json:"retryCount"`
	Error        string        `json:"error,omitempty"`
}

// ProjectStats is the (total, translated, failed, skipped) counter set the
// engine-to-UI contract's subscribeToProjectStats observes.
type ProjectStats struct {
	Total      int `json:"total"`
	Translated int `json:"translated"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}
