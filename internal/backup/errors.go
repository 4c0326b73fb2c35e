package backup

import "errors"

var (
	ErrMissingSourceEPUB = errors.New("backup: bundle is missing source.epub")
	ErrMissingProjectJSON = errors.New("backup: bundle is missing project.json")
	ErrMissingSegmentsJSON = errors.New("backup: bundle is missing segments.json")
)
