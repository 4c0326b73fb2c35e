package epub

import "errors"

// Import errors (spec §4.1, §7) — all fatal to importProject.
var (
	ErrMissingContainer = errors.New("epub: META-INF/container.xml not found")
	ErrMissingOPF       = errors.New("epub: package document not found")
	ErrUnparsableOPF    = errors.New("epub: package document could not be parsed")
	ErrEmptySpine       = errors.New("epub: spine has no content documents")
)
