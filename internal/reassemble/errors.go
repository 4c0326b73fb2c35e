package reassemble

import "errors"

var (
	ErrNoHTMLElement = errors.New("reassemble: document has no html element")
	ErrNoBodyElement = errors.New("reassemble: document has no body element")
)
