package translator

import "errors"

// Per-attempt translate failures (spec §4.4, §7).
var (
	ErrQuota             = errors.New("translator: quota exceeded")
	ErrSafetyBlocked     = errors.New("translator: response blocked")
	ErrTimeout           = errors.New("translator: attempt timed out")
	ErrEmptyResponse     = errors.New("translator: empty response")
	ErrIntegrityMismatch = errors.New("translator: tag integrity mismatch")
	ErrTransport         = errors.New("translator: transport error")
)

// IsQuota reports whether err represents a quota failure — the only
// failure type that does not consume a segment's retry budget (spec §7).
func IsQuota(err error) bool {
	return errors.Is(err, ErrQuota)
}
