package scheduler

import "errors"

var (
	ErrNotIdle       = errors.New("scheduler: start requires engine state IDLE")
	ErrNotPaused     = errors.New("scheduler: resume requires PAUSED or QUOTA_PAUSED")
	ErrNotTranslating = errors.New("scheduler: pause requires engine state TRANSLATING")
)
