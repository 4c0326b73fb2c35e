package cli

import (
	"github.com/nerdneilsfield/epub-translate/internal/engine"
	"github.com/nerdneilsfield/epub-translate/internal/model"
)

// engineLike narrows *engine.Engine to the subset streamUntilTerminal needs,
// so that method can be unit tested against a fake without a real store.
type engineLike interface {
	SubscribeToProjectStats() engine.Subscription[model.ProjectStats]
	SubscribeToEngineState() engine.Subscription[model.EngineState]
}
