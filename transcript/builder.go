package transcript

import (
	"sync"

	"botchat/activity"
)

// Builder owns a growing activity log and the model derived from it. Every
// Append recomputes the model from the full log, so Model always equals
// ReconcileWith(Activities(), opts).
type Builder struct {
	mu         sync.RWMutex
	activities []activity.Activity
	model      RenderModel
	opts       Options
}

func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

// Append adds activities to the log and returns the new model.
func (b *Builder) Append(acts ...activity.Activity) RenderModel {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.activities = append(b.activities, acts...)
	b.model = ReconcileWith(b.activities, b.opts)
	return b.model
}

// Refresh recomputes the model with new options (e.g. a later Now for typing
// expiry) without changing the log.
func (b *Builder) Refresh(opts Options) RenderModel {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.opts = opts
	b.model = ReconcileWith(b.activities, b.opts)
	return b.model
}

func (b *Builder) Model() RenderModel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// Activities returns a copy of the log.
func (b *Builder) Activities() []activity.Activity {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]activity.Activity, len(b.activities))
	copy(out, b.activities)
	return out
}

func (b *Builder) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.activities)
}
