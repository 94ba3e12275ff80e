// Package timeline owns the scroll state of a conversation viewport:
// auto-follow when the viewer sits near the bottom, backward pagination
// when they reach the top, and anchor preservation across prepends so the
// content under the viewer's eyes never jumps. The state machine is
// toolkit-agnostic: it works in abstract height units and leaves the
// actual scrolling to whoever renders it.
package timeline

// AutoFollowThreshold is how close to the bottom (in height units) the
// viewer must be for new messages to pull the viewport down with them.
const AutoFollowThreshold = 160

// Metrics describes the scrollable region. ScrollTop is the offset of the
// viewport within the content, ScrollHeight the total content height.
type Metrics struct {
	ScrollTop      int
	ScrollHeight   int
	ViewportHeight int
}

// distanceFromBottom is how far the viewport's bottom edge sits above the
// content's bottom edge.
func (m Metrics) distanceFromBottom() int {
	d := m.ScrollHeight - m.ScrollTop - m.ViewportHeight
	if d < 0 {
		return 0
	}
	return d
}

// Effect tells the renderer what to do with the scroll position after a
// content change.
type Effect int

const (
	// EffectNone leaves the scroll position untouched.
	EffectNone Effect = iota
	// EffectScrollToBottom snaps the viewport to the new bottom.
	EffectScrollToBottom
	// EffectReset snaps to the empty-content rest state.
	EffectReset
)

// LoadToken captures the state a backward-pagination operation needs to
// restore the visual anchor when it completes. Tokens from a previous
// thread carry a stale generation and are ignored on completion.
type LoadToken struct {
	generation   int
	scrollTop    int
	scrollHeight int
}

// Viewport is the per-conversation scroll state machine. It is driven
// from the UI event loop and is not safe for concurrent use; the async
// part of a load is sequenced through Begin/Finish instead.
type Viewport struct {
	generation int
	metrics    Metrics
	count      int

	loading bool
	hasMore bool
}

// NewViewport returns a viewport in the empty rest state.
func NewViewport() *Viewport {
	return &Viewport{}
}

// Reset prepares the viewport for a newly-selected thread. Any load still
// in flight for the previous thread is orphaned: its token's generation
// no longer matches, so its completion is discarded.
func (v *Viewport) Reset(hasMore bool) {
	v.generation++
	v.metrics = Metrics{}
	v.count = 0
	v.loading = false
	v.hasMore = hasMore
}

// Observe records the current scroll geometry. Call it on every scroll
// event and after every render that moved the viewport.
func (v *Viewport) Observe(m Metrics) {
	v.metrics = m
}

// Metrics returns the last observed geometry.
func (v *Viewport) Metrics() Metrics { return v.metrics }

// Loading reports whether a backward load is in flight.
func (v *Viewport) Loading() bool { return v.loading }

// HasMore reports whether older history remains.
func (v *Viewport) HasMore() bool { return v.hasMore }

// SetHasMore updates pagination state outside a load completion, e.g.
// from the initial history fetch.
func (v *Viewport) SetHasMore(hasMore bool) { v.hasMore = hasMore }

// AtBottom reports whether the viewer is within the auto-follow band.
func (v *Viewport) AtBottom() bool {
	return v.metrics.distanceFromBottom() < AutoFollowThreshold
}

// OnContentChanged folds a change of the message set into scroll policy.
// The decision uses the geometry observed before the change: growth while
// the viewer was near the bottom yields EffectScrollToBottom, growth
// while they were reading older content yields EffectNone so focus is
// never yanked, and a shrink to zero yields EffectReset. Appends that
// land during a backward load never auto-scroll.
func (v *Viewport) OnContentChanged(newCount int) Effect {
	prev := v.count
	v.count = newCount

	if newCount == 0 {
		v.metrics = Metrics{}
		return EffectReset
	}
	if newCount <= prev || v.loading {
		return EffectNone
	}
	if v.metrics.distanceFromBottom() < AutoFollowThreshold {
		return EffectScrollToBottom
	}
	return EffectNone
}

// BeginLoadOlder transitions to loading-more. It refuses while a load is
// already in flight or no older history remains; only one operation may
// be pending per viewport. The returned token captures the scroll anchor
// to restore on completion.
func (v *Viewport) BeginLoadOlder() (LoadToken, bool) {
	if v.loading || !v.hasMore {
		return LoadToken{}, false
	}
	v.loading = true
	return LoadToken{
		generation:   v.generation,
		scrollTop:    v.metrics.ScrollTop,
		scrollHeight: v.metrics.ScrollHeight,
	}, true
}

// FinishLoadOlder completes a backward load. A token minted before the
// last Reset is stale: the completion is discarded without touching the
// new thread's state. Otherwise the loading flag always clears, even on
// error, so the top sentinel can re-trigger. On success the compensated
// scroll offset is returned: prior scrollTop plus the height added above
// the fold, which keeps the previously-topmost message visually fixed.
func (v *Viewport) FinishLoadOlder(token LoadToken, newScrollHeight int, hasMore bool, loadErr error) (scrollTop int, applied bool) {
	if token.generation != v.generation {
		return v.metrics.ScrollTop, false
	}
	v.loading = false
	if loadErr != nil {
		return v.metrics.ScrollTop, false
	}

	v.hasMore = hasMore
	delta := newScrollHeight - token.scrollHeight
	if delta < 0 {
		delta = 0
	}
	scrollTop = token.scrollTop + delta
	v.metrics.ScrollTop = scrollTop
	v.metrics.ScrollHeight = newScrollHeight
	return scrollTop, true
}
