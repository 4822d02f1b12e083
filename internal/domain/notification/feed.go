package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// FeedState represents the lifecycle state of a live notification feed.
type FeedState string

const (
	FeedIdle            FeedState = "idle"             // Created, no fetch yet
	FeedLoading         FeedState = "loading"          // Fetch in flight
	FeedReady           FeedState = "ready"            // Last fetch fully succeeded
	FeedPartiallyFailed FeedState = "partially_failed" // Last fetch degraded at least one source
)

// ErrInvalidFeedTransition is returned when a feed state transition is
// not allowed.
var ErrInvalidFeedTransition = errors.New("invalid feed state transition")

// ValidFeedTransitions defines allowed feed state transitions. Every
// completed fetch lands in ready or partially_failed, and either can be
// refreshed by going back through loading.
var ValidFeedTransitions = map[FeedState][]FeedState{
	FeedIdle:            {FeedLoading},
	FeedLoading:         {FeedReady, FeedPartiallyFailed},
	FeedReady:           {FeedLoading},
	FeedPartiallyFailed: {FeedLoading},
}

// String returns the string representation of the state.
func (s FeedState) String() string {
	return string(s)
}

// CanTransitionTo returns true if the transition from s to target is allowed.
func (s FeedState) CanTransitionTo(target FeedState) bool {
	for _, allowed := range ValidFeedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo validates and returns the target state.
func (s FeedState) TransitionTo(target FeedState) (FeedState, error) {
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidFeedTransition
	}
	return target, nil
}

// FetchFunc produces a fresh feed snapshot for a viewer.
type FetchFunc func(ctx context.Context, viewer Viewer) (FeedResult, error)

// FeedUpdate is one snapshot pushed to a live feed consumer.
type FeedUpdate struct {
	State  FeedState
	Result FeedResult
}

// LiveFeed keeps a viewer's feed current: it fetches once up front,
// then refetches whenever a watcher signals a change. Updates are
// pushed to a channel; a consumer that falls behind only ever loses
// intermediate snapshots, never the latest one, because each refetch
// supersedes the previous.
type LiveFeed struct {
	fetch    FetchFunc
	watchers []Watcher
	log      zerolog.Logger

	mu    sync.Mutex
	state FeedState
}

// NewLiveFeed builds a live feed over a fetch function and zero or more
// change watchers.
func NewLiveFeed(log zerolog.Logger, fetch FetchFunc, watchers ...Watcher) *LiveFeed {
	return &LiveFeed{
		fetch:    fetch,
		watchers: watchers,
		log:      log.With().Str("component", "live-feed").Logger(),
		state:    FeedIdle,
	}
}

// State returns the current lifecycle state.
func (f *LiveFeed) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *LiveFeed) transition(target FeedState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next, err := f.state.TransitionTo(target)
	if err != nil {
		return err
	}
	f.state = next
	return nil
}

// Run fetches the initial snapshot, then refetches on every watcher
// signal until ctx is cancelled. The returned channel is closed when
// the feed stops; watcher stop funcs are released on every exit path.
func (f *LiveFeed) Run(ctx context.Context, viewer Viewer) (<-chan FeedUpdate, error) {
	signals := make([]<-chan struct{}, 0, len(f.watchers))
	stops := make([]func(), 0, len(f.watchers))
	for _, w := range f.watchers {
		ch, stop, err := w.Watch(ctx, viewer)
		if err != nil {
			for _, s := range stops {
				s()
			}
			return nil, err
		}
		signals = append(signals, ch)
		stops = append(stops, stop)
	}

	updates := make(chan FeedUpdate, 1)
	merged := mergeSignals(ctx, signals)

	go func() {
		defer close(updates)
		defer func() {
			for _, s := range stops {
				s()
			}
		}()

		f.refresh(ctx, viewer, updates)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-merged:
				if !ok {
					return
				}
				f.refresh(ctx, viewer, updates)
			}
		}
	}()

	return updates, nil
}

func (f *LiveFeed) refresh(ctx context.Context, viewer Viewer, updates chan FeedUpdate) {
	if err := f.transition(FeedLoading); err != nil {
		f.log.Warn().Err(err).Str("state", f.State().String()).Msg("feed refresh skipped")
		return
	}

	result, err := f.fetch(ctx, viewer)
	if err != nil {
		// A hard fetch error leaves nothing to publish; fall back to a
		// degraded snapshot so the state machine stays consistent.
		f.log.Warn().Err(err).Msg("feed fetch failed")
		result = FeedResult{Degraded: []DegradedSource{{Source: "feed", Error: err.Error()}}}
	}

	target := FeedReady
	if result.Partial() {
		target = FeedPartiallyFailed
	}
	if err := f.transition(target); err != nil {
		f.log.Warn().Err(err).Msg("feed state transition rejected")
		return
	}

	update := FeedUpdate{State: target, Result: result}
	select {
	case updates <- update:
	default:
		// Consumer is behind; drop the stale pending snapshot and
		// replace it with the fresh one.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- update:
		default:
		}
	}
}

// mergeSignals fans several watcher channels into one. It closes the
// merged channel once every input is drained or ctx is cancelled.
func mergeSignals(ctx context.Context, signals []<-chan struct{}) <-chan struct{} {
	merged := make(chan struct{}, 1)
	var wg sync.WaitGroup
	for _, ch := range signals {
		wg.Add(1)
		go func(ch <-chan struct{}) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-ch:
					if !ok {
						return
					}
					select {
					case merged <- struct{}{}:
					default:
					}
				}
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()
	return merged
}
