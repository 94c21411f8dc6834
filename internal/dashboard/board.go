// Package dashboard keeps a set of independent widgets fresh. Widgets never
// talk to each other: they declare which resources they depend on and the
// event bus tells the board when those change.
package dashboard

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"lin/internal/eventbus"
	"lin/internal/log"
)

// maxConcurrentFetches bounds the requests one Refresh issues at once.
const maxConcurrentFetches = 4

type Widget struct {
	Name string
	// Resources are event resources ("task", "expense", ...) whose changes
	// make this widget stale.
	Resources []string
	Fetch     func(ctx context.Context) (any, error)
}

// State is a widget as last fetched.
type State struct {
	Name      string
	Data      any
	Err       error
	UpdatedAt time.Time
	Stale     bool
}

type entry struct {
	widget   Widget
	state    State
	gen      uint64
	fetching bool
}

type Board struct {
	mu      sync.Mutex
	entries []*entry
	logger  *log.Logger
	now     func() time.Time

	// changed receives a token whenever a widget goes stale.
	changed chan struct{}
	unsub   eventbus.Unsubscribe
}

// New creates a board and subscribes it to bus. All widgets start stale.
func New(bus *eventbus.Bus, logger *log.Logger, widgets ...Widget) *Board {
	if logger == nil {
		logger = log.Discard()
	}
	b := &Board{
		logger:  logger.WithComponent(log.ComponentDashboard),
		now:     time.Now,
		changed: make(chan struct{}, 1),
	}
	for _, w := range widgets {
		b.entries = append(b.entries, &entry{
			widget: w,
			state:  State{Name: w.Name, Stale: true},
		})
	}
	b.unsub = bus.SubscribeAll(b.onEvent)
	return b
}

func (b *Board) onEvent(ev eventbus.Event) {
	resource := eventbus.Resource(ev.Name)
	all := ev.Name == eventbus.AuthLogin || ev.Name == eventbus.AuthLogout ||
		ev.Name == eventbus.AuthExpired || ev.Name == eventbus.PendingAccepted

	b.mu.Lock()
	marked := 0
	for _, e := range b.entries {
		if all || slices.Contains(e.widget.Resources, resource) {
			e.gen++
			e.state.Stale = true
			marked++
		}
	}
	b.mu.Unlock()

	if marked == 0 {
		return
	}
	b.logger.Debug("Widgets marked stale", log.FieldEvent, ev.Name, "count", marked)
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

// MarkStale forces the named widgets, or every widget when none are named,
// to be fetched on the next Refresh.
func (b *Board) MarkStale(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if len(names) == 0 || slices.Contains(names, e.widget.Name) {
			e.gen++
			e.state.Stale = true
		}
	}
}

// Refresh fetches every stale widget concurrently. A failing widget keeps
// its previous data, records the error and stays stale; the others are
// unaffected. Only context cancellation is returned.
func (b *Board) Refresh(ctx context.Context) error {
	type job struct {
		e   *entry
		gen uint64
	}

	b.mu.Lock()
	var jobs []job
	for _, e := range b.entries {
		if e.state.Stale && !e.fetching {
			e.fetching = true
			jobs = append(jobs, job{e: e, gen: e.gen})
		}
	}
	b.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for _, j := range jobs {
		g.Go(func() error {
			data, err := j.e.widget.Fetch(ctx)
			b.finish(j.e, j.gen, data, err)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (b *Board) finish(e *entry, gen uint64, data any, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.fetching = false

	if err != nil {
		e.state.Err = err
		recordRefresh(e.widget.Name, "error")
		b.logger.Warn("Widget refresh failed", "widget", e.widget.Name, log.FieldError, err)
		return
	}
	e.state.Data = data
	e.state.Err = nil
	e.state.UpdatedAt = b.now()
	// An event that arrived mid-fetch leaves the widget stale.
	e.state.Stale = e.gen != gen
	recordRefresh(e.widget.Name, "success")
}

// Snapshot returns the widgets in registration order.
func (b *Board) Snapshot() []State {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]State, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.state
	}
	return out
}

// State returns one widget by name.
func (b *Board) State(name string) (State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e.widget.Name == name {
			return e.state, true
		}
	}
	return State{}, false
}

// Watch refreshes and renders once, then again after every burst of bus
// activity that made a widget stale, until ctx is done.
func (b *Board) Watch(ctx context.Context, debounce time.Duration, render func([]State)) error {
	if err := b.Refresh(ctx); err != nil {
		return err
	}
	render(b.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.changed:
		}

		if debounce > 0 {
			timer := time.NewTimer(debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if err := b.Refresh(ctx); err != nil {
			return err
		}
		render(b.Snapshot())
	}
}

// Close detaches the board from the bus.
func (b *Board) Close() {
	b.unsub()
}
