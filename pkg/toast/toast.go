package toast

import (
	"time"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// DefaultDuration is how long a toast stays visible when neither the toast
// nor the store sets a duration.
const DefaultDuration = 5 * time.Second

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Toast is one notification.
type Toast struct {
	ID          uint64    `json:"id"`
	Level       Type      `json:"level"`
	Title       string    `json:"title,omitempty"`
	Message     string    `json:"message"`
	ActionLabel string    `json:"actionLabel,omitempty"`
	ActionID    string    `json:"actionID,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	// Duration overrides the store default. Negative keeps the toast until
	// it is dismissed.
	Duration time.Duration `json:"-"`
}

// Dispatcher runs fn on the goroutine that owns the store's graph.
// *reactive.Loop implements it.
type Dispatcher interface {
	Dispatch(fn func()) bool
}

// Store is a reactive queue of toasts. Items is backed by a signal, so
// effects and computeds that read it follow every change.
//
// Like every graph node a Store belongs to one goroutine. Timers fire on
// their own goroutines and hand the dismissal to the Dispatcher; without
// one, toasts stay until Dismiss is called.
type Store struct {
	items      *reactive.SliceSignal[Toast]
	dispatcher Dispatcher
	duration   time.Duration
	max        int
	now        func() time.Time

	nextID uint64
	timers map[uint64]*time.Timer
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithDispatcher enables auto-dismiss through d.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Store) {
		s.dispatcher = d
	}
}

// WithDuration sets the default display duration.
func WithDuration(d time.Duration) Option {
	return func(s *Store) {
		s.duration = d
	}
}

// WithMax bounds the number of visible toasts; the oldest is dropped first.
// Zero means unbounded.
func WithMax(n int) Option {
	return func(s *Store) {
		s.max = n
	}
}

// New creates a store. Created inside a scope, the store is closed when the
// scope is disposed.
func New(opts ...Option) *Store {
	s := &Store{
		items:    reactive.NewSliceSignal[Toast](nil, reactive.WithName("toasts")),
		duration: DefaultDuration,
		now:      time.Now,
		timers:   make(map[uint64]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if scope := reactive.CurrentScope(); scope != nil {
		scope.OnCleanup(s.Close)
	}
	return s
}

// Items returns the visible toasts, oldest first.
func (s *Store) Items() []Toast {
	return s.items.Get()
}

// Len returns the number of visible toasts.
func (s *Store) Len() int {
	return len(s.items.Get())
}

// Show displays a toast and returns its ID.
//
//	store.Show(toast.TypeSuccess, "Changes saved!")
func (s *Store) Show(level Type, message string) uint64 {
	return s.Push(Toast{Level: level, Message: message})
}

// Success shows a success toast.
func (s *Store) Success(message string) uint64 {
	return s.Show(TypeSuccess, message)
}

// Error shows an error toast.
func (s *Store) Error(message string) uint64 {
	return s.Show(TypeError, message)
}

// Warning shows a warning toast.
func (s *Store) Warning(message string) uint64 {
	return s.Show(TypeWarning, message)
}

// Info shows an info toast.
func (s *Store) Info(message string) uint64 {
	return s.Show(TypeInfo, message)
}

// WithTitle shows a toast with a title and message.
//
//	store.WithTitle(toast.TypeSuccess, "Settings", "Your changes have been saved.")
func (s *Store) WithTitle(level Type, title, message string) uint64 {
	return s.Push(Toast{Level: level, Title: title, Message: message})
}

// WithAction shows a toast with an action button.
//
//	store.WithAction(toast.TypeInfo, "Item deleted", "Undo", "undo-delete")
func (s *Store) WithAction(level Type, message, actionLabel, actionID string) uint64 {
	return s.Push(Toast{Level: level, Message: message, ActionLabel: actionLabel, ActionID: actionID})
}

// Push adds t, assigning its ID and creation time, and returns the ID.
// A closed store ignores the call and returns 0.
func (s *Store) Push(t Toast) uint64 {
	if s.closed {
		return 0
	}
	s.nextID++
	t.ID = s.nextID
	t.CreatedAt = s.now()

	reactive.Batch(func() {
		s.items.Append(t)
		if s.max > 0 {
			for len(s.items.Peek()) > s.max {
				s.Dismiss(s.items.Peek()[0].ID)
			}
		}
	})
	s.schedule(t)
	return t.ID
}

func (s *Store) schedule(t Toast) {
	d := t.Duration
	if d == 0 {
		d = s.duration
	}
	if d <= 0 || s.dispatcher == nil {
		return
	}
	id := t.ID
	s.timers[id] = time.AfterFunc(d, func() {
		s.dispatcher.Dispatch(func() { s.Dismiss(id) })
	})
}

// Dismiss removes the toast with the given ID. It reports whether the
// toast was visible.
func (s *Store) Dismiss(id uint64) bool {
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	before := len(s.items.Peek())
	s.items.RemoveWhere(func(t Toast) bool { return t.ID == id })
	return len(s.items.Peek()) < before
}

// Clear removes every toast.
func (s *Store) Clear() {
	s.stopTimers()
	s.items.Clear()
}

// Close stops pending timers. Later Push calls are ignored; visible toasts
// stay readable.
func (s *Store) Close() {
	s.closed = true
	s.stopTimers()
}

func (s *Store) stopTimers() {
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
