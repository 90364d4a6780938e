// Package notify is the advisory warning channel used by codecs and by
// deprecated entry points. Notices are one-way: emitting one never changes the
// outcome of the operation that emitted it.
package notify

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Category tags a notice
type Category int

const (
	// User marks advice about how data was handled (e.g. a lossy write)
	User Category = iota + 1
	// Deprecation marks use of an entry point scheduled for removal
	Deprecation
)

// String returns the category name
func (c Category) String() string {
	switch c {
	case User:
		return "user"
	case Deprecation:
		return "deprecation"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Notice is a single advisory message
type Notice struct {
	Category Category
	Message  string
}

func (n Notice) String() string {
	return n.Category.String() + ": " + n.Message
}

// Notifier receives notices
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Recorder keeps every notice it receives. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify records n
func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns the recorded notices in arrival order
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.notices)
}

// Len returns the number of recorded notices
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

// Has reports whether a notice of category c was recorded
func (r *Recorder) Has(c Category) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.ContainsFunc(r.notices, func(n Notice) bool { return n.Category == c })
}

// LogNotifier writes notices as warnings to a slog logger
type LogNotifier struct {
	Logger *slog.Logger // nil means slog.Default()
}

// Notify logs n at warning level
func (l LogNotifier) Notify(n Notice) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(n.Message, slog.String("category", n.Category.String()))
}

// Multi fans a notice out to every non-nil notifier
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(n Notice) {
		for _, to := range notifiers {
			if to != nil {
				to.Notify(n)
			}
		}
	})
}

var (
	mu         sync.RWMutex
	defaultOut Notifier = LogNotifier{}
)

// Default returns the process-wide notifier
func Default() Notifier {
	mu.RLock()
	defer mu.RUnlock()
	return defaultOut
}

// SetDefault replaces the process-wide notifier and returns a function
// restoring the previous one
func SetDefault(n Notifier) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prev := defaultOut
	defaultOut = n
	return func() {
		mu.Lock()
		defer mu.Unlock()
		defaultOut = prev
	}
}

// Warn sends a notice to the process-wide notifier
func Warn(c Category, format string, args ...any) {
	Default().Notify(Notice{Category: c, Message: fmt.Sprintf(format, args...)})
}

// Capture runs fn with a recorder installed as the process-wide notifier and
// returns what fn emitted
func Capture(fn func()) []Notice {
	rec := &Recorder{}
	restore := SetDefault(rec)
	defer restore()
	fn()
	return rec.Notices()
}
