package notifysvc

import (
	"fmt"
	"io"
	"sync"

	"github.com/trezcool/masomo-portal/core"
)

// ConsoleNotifier prints notifications to a terminal and records them in the log.
type ConsoleNotifier struct {
	out    io.Writer
	logger core.Logger
	mu     sync.Mutex
}

var _ core.Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(out io.Writer, logger core.Logger) *ConsoleNotifier {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &ConsoleNotifier{out: out, logger: logger}
}

func (n *ConsoleNotifier) Success(msg string) {
	n.write("✓", msg)
	n.logger.Info(msg)
}

func (n *ConsoleNotifier) Error(msg string) {
	n.write("✗", msg)
	n.logger.Warn(msg)
}

func (n *ConsoleNotifier) write(icon, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.out, "%s %s\n", icon, msg)
}

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notification struct {
	Kind    Kind
	Message string
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

var _ core.Notifier = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return new(Recorder)
}

func (r *Recorder) Success(msg string) { r.record(KindSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.record(KindError, msg) }

func (r *Recorder) record(kind Kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{Kind: kind, Message: msg})
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = nil
}
