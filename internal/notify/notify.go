// Package notify carries workspace change notifications to subscribers.
// Publishing is fire-and-forget: a failing sink never fails the operation
// that produced the event.
package notify

import "log/slog"

// Event names.
const (
	ProjectDeleted  = "project.deleted"
	DirCreated      = "dir.created"
	DirDeleted      = "dir.deleted"
	DirMoved        = "dir.moved"
	DirRenamed      = "dir.renamed"
	FileCreated     = "file.created"
	FileUpdated     = "file.updated"
	FileDeleted     = "file.deleted"
	FileMoved       = "file.moved"
	FilesBatchMoved = "files.batch_moved"
	AssetUploaded   = "asset.uploaded"
)

// Sink accepts one notification.
type Sink interface {
	Publish(projectID, event string, payload any) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(projectID, event string, payload any) error

// Publish calls f.
func (f SinkFunc) Publish(projectID, event string, payload any) error {
	return f(projectID, event, payload)
}

// Dispatcher fans events out to sinks. A nil *Dispatcher drops everything.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher returns a Dispatcher over sinks.
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sinks: sinks, logger: logger}
}

// Add registers another sink. It is not safe to call concurrently with Fire.
func (d *Dispatcher) Add(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Fire publishes to every sink. Sink errors and panics are logged and dropped.
func (d *Dispatcher) Fire(projectID, event string, payload any) {
	if d == nil {
		return
	}
	for _, s := range d.sinks {
		d.publish(s, projectID, event, payload)
	}
}

func (d *Dispatcher) publish(s Sink, projectID, event string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("notify: sink panicked", slog.String("event", event), slog.Any("panic", r))
		}
	}()
	if err := s.Publish(projectID, event, payload); err != nil {
		d.logger.Debug("notify: publish failed",
			slog.String("event", event),
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
	}
}
