package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-lebai/internal/log"
	"github.com/teslashibe/go-lebai/pkg/hub"
	"github.com/teslashibe/go-lebai/pkg/lebai"
)

// backlogSize is the number of recent events replayed to new websocket clients.
const backlogSize = 500

// Observer receives task events.
type Observer interface {
	TaskLog(taskID int, chunk []byte)
	TaskStatus(taskID int, status lebai.TaskStatus)
}

// Event is the websocket payload for task events.
type Event struct {
	Time   string `json:"time"`
	Type   string `json:"type"` // log, status
	TaskID int    `json:"task_id"`
	Data   string `json:"data,omitempty"`
	Status string `json:"status,omitempty"`
}

// Events fans task events out to the websocket hub and to observers such
// as the MQTT bridge. Its TaskLog method is meant to be installed as the
// robot's chunk handler.
type Events struct {
	hub       *hub.Hub
	observers []Observer
	log       *slog.Logger
	broadcast func(v any) error

	mu      sync.RWMutex
	backlog []Event
}

// NewEvents creates an event fan-out with its own hub.
func NewEvents(observers ...Observer) *Events {
	h := hub.New("logs")
	return &Events{
		hub:       h,
		observers: observers,
		log:       log.With("component", "events"),
		broadcast: h.BroadcastJSON,
		backlog:   make([]Event, 0, backlogSize),
	}
}

// Hub returns the websocket hub events are broadcast on.
func (e *Events) Hub() *hub.Hub { return e.hub }

// TaskLog publishes a chunk of task log output.
func (e *Events) TaskLog(taskID int, chunk []byte) {
	e.publish(Event{Type: "log", TaskID: taskID, Data: string(chunk)})
	for _, o := range e.observers {
		o.TaskLog(taskID, chunk)
	}
}

// TaskStatus publishes a task status change.
func (e *Events) TaskStatus(taskID int, status lebai.TaskStatus) {
	e.publish(Event{Type: "status", TaskID: taskID, Status: status.String()})
	for _, o := range e.observers {
		o.TaskStatus(taskID, status)
	}
}

func (e *Events) publish(ev Event) {
	ev.Time = time.Now().Format("15:04:05")

	e.mu.Lock()
	e.backlog = append(e.backlog, ev)
	if len(e.backlog) > backlogSize {
		e.backlog = e.backlog[1:]
	}
	e.mu.Unlock()

	if err := e.broadcast(ev); err != nil {
		e.log.Warn("event broadcast failed", "type", ev.Type, "task_id", ev.TaskID, "error", err)
	}
}

// Recent returns a copy of the buffered events, oldest first.
func (e *Events) Recent() []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Event(nil), e.backlog...)
}

var _ Observer = (*Events)(nil)
