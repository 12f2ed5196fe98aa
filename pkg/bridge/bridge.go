// Package bridge republishes task events on an MQTT broker.
//
// Topics, relative to a configurable prefix:
//
//	<prefix>/task/<id>/status  retained JSON status, QoS 1
//	<prefix>/task/<id>/log     raw log chunks, QoS 0
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-lebai/internal/log"
	"github.com/teslashibe/go-lebai/pkg/lebai"
)

// queueSize bounds events waiting to be published.
const queueSize = 256

// Publisher sends one message to the broker.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// StatusMessage is the retained status payload.
type StatusMessage struct {
	TaskID     int    `json:"task_id"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Done       bool   `json:"done"`
	Time       string `json:"time"`
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// Bridge queues task events and publishes them from Run. Its TaskLog and
// TaskStatus methods never block; events are dropped when the queue is full.
type Bridge struct {
	pub    Publisher
	prefix string
	log    *slog.Logger
	queue  chan message
}

// New creates a bridge publishing under prefix.
func New(pub Publisher, prefix string) *Bridge {
	return &Bridge{
		pub:    pub,
		prefix: prefix,
		log:    log.With("component", "bridge"),
		queue:  make(chan message, queueSize),
	}
}

// StatusTopic returns the status topic of a task.
func (b *Bridge) StatusTopic(taskID int) string {
	return fmt.Sprintf("%s/task/%d/status", b.prefix, taskID)
}

// LogTopic returns the log topic of a task.
func (b *Bridge) LogTopic(taskID int) string {
	return fmt.Sprintf("%s/task/%d/log", b.prefix, taskID)
}

// TaskLog queues a log chunk.
func (b *Bridge) TaskLog(taskID int, chunk []byte) {
	b.enqueue(message{
		topic:   b.LogTopic(taskID),
		payload: append([]byte(nil), chunk...),
	})
}

// TaskStatus queues a retained status update.
func (b *Bridge) TaskStatus(taskID int, status lebai.TaskStatus) {
	payload, err := json.Marshal(StatusMessage{
		TaskID:     taskID,
		Status:     status.String(),
		StatusCode: int(status),
		Done:       status.Terminal(),
		Time:       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		b.log.Error("encode status", "task_id", taskID, "error", err)
		return
	}
	b.enqueue(message{topic: b.StatusTopic(taskID), qos: 1, retained: true, payload: payload})
}

func (b *Bridge) enqueue(m message) {
	select {
	case b.queue <- m:
	default:
		b.log.Warn("publish queue full, dropping message", "topic", m.topic)
	}
}

// Run publishes queued events until ctx is done, then drains what is
// already queued.
func (b *Bridge) Run(ctx context.Context) {
	for {
		select {
		case m := <-b.queue:
			b.publish(m)
		case <-ctx.Done():
			for {
				select {
				case m := <-b.queue:
					b.publish(m)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) publish(m message) {
	if err := b.pub.Publish(m.topic, m.qos, m.retained, m.payload); err != nil {
		b.log.Warn("publish failed", "topic", m.topic, "error", err)
	}
}
