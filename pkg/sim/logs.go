package sim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/teslashibe/go-lebai/pkg/lebai"
)

// ServeLogs accepts log stream connections on ln until ctx is done. Each
// connection follows the task that is active when it connects: one line
// per LogInterval while the task runs, a final line once it is terminal,
// then the connection is closed.
func (s *Simulator) ServeLogs(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("sim: accept log connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.streamLogs(ctx, conn)
		}()
	}
}

func (s *Simulator) streamLogs(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	s.mu.Lock()
	t := s.tasks.active
	s.mu.Unlock()
	if t == nil {
		s.log.Debug("log connection without active task", "remote", conn.RemoteAddr().String())
		return
	}

	interval := s.cfg.LogInterval
	if interval <= 0 {
		interval = DefaultLogInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	step := 0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			s.advanceLocked(t, now)
			status, id := t.status, t.id
			s.mu.Unlock()

			var line string
			switch {
			case status.Terminal():
				line = fmt.Sprintf("[task %d] %s\n", id, status)
			case status == lebai.TaskRunning:
				step++
				line = fmt.Sprintf("[task %d] step %d\n", id, step)
			default:
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(interval * 10))
			if _, err := conn.Write([]byte(line)); err != nil {
				s.log.Debug("log connection closed", "task_id", id, "error", err)
				return
			}
			if status.Terminal() {
				return
			}
		}
	}
}
