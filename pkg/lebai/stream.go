package lebai

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// Stream follows the task's log stream and returns the accumulated text
// once the task reaches a terminal status.
//
// Status is polled after every chunk and every PollInterval while the
// stream is quiet. Stream gives up with ErrIdleTimeout when neither data
// nor a terminal status arrives within IdleTimeout, and with the context
// error when ctx is done or MaxWait elapses. If the socket closes before
// the task finishes, the error is a *StreamError wrapping ErrStreamClosed
// or the read error. All of these, as well as status query failures, carry
// the partial output in a *StreamError. Once the task is terminal, output
// already in flight is collected for up to a short grace period before the
// socket is closed. The socket is closed on every path.
//
// The output is the received bytes decoded as UTF-8, with invalid
// sequences replaced by U+FFFD. Chunk handlers see the raw bytes.
func (s *Scene) Stream(ctx context.Context) (string, error) {
	taskID, err := s.requireTask()
	if err != nil {
		return "", err
	}

	cfg := s.robot.cfg
	if cfg.MaxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxWait)
		defer cancel()
	}

	addr := s.robot.logStreamAddr()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", &TransportError{Method: "DIAL", URL: "tcp://" + addr, Err: err}
	}

	f := &follower{
		scene:  s,
		taskID: taskID,
		conn:   conn,
		chunks: make(chan readResult),
		quit:   make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(f.read)
	g.Go(func() error { return f.watch(gctx) })
	err = g.Wait()

	out := f.text()
	if err != nil {
		s.robot.log.Warn("log stream ended early", "task_id", taskID, "bytes", len(out), "error", err)
		return out, err
	}
	s.robot.log.Info("task finished", "task_id", taskID, "bytes", len(out))
	return out, nil
}

// drainTimeout bounds how long Stream keeps reading once the task is terminal.
const drainTimeout = 100 * time.Millisecond

type readResult struct {
	data []byte
	err  error
}

// follower pairs a socket reader with the status poll loop. Only watch
// touches out; read only hands chunks over.
type follower struct {
	scene  *Scene
	taskID int
	conn   net.Conn
	chunks chan readResult
	quit   chan struct{}
	out    bytes.Buffer
}

func (f *follower) read() error {
	buf := make([]byte, f.scene.robot.cfg.ChunkSize)
	for {
		n, err := f.conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case f.chunks <- readResult{data: chunk}:
			case <-f.quit:
				return nil
			}
		}
		if err != nil {
			select {
			case f.chunks <- readResult{err: err}:
			case <-f.quit:
			}
			return nil
		}
	}
}

func (f *follower) watch(ctx context.Context) error {
	defer close(f.quit)
	defer f.conn.Close()

	cfg := f.scene.robot.cfg
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	poll := time.NewTicker(interval)
	defer poll.Stop()

	var idle <-chan time.Time
	var idleTimer *time.Timer
	if cfg.IdleTimeout > 0 {
		idleTimer = time.NewTimer(cfg.IdleTimeout)
		defer idleTimer.Stop()
		idle = idleTimer.C
	}

	fail := func(err error) error {
		return &StreamError{Output: f.text(), Err: err}
	}

	for {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())

		case <-idle:
			return fail(ErrIdleTimeout)

		case <-poll.C:
			done, err := f.scene.Done(ctx)
			if err != nil {
				return fail(err)
			}
			if done {
				f.drain(ctx)
				return nil
			}

		case res := <-f.chunks:
			if res.err != nil {
				// The device may close the stream right after the task ends.
				done, err := f.scene.Done(ctx)
				if err != nil {
					return fail(err)
				}
				if done {
					return nil
				}
				if errors.Is(res.err, io.EOF) {
					return fail(ErrStreamClosed)
				}
				return fail(res.err)
			}

			f.append(res.data)
			if idleTimer != nil {
				idleTimer.Reset(cfg.IdleTimeout)
			}

			done, err := f.scene.Done(ctx)
			if err != nil {
				return fail(err)
			}
			if done {
				f.drain(ctx)
				return nil
			}
		}
	}
}

// drain collects output the device wrote before the terminal status was
// seen. It stops at EOF, on a read error or after drainTimeout.
func (f *follower) drain(ctx context.Context) {
	f.conn.SetReadDeadline(time.Now().Add(drainTimeout))
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-f.chunks:
			if res.err != nil {
				return
			}
			f.append(res.data)
		}
	}
}

func (f *follower) append(data []byte) {
	cfg := f.scene.robot.cfg
	f.out.Write(data)
	cfg.Metrics.addStreamBytes(len(data))
	if cfg.OnChunk != nil {
		cfg.OnChunk(f.taskID, data)
	}
}

// text returns the accumulated output with invalid UTF-8 replaced.
func (f *follower) text() string {
	return strings.ToValidUTF8(f.out.String(), string(utf8.RuneError))
}
