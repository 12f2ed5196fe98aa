package sim

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-lebai/pkg/lebai"
)

// task is one run of a scene. A loop count of zero or less runs until
// stopped.
type task struct {
	id      int
	sceneID int
	loop    int
	status  lebai.TaskStatus
	elapsed time.Duration // running time before since
	since   time.Time     // start of the current running stretch
}

// advance moves a running task to success once all loops have elapsed.
func (t *task) advance(now time.Time, perLoop time.Duration) {
	if t.status != lebai.TaskRunning || t.loop <= 0 {
		return
	}
	total := t.elapsed + now.Sub(t.since)
	if total >= perLoop*time.Duration(t.loop) {
		t.status = lebai.TaskSuccess
		t.elapsed = total
	}
}

func (t *task) snapshot() fiber.Map {
	return fiber.Map{
		"id":            t.id,
		"scene_id":      t.sceneID,
		"execute_count": t.loop,
		"status":        int(t.status),
	}
}

type taskTable struct {
	byID   map[int]*task
	nextID int
	active *task
}

func newTaskTable() taskTable {
	return taskTable{byID: make(map[int]*task), nextID: 1}
}

type startRequest struct {
	ExecuteCount int  `json:"execute_count"`
	Clear        int  `json:"clear"`
	TaskID       *int `json:"task_id"`
	SceneID      *int `json:"scene_id"`
}

// handleStartTask starts a scene or reruns a task. A rerun gets a new id
// for the same scene. Starting while another task runs needs clear=1.
func (s *Simulator) handleStartTask(c *fiber.Ctx) error {
	var req startRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.arm.ready() {
		return reply(c, nil, fail(CodeNotReady, s.arm.mode.String()))
	}

	var sceneID int
	switch {
	case req.TaskID != nil:
		prev, ok := s.tasks.byID[*req.TaskID]
		if !ok {
			return reply(c, nil, fail(CodeNoSuchTask, *req.TaskID))
		}
		sceneID = prev.sceneID
	case req.SceneID != nil:
		sceneID = *req.SceneID
	default:
		return reply(c, nil, fail(CodeBadRequest, "scene_id or task_id required"))
	}

	if a := s.tasks.active; a != nil {
		a.advance(now, s.cfg.TaskDuration)
		if !a.status.Terminal() {
			if req.Clear == 0 {
				return reply(c, nil, fail(CodeTaskBusy, a.id))
			}
			a.status = lebai.TaskStopped
			s.log.Info("task cleared", "task_id", a.id)
		}
	}

	t := &task{
		id:      s.tasks.nextID,
		sceneID: sceneID,
		loop:    req.ExecuteCount,
		status:  lebai.TaskRunning,
		since:   now,
	}
	s.tasks.nextID++
	s.tasks.byID[t.id] = t
	s.tasks.active = t
	s.arm.mode = lebai.RobotRunning

	s.log.Info("task started", "task_id", t.id, "scene_id", sceneID, "loop", t.loop)
	return reply(c, fiber.Map{"id": t.id}, nil)
}

func (s *Simulator) handleGetTask(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Query("id"))
	if err != nil {
		return reply(c, nil, fail(CodeBadRequest, "invalid id"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks.byID[id]
	if !ok {
		return reply(c, nil, fail(CodeNoSuchTask, id))
	}
	s.advanceLocked(t, time.Now())
	return reply(c, t.snapshot(), nil)
}

// advanceLocked advances t and returns the arm to idle when the active
// task has finished. s.mu must be held.
func (s *Simulator) advanceLocked(t *task, now time.Time) {
	t.advance(now, s.cfg.TaskDuration)
	if t == s.tasks.active && t.status.Terminal() && s.arm.mode == lebai.RobotRunning {
		s.arm.mode = lebai.RobotIdle
	}
}

type taskOp func(t *task, now time.Time) error

func pauseTask(t *task, now time.Time) error {
	if t.status != lebai.TaskRunning {
		return fail(CodeBadRequest, "task not running", t.status.String())
	}
	t.elapsed += now.Sub(t.since)
	t.status = lebai.TaskPaused
	return nil
}

func resumeTask(t *task, now time.Time) error {
	if t.status != lebai.TaskPaused {
		return fail(CodeBadRequest, "task not paused", t.status.String())
	}
	t.since = now
	t.status = lebai.TaskRunning
	return nil
}

func stopTask(t *task, _ time.Time) error {
	if !t.status.Terminal() {
		t.status = lebai.TaskStopped
	}
	return nil
}

func (s *Simulator) taskCommand(op taskOp) handlerFunc {
	return func(data json.RawMessage) (any, error) {
		var req struct {
			ID int `json:"id"`
		}
		if err := decode(data, &req); err != nil {
			return nil, err
		}

		now := time.Now()
		s.mu.Lock()
		defer s.mu.Unlock()

		t, ok := s.tasks.byID[req.ID]
		if !ok {
			return nil, fail(CodeNoSuchTask, req.ID)
		}
		s.advanceLocked(t, now)
		if err := op(t, now); err != nil {
			return nil, err
		}
		s.advanceLocked(t, now)
		return nil, nil
	}
}

// TaskStatus returns the status of a task, advancing it first.
func (s *Simulator) TaskStatus(id int) (lebai.TaskStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks.byID[id]
	if !ok {
		return lebai.TaskIdle, false
	}
	s.advanceLocked(t, time.Now())
	return t.status, true
}
