package lebai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
)

// Scene drives one scene run on the robot. It starts out identified by a
// scene id (a stored program) or a task id (a previous run). Once Start
// returns, the task id reported by the device is used for every later
// operation and the scene id is never sent again.
//
// A Scene does not coordinate with other Scene values: driving the same
// remote task from two of them races on start/pause/stop and is the
// caller's responsibility to avoid.
type Scene struct {
	robot *Robot

	mu      sync.RWMutex
	sceneID int
	taskID  int
}

// Scene returns a controller for the stored scene with the given id.
func (r *Robot) Scene(sceneID int) *Scene {
	return &Scene{robot: r, sceneID: sceneID}
}

// Task returns a controller for an existing task, e.g. to rerun or
// observe it.
func (r *Robot) Task(taskID int) *Scene {
	return &Scene{robot: r, taskID: taskID}
}

// SceneID returns the scene id the controller was created with (0 for tasks).
func (s *Scene) SceneID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sceneID
}

// TaskID returns the current task id, 0 before the first Start of a scene.
func (s *Scene) TaskID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taskID
}

type startRequest struct {
	ExecuteCount int  `json:"execute_count"`
	Clear        int  `json:"clear"`
	TaskID       *int `json:"task_id,omitempty"`
	SceneID      *int `json:"scene_id,omitempty"`
}

type taskRef struct {
	ID int `json:"id"`
}

// Start starts the task loop times. force clears whatever the robot is
// currently running first. On success the returned task id replaces the
// scene id for all later operations.
func (s *Scene) Start(ctx context.Context, loop int, force bool) error {
	s.mu.RLock()
	sceneID, taskID := s.sceneID, s.taskID
	s.mu.RUnlock()

	req := startRequest{ExecuteCount: loop}
	if force {
		req.Clear = 1
	}
	if taskID > 0 {
		req.TaskID = &taskID
	} else {
		req.SceneID = &sceneID
	}

	raw, err := s.robot.do(ctx, http.MethodPost, taskPath, nil, req, "start_task")
	if err != nil {
		return err
	}

	var res taskRef
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("lebai [start_task]: decode: %w", err)
	}
	if res.ID <= 0 {
		return fmt.Errorf("lebai [start_task]: decode: no task id in %s", raw)
	}

	s.mu.Lock()
	s.taskID = res.ID
	s.mu.Unlock()

	s.robot.log.Info("task started", "scene_id", sceneID, "task_id", res.ID, "loop", loop, "force", force)
	return nil
}

func (s *Scene) requireTask() (int, error) {
	id := s.TaskID()
	if id <= 0 {
		return 0, ErrNoTask
	}
	return id, nil
}

func (s *Scene) taskAction(ctx context.Context, cmd string) error {
	id, err := s.requireTask()
	if err != nil {
		return err
	}
	_, err = s.robot.ActionSettled(ctx, cmd, taskRef{ID: id})
	return err
}

// Pause pauses the task.
func (s *Scene) Pause(ctx context.Context) error {
	return s.taskAction(ctx, "pause_task")
}

// Resume resumes a paused task.
func (s *Scene) Resume(ctx context.Context) error {
	return s.taskAction(ctx, "resume_task")
}

// Stop stops the task.
func (s *Scene) Stop(ctx context.Context) error {
	return s.taskAction(ctx, "stop_task")
}

// TaskResult is the status payload of a task.
type TaskResult struct {
	ID     int
	Status TaskStatus
	Raw    json.RawMessage
}

// Result fetches the task's status payload.
func (s *Scene) Result(ctx context.Context) (*TaskResult, error) {
	id, err := s.requireTask()
	if err != nil {
		return nil, err
	}

	q := url.Values{"id": []string{strconv.Itoa(id)}}
	raw, err := s.robot.do(ctx, http.MethodGet, taskPath, q, nil, "get_task")
	if err != nil {
		return nil, err
	}

	var res struct {
		ID     int `json:"id"`
		Status int `json:"status"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("lebai [get_task]: decode: %w", err)
	}
	status, err := ParseTaskStatus(res.Status)
	if err != nil {
		return nil, fmt.Errorf("lebai [get_task]: %w", err)
	}
	if res.ID == 0 {
		res.ID = id
	}
	return &TaskResult{ID: res.ID, Status: status, Raw: raw}, nil
}

// Status returns the task status.
func (s *Scene) Status(ctx context.Context) (TaskStatus, error) {
	res, err := s.Result(ctx)
	if err != nil {
		return TaskIdle, err
	}
	return res.Status, nil
}

// Done reports whether the task reached success, stopped or aborted.
func (s *Scene) Done(ctx context.Context) (bool, error) {
	status, err := s.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.Terminal(), nil
}

// Run starts the task loop times and returns its log output once it
// reaches a terminal status. See Stream for the termination rules.
func (s *Scene) Run(ctx context.Context, loop int) (string, error) {
	if err := s.Start(ctx, loop, false); err != nil {
		return "", err
	}
	return s.Stream(ctx)
}

// RunScene runs a stored scene to completion and returns its log output.
func (r *Robot) RunScene(ctx context.Context, sceneID, loop int) (string, error) {
	return r.Scene(sceneID).Run(ctx, loop)
}

// RerunTask runs a previous task again and returns its log output.
func (r *Robot) RerunTask(ctx context.Context, taskID, loop int) (string, error) {
	return r.Task(taskID).Run(ctx, loop)
}
