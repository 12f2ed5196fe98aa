package web

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-lebai/pkg/hub"
	"github.com/teslashibe/go-lebai/pkg/lebai"
)

// handleError maps client errors onto HTTP statuses.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	body := fiber.Map{"error": err.Error()}

	var fe *fiber.Error
	var devErr *lebai.Error
	var trErr *lebai.TransportError
	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case errors.As(err, &devErr):
		status = fiber.StatusBadGateway
		body["code"] = devErr.Code
		body["params"] = devErr.Params
	case errors.As(err, &trErr):
		status = fiber.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = fiber.StatusGatewayTimeout
		}
	case errors.Is(err, lebai.ErrNoTask), errors.Is(err, lebai.ErrInvalidStatus):
		status = fiber.StatusConflict
	}

	if status >= fiber.StatusInternalServerError {
		s.log.Warn("request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(body)
}

func (s *Server) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.cfg.RequestTimeout)
}

func intParam(c *fiber.Ctx, name string) (int, error) {
	v, err := strconv.Atoi(c.Params(name))
	if err != nil || v <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return v, nil
}

// RobotView is the /api/robot response.
type RobotView struct {
	Mode          string    `json:"mode"`
	ModeCode      int       `json:"mode_code"`
	ActualJoint   []float64 `json:"actual_joint"`
	ActualTCPPose []float64 `json:"actual_tcp_pose"`
}

// handleRobot returns a telemetry snapshot
func (s *Server) handleRobot(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	d, err := s.robot.RobotData(ctx)
	if err != nil {
		return err
	}
	return c.JSON(RobotView{
		Mode:          d.RobotMode.String(),
		ModeCode:      int(d.RobotMode),
		ActualJoint:   d.ActualJoint,
		ActualTCPPose: d.ActualTCPPose,
	})
}

// handleSystemCommand runs one of the system commands by name
func (s *Server) handleSystemCommand(c *fiber.Ctx) error {
	name := c.Params("cmd")
	cmd, ok := s.robot.SystemCommands()[name]
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown command "+name)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()
	if err := cmd(ctx); err != nil {
		return err
	}
	s.log.Info("system command", "cmd", name)
	return c.JSON(fiber.Map{"cmd": name, "ok": true})
}

// handleRunScene starts a scene and follows it in the background. The
// response carries the task id; progress is published as events.
func (s *Server) handleRunScene(c *fiber.Ctx) error {
	sceneID, err := intParam(c, "id")
	if err != nil {
		return err
	}
	loop := c.QueryInt("loop", 1)
	force := c.QueryBool("force", false)

	ctx, cancel := s.requestContext(c)
	defer cancel()

	scene := s.robot.Scene(sceneID)
	if err := scene.Start(ctx, loop, force); err != nil {
		return err
	}
	taskID := scene.TaskID()
	s.events.TaskStatus(taskID, lebai.TaskRunning)

	s.runs.Add(1)
	go s.follow(scene)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"scene_id": sceneID,
		"task_id":  taskID,
		"loop":     loop,
	})
}

// follow streams a started scene to completion and publishes its final status.
func (s *Server) follow(scene *lebai.Scene) {
	defer s.runs.Done()
	taskID := scene.TaskID()

	_, err := scene.Stream(s.runCtx)
	if err != nil {
		s.log.Warn("scene run ended with error", "task_id", taskID, "error", err)
	}

	// The run context may already be cancelled on shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()
	status, err := scene.Status(ctx)
	if err != nil {
		s.log.Warn("final status unavailable", "task_id", taskID, "error", err)
		return
	}
	s.events.TaskStatus(taskID, status)
}

// TaskView is the /api/tasks/:id response.
type TaskView struct {
	ID         int    `json:"id"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Done       bool   `json:"done"`
}

func newTaskView(res *lebai.TaskResult) TaskView {
	return TaskView{
		ID:         res.ID,
		Status:     res.Status.String(),
		StatusCode: int(res.Status),
		Done:       res.Status.Terminal(),
	}
}

// handleGetTask returns the status of a task
func (s *Server) handleGetTask(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	res, err := s.robot.Task(id).Result(ctx)
	if err != nil {
		return err
	}
	return c.JSON(newTaskView(res))
}

// handleTaskAction pauses, resumes or stops a task
func (s *Server) handleTaskAction(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}

	task := s.robot.Task(id)
	ops := map[string]func(context.Context) error{
		"pause":  task.Pause,
		"resume": task.Resume,
		"stop":   task.Stop,
	}
	action := c.Params("action")
	op, ok := ops[action]
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown task action "+action)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	if err := op(ctx); err != nil {
		return err
	}
	res, err := task.Result(ctx)
	if err != nil {
		return err
	}
	s.events.TaskStatus(id, res.Status)
	return c.JSON(newTaskView(res))
}

// handleGetEvents returns recent task events
func (s *Server) handleGetEvents(c *fiber.Ctx) error {
	return c.JSON(s.events.Recent())
}

// handleLogsWS replays recent events, then streams new ones from the hub
func (s *Server) handleLogsWS(c *websocket.Conn) {
	for _, ev := range s.events.Recent() {
		if err := c.WriteJSON(ev); err != nil {
			return
		}
	}

	client := hub.NewClient(s.events.Hub(), c)
	if client == nil {
		return
	}
	client.Run()
}
