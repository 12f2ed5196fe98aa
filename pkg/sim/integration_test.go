package sim_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-lebai/pkg/lebai"
	"github.com/teslashibe/go-lebai/pkg/pose"
	"github.com/teslashibe/go-lebai/pkg/sim"
)

// startSim runs a simulator on loopback listeners and returns a client
// connected to it.
func startSim(t *testing.T, opts ...sim.Option) *lebai.Robot {
	t.Helper()
	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	logLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := sim.New(append([]sim.Option{sim.WithLogger(quiet)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx, httpLn, logLn) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return lebai.NewRobot(httpLn.Addr().String(),
		lebai.WithLogPort(logLn.Addr().(*net.TCPAddr).Port),
		lebai.WithSettleDelay(0),
		lebai.WithPollInterval(20*time.Millisecond),
		lebai.WithIdleTimeout(5*time.Second),
		lebai.WithLogger(quiet),
	)
}

func TestRobotAgainstSimulator(t *testing.T) {
	r := startSim(t)
	ctx := context.Background()

	require.Eventually(t, func() bool {
		_, err := r.RobotMode(ctx)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond, "simulator did not come up")

	require.NoError(t, r.StartSys(ctx))
	mode, err := r.RobotMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, lebai.RobotIdle, mode)

	target := pose.NewJoint(0, -1.2, 1.4, 0, 0.5, 0)
	require.NoError(t, r.MoveJ(ctx, target, lebai.MoveParams{Acceleration: 1, Velocity: 0.5}))
	joints, err := r.ActualJointPositions(ctx)
	require.NoError(t, err)
	assert.True(t, joints.Equal(target))

	tcp := pose.NewCartesian(0, 0, 0.12, 0, 0, 0)
	require.NoError(t, r.SetTCP(ctx, tcp))
	got, err := r.TCP(ctx)
	require.NoError(t, err)
	assert.True(t, got.Equal(tcp))

	require.NoError(t, r.External(3).SetAO(ctx, 1, 2.5))
	ai, err := r.External(3).AI(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.5, ai)

	require.NoError(t, r.SetClawAO(ctx, "force", 30))
	force, err := r.ClawAI(ctx, "FORCE")
	require.NoError(t, err)
	assert.Equal(t, 30.0, force)

	var devErr *lebai.Error
	_, err = r.Action(ctx, "warp_drive", nil)
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, sim.CodeUnknownCommand, devErr.Code)
}

func TestRunSceneAgainstSimulator(t *testing.T) {
	r := startSim(t,
		sim.WithTaskDuration(100*time.Millisecond),
		sim.WithLogInterval(20*time.Millisecond),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.Eventually(t, func() bool { return r.StartSys(ctx) == nil }, 2*time.Second, 20*time.Millisecond)

	out, err := r.RunScene(ctx, 10001, 2)
	require.NoError(t, err)
	assert.Contains(t, out, "[task 1] step 1\n")
	assert.True(t, strings.HasSuffix(out, "[task 1] success\n"), "missing final status line: %q", out)

	status, err := r.Task(1).Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, lebai.TaskSuccess, status)

	out, err = r.RerunTask(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "[task 2]"), "rerun gets a new task id: %q", out)
}

func TestSceneStopEndsStream(t *testing.T) {
	r := startSim(t,
		sim.WithTaskDuration(time.Hour),
		sim.WithLogInterval(20*time.Millisecond),
	)
	ctx := context.Background()
	require.Eventually(t, func() bool { return r.StartSys(ctx) == nil }, 2*time.Second, 20*time.Millisecond)

	scene := r.Scene(42)
	require.NoError(t, scene.Start(ctx, 0, false))

	time.AfterFunc(100*time.Millisecond, func() { scene.Stop(context.Background()) })

	out, err := scene.Stream(ctx)
	require.NoError(t, err)
	assert.Contains(t, out, "step")

	status, err := scene.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, lebai.TaskStopped, status)
}
