package lebai

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-lebai/pkg/pose"
)

func TestAction_SendsCommandAndReturnsData(t *testing.T) {
	dev := newFakeDevice(t)
	dev.handle("get_velocity_factor", func(json.RawMessage) (int, any) {
		return 0, map[string]any{"value": 60}
	})

	r := dev.robot()
	raw, err := r.Action(context.Background(), "get_velocity_factor", nil)
	if err != nil {
		t.Fatalf("Action failed: %v", err)
	}
	if string(raw) != `{"value":60}` {
		t.Errorf("data = %s, want verbatim payload", raw)
	}

	req := dev.last()
	if req.Method != http.MethodPost || req.Path != "/public/robot/action" {
		t.Errorf("got %s %s", req.Method, req.Path)
	}
	if req.Cmd != "get_velocity_factor" {
		t.Errorf("cmd = %q", req.Cmd)
	}
	if string(req.Body) != "null" {
		t.Errorf("data = %s, want null", req.Body)
	}
	if req.RequestID == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestAction_NonZeroCodeIsDomainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 2001, "msg_params": ["joint", 3], "data": {"reason": "unreachable"}}`))
	}))
	defer srv.Close()

	_, err := NewRobot(strings.TrimPrefix(srv.URL, "http://")).Action(context.Background(), "movej", nil)

	var devErr *Error
	if !errors.As(err, &devErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if devErr.Code != 2001 {
		t.Errorf("Code = %d, want 2001", devErr.Code)
	}
	if len(devErr.Params) != 2 || devErr.Params[0] != "joint" {
		t.Errorf("Params = %v", devErr.Params)
	}
	if string(devErr.Data) != `{"reason": "unreachable"}` {
		t.Errorf("Data = %s", devErr.Data)
	}
	if devErr.Op != "movej" {
		t.Errorf("Op = %q", devErr.Op)
	}
	if IsTransportError(err) {
		t.Error("domain error must not be reported as transport error")
	}
}

func TestAction_ZeroCodeNeverFails(t *testing.T) {
	for _, body := range []string{
		`{"code":0}`,
		`{"code":0,"data":null}`,
		`{"code":0,"data":[1,2,3]}`,
		`{"code":0,"data":"text","msg_params":["ignored"]}`,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		r := NewRobot(strings.TrimPrefix(srv.URL, "http://"), WithSettleDelay(0))
		if _, err := r.Action(context.Background(), "noop", nil); err != nil {
			t.Errorf("body %s: unexpected error %v", body, err)
		}
		srv.Close()
	}
}

func TestAction_TransportErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewRobot(strings.TrimPrefix(srv.URL, "http://")).Action(context.Background(), "start_sys", nil)
		var te *TransportError
		if !errors.As(err, &te) {
			t.Fatalf("expected *TransportError, got %T: %v", err, err)
		}
		if te.StatusCode != http.StatusInternalServerError {
			t.Errorf("StatusCode = %d", te.StatusCode)
		}
		if IsDomainError(err) {
			t.Error("transport failure must not be a domain error")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":`))
		}))
		defer srv.Close()

		_, err := NewRobot(strings.TrimPrefix(srv.URL, "http://")).Action(context.Background(), "start_sys", nil)
		if !IsTransportError(err) {
			t.Fatalf("expected transport error, got %v", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()

		_, err = NewRobot(addr).Action(context.Background(), "start_sys", nil)
		var te *TransportError
		if !errors.As(err, &te) {
			t.Fatalf("expected *TransportError, got %T: %v", err, err)
		}
		if te.StatusCode != 0 {
			t.Errorf("StatusCode = %d, want 0", te.StatusCode)
		}
	})
}

func TestActionSettled(t *testing.T) {
	dev := newFakeDevice(t)
	r := dev.robot(WithSettleDelay(40 * time.Millisecond))

	start := time.Now()
	if err := r.StartSys(context.Background()); err != nil {
		t.Fatalf("StartSys failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("settled command returned after %v, want >= 40ms", elapsed)
	}

	// Unsettled commands do not wait.
	start = time.Now()
	if err := r.StopMove(context.Background()); err != nil {
		t.Fatalf("StopMove failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= 40*time.Millisecond {
		t.Errorf("unsettled command took %v", elapsed)
	}
}

func TestActionSettled_HonoursCancel(t *testing.T) {
	dev := newFakeDevice(t)
	r := dev.robot(WithSettleDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.SetVelocityFactor(ctx, 50)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSystemCommands(t *testing.T) {
	dev := newFakeDevice(t)
	r := dev.robot()
	ctx := context.Background()

	for name, fn := range r.SystemCommands() {
		if err := fn(ctx); err != nil {
			t.Fatalf("%s failed: %v", name, err)
		}
		if got := dev.last().Cmd; got != name {
			t.Errorf("%s sent cmd %q", name, got)
		}
	}
}

func TestGravityRoundTrip(t *testing.T) {
	dev := newFakeDevice(t)
	dev.store("set_gravity", "get_gravity", func(data json.RawMessage) any {
		var v struct {
			Value []float64 `json:"value"`
		}
		json.Unmarshal(data, &v)
		return map[string]any{"gravity": v.Value}
	})

	r := dev.robot()
	ctx := context.Background()

	for _, g := range []Vector3{DefaultGravity, Vec3(0, -9.8, 0), Vec3(0.1, 0.2, -9.7)} {
		if err := r.SetGravity(ctx, g); err != nil {
			t.Fatalf("SetGravity failed: %v", err)
		}
		got, err := r.Gravity(ctx)
		if err != nil {
			t.Fatalf("Gravity failed: %v", err)
		}
		if got != g {
			t.Errorf("Gravity() = %v, want %v", got, g)
		}
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	dev := newFakeDevice(t)
	dev.store("set_payload", "get_payload", func(data json.RawMessage) any { return data })

	r := dev.robot()
	ctx := context.Background()

	cases := []Payload{
		NewPayload(0.12, Vec3(0.1, 0.2, 0.3)),
		NewPayload(0, Vec3(0, -9.8, 0)),
		NewPayload(0.3, Vec3(0.1, -0.1, -9.8)),
	}
	for _, p := range cases {
		if err := r.SetPayload(ctx, p); err != nil {
			t.Fatalf("SetPayload failed: %v", err)
		}
		body := decodeMap(t, dev.last().Body)
		if _, ok := body["cog"]; !ok {
			t.Errorf("set_payload body missing cog: %v", body)
		}

		got, err := r.Payload(ctx)
		if err != nil {
			t.Fatalf("Payload failed: %v", err)
		}
		if got != p {
			t.Errorf("Payload() = %+v, want %+v", got, p)
		}
	}
}

func TestTCPRoundTrip(t *testing.T) {
	dev := newFakeDevice(t)
	dev.store("set_tcp", "get_tcp", func(data json.RawMessage) any { return data })

	r := dev.robot()
	ctx := context.Background()

	for _, tcp := range []pose.CartesianPose{
		pose.NewCartesian(0, 0, 0, 0, 0, 0),
		pose.NewCartesian(0, 0, 0.12, 0, 0, math.Pi),
	} {
		if err := r.SetTCP(ctx, tcp); err != nil {
			t.Fatalf("SetTCP failed: %v", err)
		}
		got, err := r.TCP(ctx)
		if err != nil {
			t.Fatalf("TCP failed: %v", err)
		}
		if !got.Equal(tcp) {
			t.Errorf("TCP() = %v, want %v", got, tcp)
		}
	}
}

func TestVelocityFactor(t *testing.T) {
	dev := newFakeDevice(t)
	dev.store("set_velocity_factor", "get_velocity_factor", func(data json.RawMessage) any { return data })

	r := dev.robot()
	if err := r.SetVelocityFactor(context.Background(), 60); err != nil {
		t.Fatalf("SetVelocityFactor failed: %v", err)
	}
	got, err := r.VelocityFactor(context.Background())
	if err != nil {
		t.Fatalf("VelocityFactor failed: %v", err)
	}
	if got != 60 {
		t.Errorf("VelocityFactor() = %d, want 60", got)
	}
}

func TestMoveJ_JointPose(t *testing.T) {
	dev := newFakeDevice(t)
	r := dev.robot()

	target := pose.NewJoint(0, -0.5, math.Pi/6, 0, 0, 0)
	if err := r.MoveJ(context.Background(), target, MoveParams{Time: 1}); err != nil {
		t.Fatalf("MoveJ failed: %v", err)
	}

	req := dev.last()
	if req.Cmd != "movej" {
		t.Errorf("cmd = %q", req.Cmd)
	}
	body := decodeMap(t, req.Body)
	if body["is_joint_angle"] != true {
		t.Errorf("is_joint_angle = %v, want true", body["is_joint_angle"])
	}
	if body["time"] != 1.0 || body["smooth_move_to_next"] != 0.0 {
		t.Errorf("unexpected params %v", body)
	}
	if _, ok := body["base"]; ok {
		t.Error("joint moves must not carry a base")
	}
	to := body["pose_to"].([]any)
	if len(to) != 6 || to[1] != -0.5 {
		t.Errorf("pose_to = %v", to)
	}
}

func TestMoveL_CartesianWithBase(t *testing.T) {
	dev := newFakeDevice(t)
	r := dev.robot()

	base := pose.Frame{0.3, 0, 0.2, 0, 0, 0}
	target := pose.NewCartesian(0.1, 0.2, 0, 0, 0, 0).WithBase(base)
	err := r.MoveL(context.Background(), target, MoveParams{Acceleration: 0.5, Velocity: 0.1, SmoothToNext: true})
	if err != nil {
		t.Fatalf("MoveL failed: %v", err)
	}

	body := decodeMap(t, dev.last().Body)
	if body["is_joint_angle"] != false {
		t.Errorf("is_joint_angle = %v, want false", body["is_joint_angle"])
	}
	if body["smooth_move_to_next"] != 1.0 {
		t.Errorf("smooth_move_to_next = %v, want 1", body["smooth_move_to_next"])
	}
	b, ok := body["base"].([]any)
	if !ok || len(b) != 6 || b[0] != 0.3 {
		t.Errorf("base = %v", body["base"])
	}
}

func TestMove_DeviceRejects(t *testing.T) {
	dev := newFakeDevice(t)
	dev.handle("movej", func(json.RawMessage) (int, any) { return 3002, nil })

	err := dev.robot().MoveJ(context.Background(), pose.NewCartesian(-0.54, -0.2, 0.117, 0, 1.57, 1.57), MoveParams{})
	var devErr *Error
	if !errors.As(err, &devErr) || devErr.Code != 3002 {
		t.Errorf("expected device error 3002, got %v", err)
	}
}

func TestTelemetry(t *testing.T) {
	dev := newFakeDevice(t)
	dev.handle("robot_data", func(json.RawMessage) (int, any) {
		return 0, map[string]any{
			"robot_mode":      5,
			"actual_joint":    []float64{0, -1.2, 0.5, 0, 0.8, 0},
			"target_joint":    []float64{0, -1.2, 0.5, 0, 0.8, 0.1},
			"actual_tcp_pose": []float64{0.3, 0.1, 0.4, 0, 0, 3.14},
			"target_tcp_pose": []float64{0.3, 0.1, 0.5, 0, 0, 3.14},
			"temperature":     []float64{30, 31},
		}
	})

	r := dev.robot()
	ctx := context.Background()

	mode, err := r.RobotMode(ctx)
	if err != nil || mode != RobotIdle {
		t.Errorf("RobotMode() = %v, %v", mode, err)
	}

	aj, err := r.ActualJointPositions(ctx)
	if err != nil || !aj.Equal(pose.NewJoint(0, -1.2, 0.5, 0, 0.8, 0)) {
		t.Errorf("ActualJointPositions() = %v, %v", aj, err)
	}
	tj, err := r.TargetJointPositions(ctx)
	if err != nil || tj.Joint(5) != 0.1 {
		t.Errorf("TargetJointPositions() = %v, %v", tj, err)
	}
	ap, err := r.ActualTCPPose(ctx)
	if err != nil || !ap.Equal(pose.NewCartesian(0.3, 0.1, 0.4, 0, 0, 3.14)) {
		t.Errorf("ActualTCPPose() = %v, %v", ap, err)
	}
	tp, err := r.TargetTCPPose(ctx)
	if err != nil || tp.Z != 0.5 {
		t.Errorf("TargetTCPPose() = %v, %v", tp, err)
	}

	d, err := r.RobotData(ctx)
	if err != nil {
		t.Fatalf("RobotData failed: %v", err)
	}
	if !strings.Contains(string(d.Raw), "temperature") {
		t.Error("raw snapshot should keep undecoded fields")
	}
}

func TestClaw(t *testing.T) {
	dev := newFakeDevice(t)
	dev.handle("get_claw_ai", func(json.RawMessage) (int, any) {
		return 0, map[string]any{"value": 12.5}
	})

	r := dev.robot()
	ctx := context.Background()

	tests := []struct {
		channel string
		want    string
	}{
		{"amplitude", "Amplitude"},
		{"FORCE", "Force"},
		{"Weight", "Weight"},
		{"bogus", "Amplitude"},
		{"", "Amplitude"},
	}
	for _, tt := range tests {
		v, err := r.ClawAI(ctx, tt.channel)
		if err != nil || v != 12.5 {
			t.Errorf("ClawAI(%q) = %v, %v", tt.channel, v, err)
		}
		if body := decodeMap(t, dev.last().Body); body["type"] != tt.want {
			t.Errorf("ClawAI(%q) sent type %v, want %s", tt.channel, body["type"], tt.want)
		}
	}

	if err := r.SetClawAO(ctx, "Amplitude", 100); err != nil {
		t.Fatalf("SetClawAO failed: %v", err)
	}
	body := decodeMap(t, dev.last().Body)
	if body["type"] != "Amplitude" || body["value"] != 100.0 {
		t.Errorf("set_claw_ao body = %v", body)
	}
}

func TestLogStreamAddr(t *testing.T) {
	tests := []struct {
		addr string
		port int
		want string
	}{
		{"192.168.3.218", DefaultLogPort, "192.168.3.218:5180"},
		{"127.0.0.1:8080", 9000, "127.0.0.1:9000"},
		{"robot.local", 5180, "robot.local:5180"},
	}
	for _, tt := range tests {
		r := NewRobot(tt.addr, WithLogPort(tt.port))
		if got := r.logStreamAddr(); got != tt.want {
			t.Errorf("logStreamAddr(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
