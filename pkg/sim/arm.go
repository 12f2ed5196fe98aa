package sim

import (
	"encoding/json"
	"strings"

	"github.com/teslashibe/go-lebai/pkg/lebai"
)

const dof = 6

type pinKind int

const (
	digital pinKind = iota
	analog
)

// pinKey addresses one pin. Outputs are looped back to the inputs with the
// same number on the same bank.
type pinKey struct {
	bank string
	id   int
	kind pinKind
	pin  int
}

type armState struct {
	mode           lebai.RobotState
	gravity        []float64
	payloadMass    float64
	payloadCoG     []float64
	tcp            []float64
	velocityFactor int
	joints         []float64
	pose           []float64
	pins           map[pinKey]float64
	claw           map[lebai.ClawChannel]float64
}

func newArmState() armState {
	return armState{
		mode:           lebai.RobotOff,
		gravity:        lebai.DefaultGravity.Slice(),
		payloadCoG:     make([]float64, 3),
		tcp:            make([]float64, dof),
		velocityFactor: 100,
		joints:         make([]float64, dof),
		pose:           make([]float64, dof),
		pins:           make(map[pinKey]float64),
		claw:           make(map[lebai.ClawChannel]float64),
	}
}

// ready reports whether the arm accepts motion.
func (a *armState) ready() bool {
	return a.mode == lebai.RobotIdle || a.mode == lebai.RobotRunning
}

// actionTable builds the command handlers.
func (s *Simulator) actionTable() map[string]handlerFunc {
	t := map[string]handlerFunc{
		"start_sys":      s.setMode(lebai.RobotIdle),
		"stop_sys":       s.setMode(lebai.RobotOff),
		"powerdown":      s.setMode(lebai.RobotDisconnected),
		"stop":           s.setMode(lebai.RobotIdle),
		"estop":          s.setMode(lebai.RobotEStop),
		"teach_mode":     s.setMode(lebai.RobotTeaching),
		"end_teach_mode": s.setMode(lebai.RobotIdle),
		"pause":          s.setMode(lebai.RobotPaused),
		"resume":         s.setMode(lebai.RobotIdle),

		"set_gravity":         s.setGravity,
		"get_gravity":         s.getGravity,
		"set_payload":         s.setPayload,
		"get_payload":         s.getPayload,
		"set_tcp":             s.setTCP,
		"get_tcp":             s.getTCP,
		"set_velocity_factor": s.setVelocityFactor,
		"get_velocity_factor": s.getVelocityFactor,

		"movej":      s.move,
		"movel":      s.move,
		"stop_move":  s.noop,
		"robot_data": s.robotData,

		"set_claw_ao": s.setClaw,
		"get_claw_ai": s.getClaw,

		"pause_task":  s.taskCommand(pauseTask),
		"resume_task": s.taskCommand(resumeTask),
		"stop_task":   s.taskCommand(stopTask),
	}

	// Banks and their command infixes: set_do, set_flange_do, set_external_do...
	for bank, infix := range map[string]string{"host": "", "flange": "flange_", "external": "external_"} {
		t["set_"+infix+"do"] = s.setPin(bank, digital)
		t["set_"+infix+"ao"] = s.setPin(bank, analog)
		t["get_"+infix+"di"] = s.getPin(bank, digital)
		t["get_"+infix+"ai"] = s.getPin(bank, analog)
	}
	return t
}

func (s *Simulator) noop(json.RawMessage) (any, error) { return nil, nil }

func (s *Simulator) setMode(mode lebai.RobotState) handlerFunc {
	return func(json.RawMessage) (any, error) {
		s.mu.Lock()
		prev := s.arm.mode
		s.arm.mode = mode
		s.mu.Unlock()
		if prev != mode {
			s.log.Info("robot mode changed", "from", prev.String(), "to", mode.String())
		}
		return nil, nil
	}
}

type valueData[T any] struct {
	Value T `json:"value"`
}

func (s *Simulator) setGravity(data json.RawMessage) (any, error) {
	var req valueData[[]float64]
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if len(req.Value) != 3 {
		return nil, fail(CodeBadRequest, "gravity needs 3 components")
	}
	s.mu.Lock()
	s.arm.gravity = req.Value
	s.mu.Unlock()
	return nil, nil
}

func (s *Simulator) getGravity(json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{"gravity": s.arm.gravity}, nil
}

type payloadData struct {
	Mass float64   `json:"mass"`
	CoG  []float64 `json:"cog"`
}

func (s *Simulator) setPayload(data json.RawMessage) (any, error) {
	var req payloadData
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if len(req.CoG) != 3 {
		return nil, fail(CodeBadRequest, "cog needs 3 components")
	}
	s.mu.Lock()
	s.arm.payloadMass, s.arm.payloadCoG = req.Mass, req.CoG
	s.mu.Unlock()
	return nil, nil
}

func (s *Simulator) getPayload(json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return payloadData{Mass: s.arm.payloadMass, CoG: s.arm.payloadCoG}, nil
}

func (s *Simulator) setTCP(data json.RawMessage) (any, error) {
	var req valueData[[]float64]
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if len(req.Value) != dof {
		return nil, fail(CodeBadRequest, "tcp needs 6 components")
	}
	s.mu.Lock()
	s.arm.tcp = req.Value
	s.mu.Unlock()
	return nil, nil
}

func (s *Simulator) getTCP(json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return valueData[[]float64]{Value: s.arm.tcp}, nil
}

func (s *Simulator) setVelocityFactor(data json.RawMessage) (any, error) {
	var req valueData[int]
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if req.Value < 0 || req.Value > 100 {
		return nil, fail(CodeBadRequest, "velocity factor out of range", req.Value)
	}
	s.mu.Lock()
	s.arm.velocityFactor = req.Value
	s.mu.Unlock()
	return nil, nil
}

func (s *Simulator) getVelocityFactor(json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return valueData[int]{Value: s.arm.velocityFactor}, nil
}

// move jumps straight to the target; actual and target positions agree.
func (s *Simulator) move(data json.RawMessage) (any, error) {
	var req struct {
		PoseTo       []float64 `json:"pose_to"`
		IsJointAngle bool      `json:"is_joint_angle"`
	}
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.arm.ready() {
		return nil, fail(CodeNotReady, s.arm.mode.String())
	}
	if req.IsJointAngle {
		if len(req.PoseTo) == 0 {
			return nil, fail(CodeBadRequest, "empty joint target")
		}
		s.arm.joints = req.PoseTo
		return nil, nil
	}
	if len(req.PoseTo) < dof {
		return nil, fail(CodeBadRequest, "cartesian target needs 6 components")
	}
	s.arm.pose = req.PoseTo[:dof]
	return nil, nil
}

func (s *Simulator) robotData(json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"robot_mode":      int(s.arm.mode),
		"actual_joint":    s.arm.joints,
		"target_joint":    s.arm.joints,
		"actual_tcp_pose": s.arm.pose,
		"target_tcp_pose": s.arm.pose,
		"velocity_factor": s.arm.velocityFactor,
	}, nil
}

type pinRequest struct {
	ID    int      `json:"id"`
	Pin   int      `json:"pin"`
	Value *float64 `json:"value"`
}

func (s *Simulator) setPin(bank string, kind pinKind) handlerFunc {
	return func(data json.RawMessage) (any, error) {
		var req pinRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		if req.Value == nil {
			return nil, fail(CodeBadRequest, "missing value")
		}
		s.mu.Lock()
		s.arm.pins[pinKey{bank: bank, id: req.ID, kind: kind, pin: req.Pin}] = *req.Value
		s.mu.Unlock()
		return nil, nil
	}
}

func (s *Simulator) getPin(bank string, kind pinKind) handlerFunc {
	return func(data json.RawMessage) (any, error) {
		var req pinRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		s.mu.Lock()
		v := s.arm.pins[pinKey{bank: bank, id: req.ID, kind: kind, pin: req.Pin}]
		s.mu.Unlock()
		if kind == digital {
			return valueData[int]{Value: int(v)}, nil
		}
		return valueData[float64]{Value: v}, nil
	}
}

type clawRequest struct {
	Type  string   `json:"type"`
	Value *float64 `json:"value"`
}

func (s *Simulator) setClaw(data json.RawMessage) (any, error) {
	var req clawRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if req.Value == nil {
		return nil, fail(CodeBadRequest, "missing value")
	}
	ch := lebai.ParseClawChannel(req.Type)
	s.mu.Lock()
	s.arm.claw[ch] = *req.Value
	s.mu.Unlock()
	return nil, nil
}

func (s *Simulator) getClaw(data json.RawMessage) (any, error) {
	var req clawRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Type) == "" {
		return nil, fail(CodeBadRequest, "missing type")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return valueData[float64]{Value: s.arm.claw[lebai.ParseClawChannel(req.Type)]}, nil
}
