package lebai

import (
	"context"
	"encoding/json"
	"fmt"
)

// IODevice addresses one IO bank. Every bank speaks the same four
// operations; only the remote command names differ per device class.
type IODevice struct {
	robot Actioner
	kind  IODeviceType
	id    int
	cmds  ioCommands
}

// NewIODevice binds an IO bank of the given class. id selects the module
// for external devices and is sent as 0 otherwise by convention.
func NewIODevice(a Actioner, kind IODeviceType, id int) (*IODevice, error) {
	cmds, ok := ioCommandTable[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDevice, kind)
	}
	return &IODevice{robot: a, kind: kind, id: id, cmds: cmds}, nil
}

// Type returns the device class.
func (d *IODevice) Type() IODeviceType { return d.kind }

// ID returns the device id.
func (d *IODevice) ID() int { return d.id }

type pinRequest struct {
	ID    int  `json:"id"`
	Pin   int  `json:"pin"`
	Value *any `json:"value,omitempty"`
}

type pinValue[T any] struct {
	Value T `json:"value"`
}

func (d *IODevice) set(ctx context.Context, cmd string, pin int, value any) error {
	_, err := d.robot.Action(ctx, cmd, pinRequest{ID: d.id, Pin: pin, Value: &value})
	return err
}

func getPin[T any](ctx context.Context, d *IODevice, cmd string, pin int) (T, error) {
	var res pinValue[T]
	raw, err := d.robot.Action(ctx, cmd, pinRequest{ID: d.id, Pin: pin})
	if err != nil {
		return res.Value, err
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return res.Value, fmt.Errorf("lebai [%s]: decode: %w", cmd, err)
	}
	return res.Value, nil
}

// SetDO sets a digital output pin.
func (d *IODevice) SetDO(ctx context.Context, pin, value int) error {
	return d.set(ctx, d.cmds.setDO, pin, value)
}

// SetAO sets an analog output pin.
func (d *IODevice) SetAO(ctx context.Context, pin int, value float64) error {
	return d.set(ctx, d.cmds.setAO, pin, value)
}

// DI reads a digital input pin.
func (d *IODevice) DI(ctx context.Context, pin int) (int, error) {
	return getPin[int](ctx, d, d.cmds.getDI, pin)
}

// AI reads an analog input pin.
func (d *IODevice) AI(ctx context.Context, pin int) (float64, error) {
	return getPin[float64](ctx, d, d.cmds.getAI, pin)
}

// Host returns the IO bank of the controller chassis.
func (r *Robot) Host() *IODevice { return r.host }

// Flange returns the IO bank of the tool flange.
func (r *Robot) Flange() *IODevice { return r.flange }

// External returns the Modbus-TCP module with the given id, creating it on
// first use. The same *IODevice is returned for the lifetime of r.
func (r *Robot) External(id int) *IODevice {
	r.extMu.Lock()
	defer r.extMu.Unlock()

	if d, ok := r.externals[id]; ok {
		return d
	}
	d := &IODevice{robot: r, kind: IOModbusTCP, id: id, cmds: ioCommandTable[IOModbusTCP]}
	r.externals[id] = d
	return d
}

type clawRequest struct {
	Type  ClawChannel `json:"type"`
	Value *float64    `json:"value,omitempty"`
}

// ClawAI reads a gripper analog channel ("amplitude", "force" or "weight",
// case-insensitive; anything else reads amplitude).
func (r *Robot) ClawAI(ctx context.Context, channel string) (float64, error) {
	var res pinValue[float64]
	err := r.actionInto(ctx, "get_claw_ai", clawRequest{Type: ParseClawChannel(channel)}, &res)
	return res.Value, err
}

// SetClawAO writes a gripper analog channel.
func (r *Robot) SetClawAO(ctx context.Context, channel string, value float64) error {
	_, err := r.Action(ctx, "set_claw_ao", clawRequest{Type: ParseClawChannel(channel), Value: &value})
	return err
}
