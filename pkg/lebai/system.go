package lebai

import "context"

// StartSys powers the arm and releases the brakes.
func (r *Robot) StartSys(ctx context.Context) error {
	_, err := r.ActionSettled(ctx, "start_sys", nil)
	return err
}

// StopSys engages the brakes and powers the arm off.
func (r *Robot) StopSys(ctx context.Context) error {
	_, err := r.ActionSettled(ctx, "stop_sys", nil)
	return err
}

// Powerdown shuts the controller down.
func (r *Robot) Powerdown(ctx context.Context) error {
	_, err := r.ActionSettled(ctx, "powerdown", nil)
	return err
}

// Stop stops the running program.
func (r *Robot) Stop(ctx context.Context) error {
	_, err := r.ActionSettled(ctx, "stop", nil)
	return err
}

// EStop triggers an emergency stop.
func (r *Robot) EStop(ctx context.Context) error {
	_, err := r.ActionSettled(ctx, "estop", nil)
	return err
}

// TeachMode enables hand guiding.
func (r *Robot) TeachMode(ctx context.Context) error {
	_, err := r.ActionSettled(ctx, "teach_mode", nil)
	return err
}

// EndTeachMode leaves hand guiding.
func (r *Robot) EndTeachMode(ctx context.Context) error {
	_, err := r.ActionSettled(ctx, "end_teach_mode", nil)
	return err
}

// Resume resumes a paused program.
func (r *Robot) Resume(ctx context.Context) error {
	_, err := r.ActionSettled(ctx, "resume", nil)
	return err
}

// Pause pauses the running program.
func (r *Robot) Pause(ctx context.Context) error {
	_, err := r.ActionSettled(ctx, "pause", nil)
	return err
}

// SystemCommands maps the names accepted by the gateway and CLI to the
// corresponding system operation.
func (r *Robot) SystemCommands() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"start_sys":      r.StartSys,
		"stop_sys":       r.StopSys,
		"powerdown":      r.Powerdown,
		"stop":           r.Stop,
		"estop":          r.EStop,
		"teach_mode":     r.TeachMode,
		"end_teach_mode": r.EndTeachMode,
		"resume":         r.Resume,
		"pause":          r.Pause,
		"stop_move":      r.StopMove,
	}
}
