/*
 * driver - transaction-sequencing façade over a RawDriver.
 *
 * Copyright (c) 2026, the axiscore authors.
 */

package driver

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Facade adapts a RawDriver into the Driver interface package axis calls,
// building the fixed command sequences §4.5 specifies. A single bad
// primitive inside a compound command does not stop the rest of the
// transaction from being issued: every primitive's error is combined with
// multierr so a caller can see everything that went wrong with one Move.
type Facade struct {
	Raw RawDriver
}

// NewFacade wraps raw as the axis-facing Driver.
func NewFacade(raw RawDriver) *Facade {
	return &Facade{Raw: raw}
}

func (f *Facade) Stop(ctx context.Context) error           { return f.Raw.Stop(ctx) }
func (f *Facade) LoadPos(ctx context.Context, p float64) error { return f.Raw.LoadPos(ctx, p) }
func (f *Facade) GetInfo(ctx context.Context) error {
	err := f.Raw.GetInfo(ctx)
	if errors.Is(err, ErrUnsupported) {
		// §7: "Unsupported driver op ... silently downgraded".
		return nil
	}
	return err
}
func (f *Facade) SetHighLimit(ctx context.Context, v float64) error {
	return f.Raw.SetHighLimit(ctx, v)
}
func (f *Facade) SetLowLimit(ctx context.Context, v float64) error {
	return f.Raw.SetLowLimit(ctx, v)
}
func (f *Facade) SetEncRatio(ctx context.Context, num, den int) error {
	return f.Raw.SetEncRatio(ctx, num, den)
}
func (f *Facade) EnableTorque(ctx context.Context) error  { return f.Raw.EnableTorque(ctx) }
func (f *Facade) DisableTorque(ctx context.Context) error { return f.Raw.DisableTorque(ctx) }
func (f *Facade) SetGainP(ctx context.Context, c float64) error { return f.Raw.SetPGain(ctx, c) }
func (f *Facade) SetGainI(ctx context.Context, c float64) error { return f.Raw.SetIGain(ctx, c) }
func (f *Facade) SetGainD(ctx context.Context, c float64) error { return f.Raw.SetDGain(ctx, c) }

func (f *Facade) UpdateValues(ctx context.Context) (UpdateResult, Status, *NewLimitsInfo, error) {
	return f.Raw.UpdateValues(ctx)
}

// clampVel replaces vel with vbase+1 when vel<=vbase, per §4.5.
func clampVel(vel, vbase float64) float64 {
	if vel <= vbase {
		return vbase + 1
	}
	return vel
}

func (f *Facade) MoveAbs(ctx context.Context, vel, vbase, accel, target float64) error {
	vel = clampVel(vel, vbase)
	tx, err := f.Raw.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin move-abs transaction")
	}
	var errs error
	errs = multierr.Append(errs, tx.SetVelocity(vel))
	errs = multierr.Append(errs, tx.SetVelBase(vbase))
	if accel > 0 {
		errs = multierr.Append(errs, tx.SetAccel(accel))
	}
	errs = multierr.Append(errs, tx.MoveAbs(target))
	errs = multierr.Append(errs, tx.Go())
	errs = multierr.Append(errs, tx.End())
	return errs
}

func (f *Facade) MoveRel(ctx context.Context, vel, vbase, accel, delta float64) error {
	vel = clampVel(vel, vbase)
	tx, err := f.Raw.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin move-rel transaction")
	}
	var errs error
	errs = multierr.Append(errs, tx.SetVelocity(vel))
	errs = multierr.Append(errs, tx.SetVelBase(vbase))
	if accel > 0 {
		errs = multierr.Append(errs, tx.SetAccel(accel))
	}
	errs = multierr.Append(errs, tx.MoveRel(delta))
	errs = multierr.Append(errs, tx.Go())
	errs = multierr.Append(errs, tx.End())
	return errs
}

func (f *Facade) Jog(ctx context.Context, vel, vbase, accel float64) error {
	tx, err := f.Raw.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin jog transaction")
	}
	var errs error
	errs = multierr.Append(errs, tx.SetVelBase(vbase))
	if accel > 0 {
		errs = multierr.Append(errs, tx.SetAccel(accel))
	}
	errs = multierr.Append(errs, tx.Jog(vel))
	errs = multierr.Append(errs, tx.End())
	return errs
}

func (f *Facade) UpdateJog(ctx context.Context, vel float64) error {
	tx, err := f.Raw.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin update-jog transaction")
	}
	var errs error
	errs = multierr.Append(errs, tx.UpdateJog(vel))
	errs = multierr.Append(errs, tx.End())
	return errs
}

func (f *Facade) homeSequence(ctx context.Context, vel, vbase, accel float64, fwd bool) error {
	tx, err := f.Raw.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin home transaction")
	}
	var errs error
	errs = multierr.Append(errs, tx.SetVelocity(vel))
	errs = multierr.Append(errs, tx.SetVelBase(vbase))
	if accel > 0 {
		errs = multierr.Append(errs, tx.SetAccel(accel))
	}
	if fwd {
		errs = multierr.Append(errs, tx.HomeFwd())
	} else {
		errs = multierr.Append(errs, tx.HomeRev())
	}
	errs = multierr.Append(errs, tx.Go())
	errs = multierr.Append(errs, tx.End())
	return errs
}

func (f *Facade) HomeFwd(ctx context.Context, vel, vbase, accel float64) error {
	return f.homeSequence(ctx, vel, vbase, accel, true)
}

func (f *Facade) HomeRev(ctx context.Context, vel, vbase, accel float64) error {
	return f.homeSequence(ctx, vel, vbase, accel, false)
}
