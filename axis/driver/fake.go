/*
 * driver - a simulated RawDriver for tests and the demo binary.
 *
 * Copyright (c) 2026, the axiscore authors.
 */

package driver

import (
	"context"
	"math"
	"sync"
	"time"
)

// Fake is a simulated stepper/servo driver implementing RawDriver. It
// moves at a constant raw velocity toward its target and reports Moving
// until it arrives, mirroring the busy-flag/async-completion shape the
// teacher's tape and line-printer device models use: a command sets a
// busy flag and schedules its own completion rather than blocking the
// caller.
type Fake struct {
	mu sync.Mutex

	pos    int64
	enc    int64
	target int64
	rawVel float64 // raw units / simulated second, 0 when idle

	dir      uint8
	plusLS   bool
	minusLS  bool
	homeSW   bool
	moving   bool

	highLimit, lowLimit float64
	encNum, encDen      int
	pGain, iGain, dGain float64
	torqueEnabled       bool

	// tick is how often the simulation advances; exposed for tests that
	// want faster-than-realtime motion.
	tick time.Duration

	stop   chan struct{}
	ticker *time.Ticker
}

// NewFake returns an idle simulated driver starting at raw position 0.
func NewFake() *Fake {
	return &Fake{
		encNum: 1, encDen: 1,
		tick: 10 * time.Millisecond,
	}
}

// WithTick overrides the simulation step interval (tests only).
func (f *Fake) WithTick(d time.Duration) *Fake {
	f.tick = d
	return f
}

func (f *Fake) Begin(ctx context.Context) (Transaction, error) {
	return &fakeTxn{f: f}, nil
}

func (f *Fake) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawVel = 0
	f.moving = false
	f.target = f.pos
	return nil
}

func (f *Fake) LoadPos(ctx context.Context, newPos float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = int64(math.Round(newPos))
	f.enc = f.pos
	f.target = f.pos
	f.moving = false
	return nil
}

func (f *Fake) GetInfo(ctx context.Context) error { return nil }

func (f *Fake) SetHighLimit(ctx context.Context, v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.highLimit = v
	return nil
}

func (f *Fake) SetLowLimit(ctx context.Context, v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lowLimit = v
	return nil
}

func (f *Fake) SetEncRatio(ctx context.Context, num, den int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encNum, f.encDen = num, den
	return nil
}

func (f *Fake) EnableTorque(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.torqueEnabled = true
	return nil
}

func (f *Fake) DisableTorque(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.torqueEnabled = false
	return nil
}

func (f *Fake) SetPGain(ctx context.Context, c float64) error { f.pGain = c; return nil }
func (f *Fake) SetIGain(ctx context.Context, c float64) error { f.iGain = c; return nil }
func (f *Fake) SetDGain(ctx context.Context, c float64) error { f.dGain = c; return nil }

// step advances the simulation by one tick: move pos toward target at
// rawVel, clamp on arrival, and flip the limit switches at +/-1e6.
func (f *Fake) step() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.moving {
		return
	}
	delta := f.rawVel * f.tick.Seconds()
	remaining := float64(f.target - f.pos)
	if math.Abs(delta) >= math.Abs(remaining) || delta == 0 {
		f.pos = f.target
		f.moving = false
		f.rawVel = 0
	} else {
		f.pos += int64(math.Round(delta))
	}
	f.enc = f.pos
	if delta >= 0 {
		f.dir = 1
	} else {
		f.dir = 0
	}
	const travelLimit = 1_000_000
	f.plusLS = f.pos >= travelLimit
	f.minusLS = f.pos <= -travelLimit
	f.homeSW = f.pos == 0
}

func (f *Fake) beginMotion(target int64, vel float64) {
	f.mu.Lock()
	f.target = target
	f.rawVel = vel
	f.moving = vel != 0 && target != f.pos
	f.mu.Unlock()
	f.ensureRunning()
}

func (f *Fake) beginJog(vel float64) {
	f.mu.Lock()
	if vel >= 0 {
		f.target = f.pos + 1_000_000_000
	} else {
		f.target = f.pos - 1_000_000_000
	}
	f.rawVel = vel
	f.moving = vel != 0
	f.mu.Unlock()
	f.ensureRunning()
}

func (f *Fake) ensureRunning() {
	f.mu.Lock()
	running := f.ticker != nil
	f.mu.Unlock()
	if running {
		return
	}
	f.mu.Lock()
	f.ticker = time.NewTicker(f.tick)
	f.stop = make(chan struct{})
	ticker := f.ticker
	stop := f.stop
	f.mu.Unlock()
	go func() {
		for {
			select {
			case <-ticker.C:
				f.step()
			case <-stop:
				return
			}
		}
	}()
}

// Close stops the simulation's background ticker goroutine, if running.
func (f *Fake) Close() {
	f.mu.Lock()
	ticker, stop := f.ticker, f.stop
	f.ticker, f.stop = nil, nil
	f.mu.Unlock()
	if ticker != nil {
		ticker.Stop()
	}
	if stop != nil {
		close(stop)
	}
}

// UpdateValues reports the simulated status as CallbackData; Fake never
// reports NewLimits (it has no hardware to renegotiate a travel range
// with) or NothingDone (it's cheap enough to always report fresh state).
func (f *Fake) UpdateValues(ctx context.Context) (UpdateResult, Status, *NewLimitsInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return CallbackData, Status{
		RawPos:              f.pos,
		RawEnc:              f.enc,
		Moving:              f.moving,
		RawDir:              f.dir,
		PlusLS:              f.plusLS,
		MinusLS:             f.minusLS,
		HomeSW:              f.homeSW,
		GainSupport:         true,
		EncoderPresent:      true,
		PositionMaintenance: false,
		HomeOnLimit:         false,
	}, nil, nil
}

// fakeTxn queues the handful of primitives Facade sequences into one
// transaction and commits them atomically against Fake's motion state on
// End, so a MoveAbs/Jog/Home always starts from a consistent snapshot.
type fakeTxn struct {
	f *Fake

	hasVel   bool
	vel      float64
	hasMove  bool
	absMove  bool
	target   float64
	jogVel   float64
	hasJog   bool
	hasHome  bool
	homeFwd  bool
	goCalled bool
}

func (t *fakeTxn) SetVelocity(vel float64) error { t.vel = vel; t.hasVel = true; return nil }
func (t *fakeTxn) SetVelBase(float64) error      { return nil }
func (t *fakeTxn) SetAccel(float64) error        { return nil }

func (t *fakeTxn) MoveAbs(target float64) error {
	t.hasMove, t.absMove, t.target = true, true, target
	return nil
}

func (t *fakeTxn) MoveRel(delta float64) error {
	t.f.mu.Lock()
	cur := t.f.pos
	t.f.mu.Unlock()
	t.hasMove, t.absMove, t.target = true, true, float64(cur)+delta
	return nil
}

func (t *fakeTxn) Jog(vel float64) error      { t.hasJog, t.jogVel = true, vel; return nil }
func (t *fakeTxn) UpdateJog(vel float64) error { t.hasJog, t.jogVel = true, vel; return nil }
func (t *fakeTxn) HomeFwd() error             { t.hasHome, t.homeFwd = true, true; return nil }
func (t *fakeTxn) HomeRev() error             { t.hasHome, t.homeFwd = true, false; return nil }
func (t *fakeTxn) Go() error                  { t.goCalled = true; return nil }

func (t *fakeTxn) End() error {
	switch {
	case t.hasMove:
		vel := t.vel
		if vel == 0 {
			vel = 1
		}
		if t.target < float64(t.f.pos) {
			vel = -math.Abs(vel)
		} else {
			vel = math.Abs(vel)
		}
		t.f.beginMotion(int64(math.Round(t.target)), vel)
	case t.hasJog:
		t.f.beginJog(t.jogVel)
	case t.hasHome:
		vel := t.vel
		if !t.homeFwd {
			vel = -vel
		}
		t.f.beginMotion(0, vel)
	}
	return nil
}
