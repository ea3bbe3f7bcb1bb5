/*
 * axis - Record: the axis (motor) coordinator's data model and field-write
 * API (§3 of the specification).
 *
 * Copyright (c) 2026, the axiscore authors.
 */

package axis

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/axiscore/axis/axis/driver"
	"github.com/axiscore/axis/axis/schedule"
)

// lastValues is the rollback shadow of §3 and §4.3: it holds VAL/DVAL/RVAL
// as of the last target write (stashLast) or the last pass that settled
// (syncLast), so a limit violation can revert the target cleanly. It is
// not refreshed on every pass; the post-processor compares against
// ppStartVAL instead.
type lastValues struct {
	val, dval float64
	rval      int64
}

// Record is one axis's motion coordinator. All fields are written through
// the Set* methods (or the driver-callback/scheduler entry points), which
// serialise every stimulus through process().
type Record struct {
	Name string

	drv   driver.Driver
	sched *schedule.Registry
	schedID int
	log   *slog.Logger

	pact atomic.Bool

	// --- coordinates ---
	VAL, RBV   float64
	DVAL, DRBV float64
	RVAL       int64
	RRBV, REP  int64
	OFF        float64
	DIR        Direction
	HLM, LLM   float64
	DHLM, DLLM float64

	// --- parameter family ---
	MRES, ERES           float64
	SREV                 float64
	UREV                 float64
	S, SBAS, SMAX, SBAK  float64
	VELO, VBAS, VMAX, BVEL float64
	JVEL, JAR, HVEL      float64
	ACCL, BACC           float64
	BDST                 float64
	SDBD, RDBD           float64
	RTRY                 int
	RCNT                 int
	RMOD                 RetryMode
	MISS                 bool
	DLY                  float64

	// --- control / operator state ---
	SET  SetMode
	FOFF FreezeOffset
	SPMG Stance

	JOGF, JOGR bool
	HOMF, HOMR bool
	TWF, TWR   bool
	TWV        float64
	RLV        float64

	UEIP              bool // use encoder readback for DRBV
	ReadbackLinkInUse bool // MoveRel path uses a foreign readback link

	// StopOnProblem requests an immediate stop whenever SlipStall or Fault
	// is newly asserted by a driver callback (§7 "stop-on-problem").
	StopOnProblem bool

	DMOV bool
	MOVN bool
	CDIR uint8
	LVIO bool
	MIP  MIP
	PP   bool
	STUP StupState

	HLSV, LLSV, MISV Severity

	// --- hooks ---
	ForwardReadback func(rbv float64)
	ForwardScan     func()
	OnChange        Subscriber
	ReadbackSource  func() float64 // closed-loop input source (§4.2 item 4); only used once EnableClosedLoop has set it

	closedLoop bool

	// --- hardware status, mirrored from the last driver callback ---
	plusLS, minusLS, homeSW          bool
	slipStall, commError, fault      bool
	gainSupport, encoderPresent      bool
	positionMaintenance              bool
	homeOnLimit                      bool
	lastRawStatus                    driver.Status

	udf      bool
	severity Severity

	changes changeTracker
	last    lastValues

	// --- transient per-pass intent, set by setters/do_work and consumed
	// within the same or a following processing pass ---
	stopRequested     bool
	spmgWentGo        bool
	valWritten        bool
	rawWritten        bool
	paramsChanged     bool
	stopLayeredOnHome bool
	needsBacklashLeg  bool
	jogStopDVAL       float64
	problemRaised     bool

	// ppStartVAL is VAL at the moment PP was armed, so the post-processor
	// can tell a genuinely new supervisor write (VAL moved since) from the
	// same multi-leg operation still running its course (§4.6).
	ppStartVAL float64

	// reported holds the tracked fields as of the end of the last pass (or
	// New), so a field a setter wrote before calling Process still shows
	// up as changed.
	reported trackedSnapshot
}

// New constructs a Record with the power-up defaults of §3: DIR=Pos,
// SET=Use, FOFF=Variable, SPMG=Go, unit motor resolution, RMOD=Default,
// and an undefined (UDF) readback until InitFromDriver succeeds. schedID
// must be unique among Records sharing sched.
func New(name string, drv driver.Driver, sched *schedule.Registry, schedID int, log *slog.Logger) *Record {
	r := &Record{
		Name:    name,
		drv:     drv,
		sched:   sched,
		schedID: schedID,
		log:     log,

		DIR:  DirPos,
		SET:  Use,
		FOFF: Variable,
		SPMG: StanceGo,

		MRES: 1, ERES: 1, SREV: 1,
		S: 1, SBAS: 0.1, SMAX: 10, SBAK: 1,
		JVEL: 1, JAR: 10, HVEL: 1,
		ACCL: 0.2, BACC: 0.2,

		RTRY: 3,
		RMOD: RetryDefault,

		HLSV: SeverityMajor,
		LLSV: SeverityMajor,
		MISV: SeverityMinor,

		DMOV: true,
		udf:  true,
	}
	r.recomputeVelocities()
	r.SDBD, r.RDBD = normalizeDeadband(0, 0, r.MRES)
	r.HLM, r.LLM = UserLimits(r.DHLM, r.DLLM, r.OFF, r.DIR)
	r.reported = r.snapshotTracked()
	return r
}

// InitFromDriver performs the second phase of the two-phase boot sequence
// (§2): it queries the driver once to seed DRBV/RBV/RRBV/REP from real
// hardware state before the record is considered defined.
func (r *Record) InitFromDriver(ctx context.Context) error {
	result, status, nl, err := r.drv.UpdateValues(ctx)
	if err != nil {
		return errors.Wrap(err, "initial driver query")
	}
	r.applyStatus(status)
	r.projectStatusForce(result, nl)
	r.VAL = r.RBV
	r.DVAL = r.DRBV
	r.RVAL = ToRaw(r.DVAL, r.MRES)
	r.last.val, r.last.dval, r.last.rval = r.VAL, r.DVAL, r.RVAL
	r.udf = false
	return nil
}

func (r *Record) stashLast() {
	r.last.val, r.last.dval, r.last.rval = r.VAL, r.DVAL, r.RVAL
}

// syncLast resynchronises the rollback shadow to the record's current
// values, used once a pass has settled on them as final (§4.3's
// "rollback last.*" step, which commits rather than undoes).
func (r *Record) syncLast() {
	r.last.val, r.last.dval, r.last.rval = r.VAL, r.DVAL, r.RVAL
}

// --- field-write API -------------------------------------------------

// SetVAL writes a new user-coordinate target (§4.2 item 11 / §4.3).
func (r *Record) SetVAL(ctx context.Context, v float64) {
	r.stashLast()
	r.VAL = v
	r.DVAL = ToDial(v, r.OFF, r.DIR)
	r.RVAL = ToRaw(r.DVAL, r.MRES)
	r.valWritten = true
	r.Process(ctx, StimulusWrite)
}

// SetRVAL writes a new raw-step target (§4.2 item 10).
func (r *Record) SetRVAL(ctx context.Context, v int64) {
	r.stashLast()
	r.RVAL = v
	r.rawWritten = true
	r.Process(ctx, StimulusWrite)
}

// SetRLV requests a relative move of delta user units (§4.2 item 9).
func (r *Record) SetRLV(ctx context.Context, delta float64) {
	r.RLV = delta
	r.Process(ctx, StimulusWrite)
}

// Tweak issues a single tweak-forward (fwd=true) or tweak-reverse move of
// TWV user units (§4.2 item 8).
func (r *Record) Tweak(ctx context.Context, fwd bool) {
	if fwd {
		r.TWF = true
	} else {
		r.TWR = true
	}
	r.Process(ctx, StimulusWrite)
}

// SetOFF writes a new user-coordinate offset (§3). FOFF=Frozen keeps DVAL
// fixed and re-derives VAL instead; FOFF=Variable keeps VAL fixed and
// re-derives DVAL.
func (r *Record) SetOFF(ctx context.Context, off float64) {
	r.OFF = off
	if r.FOFF == Frozen {
		r.VAL = ToUser(r.DVAL, r.OFF, r.DIR)
	} else {
		r.DVAL = ToDial(r.VAL, r.OFF, r.DIR)
		r.RVAL = ToRaw(r.DVAL, r.MRES)
	}
	r.HLM, r.LLM = UserLimits(r.DHLM, r.DLLM, r.OFF, r.DIR)
	r.Process(ctx, StimulusWrite)
}

// SetDIR flips the user-coordinate sign convention, remapping VAL and the
// user soft limits the same way SetOFF does for OFF (§3).
func (r *Record) SetDIR(ctx context.Context, dir Direction) {
	r.DIR = dir
	if r.FOFF == Frozen {
		r.VAL = ToUser(r.DVAL, r.OFF, r.DIR)
	} else {
		r.DVAL = ToDial(r.VAL, r.OFF, r.DIR)
		r.RVAL = ToRaw(r.DVAL, r.MRES)
	}
	r.HLM, r.LLM = UserLimits(r.DHLM, r.DLLM, r.OFF, r.DIR)
	r.Process(ctx, StimulusWrite)
}

// SetSET toggles between Use (motion mode) and Set (recalibration mode).
func (r *Record) SetSET(ctx context.Context, mode SetMode) {
	r.SET = mode
	r.Process(ctx, StimulusWrite)
}

// SetFOFF toggles whether OFF is frozen across DIR/OFF writes.
func (r *Record) SetFOFF(ctx context.Context, mode FreezeOffset) {
	r.FOFF = mode
	r.Process(ctx, StimulusWrite)
}

// SetSPMG changes the operator stance (Stop/Pause/Move/Go), §4.2 item 2.
func (r *Record) SetSPMG(ctx context.Context, s Stance) {
	if s == StanceGo && r.SPMG != StanceGo {
		r.spmgWentGo = true
	}
	r.SPMG = s
	r.Process(ctx, StimulusWrite)
}

// Stop requests an immediate, one-shot stop independent of SPMG (§4.2
// item 2, §5).
func (r *Record) Stop(ctx context.Context) {
	r.stopRequested = true
	r.Process(ctx, StimulusWrite)
}

// SetJog starts (hold=true) or releases (hold=false) a jog in the given
// direction (§4.2 items 6-7).
func (r *Record) SetJog(ctx context.Context, fwd, hold bool) {
	if fwd {
		r.JOGF = hold
	} else {
		r.JOGR = hold
	}
	r.Process(ctx, StimulusWrite)
}

// SetHome requests (fwd=true for forward) a home sequence (§4.2 item 5).
func (r *Record) SetHome(ctx context.Context, fwd bool) {
	if fwd {
		r.HOMF = true
	} else {
		r.HOMR = true
	}
	r.Process(ctx, StimulusWrite)
}

// SetMRES writes motor resolution, re-running the parameter family and
// the encoder-ratio/deadband recompute of §4.2 item 3.
func (r *Record) SetMRES(ctx context.Context, mres float64) {
	r.MRES = mres
	r.recomputeVelocities()
	r.paramsChanged = true
	r.Process(ctx, StimulusWrite)
}

// SetERES writes encoder resolution (§4.2 item 3).
func (r *Record) SetERES(ctx context.Context, eres float64) {
	r.ERES = eres
	r.paramsChanged = true
	r.Process(ctx, StimulusWrite)
}

// SetUEIP toggles whether DRBV is derived from the encoder (REP·ERES)
// instead of the commanded position (RRBV·MRES).
func (r *Record) SetUEIP(ctx context.Context, use bool) {
	r.UEIP = use
	r.paramsChanged = true
	r.Process(ctx, StimulusWrite)
}

// SetSpeeds writes the rev/sec speed family (S/SBAS/SMAX/SBAK) in one
// shot, since they are only ever meaningful together.
func (r *Record) SetSpeeds(ctx context.Context, s, sbas, smax, sbak float64) {
	r.S, r.SBAS, r.SMAX, r.SBAK = s, sbas, smax, sbak
	r.recomputeVelocities()
	r.Process(ctx, StimulusWrite)
}

// SetSREV writes steps/revolution, re-deriving UREV and the velocity
// family.
func (r *Record) SetSREV(ctx context.Context, srev float64) {
	r.SREV = srev
	r.recomputeVelocities()
	r.Process(ctx, StimulusWrite)
}

// SetJVEL/SetJAR/SetHVEL/SetACCL/SetBACC/SetBDST/SetRTRY/SetRMOD/SetDLY
// write the remaining motion-profile parameters directly; none of them
// feed back into recomputeVelocities.
func (r *Record) SetJVEL(ctx context.Context, v float64) { r.JVEL = v; r.Process(ctx, StimulusWrite) }
func (r *Record) SetJAR(ctx context.Context, v float64)  { r.JAR = v; r.Process(ctx, StimulusWrite) }
func (r *Record) SetHVEL(ctx context.Context, v float64) { r.HVEL = v; r.Process(ctx, StimulusWrite) }
func (r *Record) SetACCL(ctx context.Context, v float64) { r.ACCL = v; r.Process(ctx, StimulusWrite) }
func (r *Record) SetBACC(ctx context.Context, v float64) { r.BACC = v; r.Process(ctx, StimulusWrite) }
func (r *Record) SetBDST(ctx context.Context, v float64) { r.BDST = v; r.Process(ctx, StimulusWrite) }
func (r *Record) SetRTRY(ctx context.Context, v int)      { r.RTRY = v; r.Process(ctx, StimulusWrite) }
func (r *Record) SetRMOD(ctx context.Context, v RetryMode) {
	r.RMOD = v
	r.Process(ctx, StimulusWrite)
}
func (r *Record) SetDLY(ctx context.Context, v float64) { r.DLY = v; r.Process(ctx, StimulusWrite) }

// SetSDBD/SetRDBD write the deadband pair, enforcing SDBD≤RDBD.
func (r *Record) SetSDBD(ctx context.Context, v float64) {
	r.SDBD, r.RDBD = normalizeDeadband(v, r.RDBD, r.MRES)
	r.Process(ctx, StimulusWrite)
}

func (r *Record) SetRDBD(ctx context.Context, v float64) {
	r.RDBD = v
	r.SDBD, r.RDBD = normalizeDeadband(r.SDBD, r.RDBD, r.MRES)
	r.Process(ctx, StimulusWrite)
}

// SetDHLM/SetDLLM write the dial soft travel limits, re-deriving the
// user-coordinate HLM/LLM and pushing the new limit to the driver.
func (r *Record) SetDHLM(ctx context.Context, v float64) {
	r.DHLM = v
	r.HLM, r.LLM = UserLimits(r.DHLM, r.DLLM, r.OFF, r.DIR)
	_ = r.drv.SetHighLimit(ctx, r.DHLM)
	r.Process(ctx, StimulusWrite)
}

func (r *Record) SetDLLM(ctx context.Context, v float64) {
	r.DLLM = v
	r.HLM, r.LLM = UserLimits(r.DHLM, r.DLLM, r.OFF, r.DIR)
	_ = r.drv.SetLowLimit(ctx, r.DLLM)
	r.Process(ctx, StimulusWrite)
}

// EnableClosedLoop wires a readback source (e.g. an external position
// sensor) that item 4 of §4.2 pulls VAL from every pass.
func (r *Record) EnableClosedLoop(src func() float64) {
	r.ReadbackSource = src
	r.closedLoop = src != nil
}

// RequestStatusUpdate sets STUP, triggering a forced GetInfo the next
// pass (§3's STUP latch, restored per SPEC_FULL.md §3).
func (r *Record) RequestStatusUpdate(ctx context.Context) {
	if r.STUP == StupOff {
		r.STUP = StupOn
	}
	r.Process(ctx, StimulusWrite)
}

// Poll drives the "periodic driver status callback" stimulus of §2: it
// pulls the driver's current status and re-enters Process.
func (r *Record) Poll(ctx context.Context) error {
	result, status, nl, err := r.drv.UpdateValues(ctx)
	if err != nil {
		return errors.Wrap(err, "poll driver status")
	}
	r.applyStatus(status)
	r.processCallback(ctx, result, nl)
	return nil
}

// ScanOnce forces a single pass with no new data, matching a supervisor's
// unconditional periodic scan (§4.1).
func (r *Record) ScanOnce(ctx context.Context) {
	r.Process(ctx, StimulusScanOnce)
}

// armPP requests a post-processing pass on the next completion callback
// and records the VAL in force at that moment, so evaluateCompletion can
// tell a genuinely new supervisor write from this same operation still
// running its course (§4.6).
func (r *Record) armPP() {
	r.PP = true
	r.ppStartVAL = r.VAL
}

func (r *Record) clearButtons() {
	r.JOGF, r.JOGR, r.HOMF, r.HOMR = false, false, false, false
}

func (r *Record) userCommandedDir() bool {
	cdir := r.CDIR != 0
	if (r.DIR == DirPos) == (r.MRES >= 0) {
		return cdir
	}
	return !cdir
}

// setCDIR derives the raw direction of travel from the sign of a dial
// delta and the sign of MRES (§4.5: "sign(diff) XOR (MRES<0)").
func (r *Record) setCDIR(diff float64) {
	if signOf(diff) == signOf(r.MRES) {
		r.CDIR = 1
	} else {
		r.CDIR = 0
	}
}

func (r *Record) accelFor(vel, accl float64) float64 {
	if accl <= 0 {
		return 0
	}
	return (vel - r.VBAS) / accl
}
