/*
 * axis - status projection, completion evaluation and post-processing
 * (§4.6), and the retry decision (§4.7).
 *
 * Copyright (c) 2026, the axiscore authors.
 */

package axis

import (
	"context"
	"math"

	"github.com/axiscore/axis/axis/driver"
)

// applyStatus mirrors a raw driver status into the record's private
// hardware-state fields and reports whether anything changed.
func (r *Record) applyStatus(s driver.Status) bool {
	changed := r.MOVN != s.Moving || r.plusLS != s.PlusLS || r.minusLS != s.MinusLS ||
		r.homeSW != s.HomeSW || r.slipStall != s.SlipStall ||
		r.commError != s.CommError || r.fault != s.Fault
	r.problemRaised = (s.SlipStall || s.Fault) && !(r.slipStall || r.fault)
	r.MOVN = s.Moving
	r.plusLS = s.PlusLS
	r.minusLS = s.MinusLS
	r.homeSW = s.HomeSW
	r.slipStall = s.SlipStall
	r.commError = s.CommError
	r.fault = s.Fault
	r.gainSupport = s.GainSupport
	r.encoderPresent = s.EncoderPresent
	r.positionMaintenance = s.PositionMaintenance
	r.homeOnLimit = s.HomeOnLimit
	r.lastRawStatus = s
	return changed
}

// projectStatus is the status projector of §2: it turns the most recent
// raw status into RRBV/REP/DRBV/RBV, clipping the soft limits first if
// the driver reported NewLimits.
func (r *Record) projectStatus(result driver.UpdateResult, nl *driver.NewLimitsInfo) {
	if result == driver.NothingDone {
		return
	}
	r.projectStatusForce(result, nl)
}

func (r *Record) projectStatusForce(result driver.UpdateResult, nl *driver.NewLimitsInfo) {
	if result == driver.NewLimits && nl != nil {
		clip := func(v float64) float64 { return math.Max(nl.DLLM, math.Min(nl.DHLM, v)) }
		r.DHLM = clip(r.DHLM)
		r.DLLM = clip(r.DLLM)
		r.HLM, r.LLM = UserLimits(r.DHLM, r.DLLM, r.OFF, r.DIR)
	}
	r.RRBV = r.lastRawStatus.RawPos
	r.REP = r.lastRawStatus.RawEnc
	if r.UEIP && r.ERES != 0 {
		r.DRBV = ToDialFromRaw(r.REP, r.ERES)
	} else {
		r.DRBV = ToDialFromRaw(r.RRBV, r.MRES)
	}
	r.RBV = ToUser(r.DRBV, r.OFF, r.DIR)
}

// evaluateCompletion implements §4.6: it runs on every driver callback
// and every settle-delay firing, deciding whether motion has actually
// finished and, if so, driving the post-processor and retry decision.
func (r *Record) evaluateCompletion(ctx context.Context, stim Stimulus) {
	if r.MOVN {
		r.DMOV = false
		if r.MIP.Done() {
			// Motion resumed externally (e.g. a hand crank): note it but
			// don't contest it.
			r.MIP = MIPExternal
			r.armPP()
		}
		return
	}

	if r.STUP == StupBusy {
		r.STUP = StupOff
		return
	}

	if !r.DMOV && (r.MIP == MIPJogF || r.MIP == MIPJogR) {
		r.MIP = MIPNone
		r.clearButtons()
		r.armPP()
		r.DMOV = true
		return
	}

	ucdir := r.userCommandedDir()
	limitHit := (r.plusLS && ucdir) || (r.minusLS && !ucdir)
	if limitHit && r.MIP.Any(MIPMove|MIPMoveBL|MIPHomF|MIPHomR|MIPJogF|MIPJogR) {
		_ = r.drv.GetInfo(ctx)
		r.MIP = MIPNone
		r.armPP()
		r.DMOV = true
		return
	}

	if r.PP {
		if r.VAL != r.ppStartVAL && r.SPMG != StanceStop && r.SPMG != StancePause {
			r.PP = false
			r.doMoveDecision(ctx, stim)
			return
		}
		r.runPostProcess(ctx)
		if !r.DMOV {
			// runPostProcess issued another leg (backlash, resumed home);
			// wait for its own completion rather than falling through to
			// the retry decision below.
			return
		}
	}

	if r.DLY > 0 && !r.MIP.Has(MIPDelayAck) {
		if !r.MIP.Has(MIPDelayReq) {
			r.MIP |= MIPDelayReq
			r.armSettleDelay()
		}
		return
	}
	r.MIP &^= MIPDelayReq | MIPDelayAck
	r.maybeRetry(ctx)
}

// runPostProcess implements the post-processor bullet list of §4.6.
func (r *Record) runPostProcess(ctx context.Context) {
	r.PP = false

	if !r.MIP.Any(MIPMove|MIPMoveBL) && !r.closedLoop {
		r.VAL = r.RBV
		r.DVAL = r.DRBV
		r.RVAL = ToRaw(r.DVAL, r.MRES)
	}

	if r.MIP.Has(MIPLoadPos) {
		r.MIP = MIPNone
		r.DMOV = true
		return
	}

	if r.MIP.Any(MIPHomF | MIPHomR) {
		if r.stopLayeredOnHome {
			r.stopLayeredOnHome = false
			fwd := r.MIP.Has(MIPHomF)
			r.startHome(ctx, fwd)
			r.armPP()
		} else {
			r.HOMF, r.HOMR = false, false
			r.MIP = MIPNone
			r.DMOV = true
		}
		return
	}

	if r.MIP.Has(MIPJogStop) {
		r.MIP &^= MIPJogStop
		if math.Abs(r.BDST) >= r.SDBD {
			r.startJogBacklashLeg1(ctx)
			r.MIP = MIPJogBL1
			r.armPP()
		} else {
			r.DMOV = true
			r.MIP = MIPNone
		}
		return
	}

	if r.MIP.Has(MIPMove) {
		r.MIP &^= MIPMove
		if r.needsBacklashLeg {
			r.needsBacklashLeg = false
			r.MIP = MIPMoveBL
			r.startBacklashLeg(ctx)
			r.armPP()
		} else {
			r.DMOV = true
			r.MIP = MIPNone
		}
		return
	}

	if r.MIP.Has(MIPMoveBL) {
		r.MIP = MIPNone
		r.DMOV = true
		return
	}

	if r.MIP.Has(MIPJogBL1) {
		r.MIP = MIPJogBL2
		r.startJogBacklashLeg2(ctx)
		r.armPP()
		return
	}

	if r.MIP.Has(MIPJogBL2) {
		r.MIP = MIPNone
		r.DMOV = true
		return
	}

	r.DMOV = true
	r.MIP = MIPNone
}

// maybeRetry implements §4.7: decide whether the axis is close enough to
// DVAL to call the move done, or whether another leg should be issued
// (immediately, or after a scheduled delay for RMOD=InPosition).
func (r *Record) maybeRetry(ctx context.Context) {
	diff := r.DVAL - r.DRBV
	ucdir := r.userCommandedDir()
	limitPinned := (r.plusLS && ucdir) || (r.minusLS && !ucdir)

	if math.Abs(diff) >= r.RDBD && !limitPinned {
		if r.RTRY == 0 {
			r.finishWithoutRetry()
			return
		}
		r.RCNT++
		if r.RCNT > r.RTRY {
			r.MISS = true
			r.MIP = MIPNone
			r.DMOV = true
			r.syncLast()
			return
		}
		if r.RMOD == RetryInPosition {
			r.MIP = MIPRetry
			r.DMOV = false
			r.armRetryDelay()
			return
		}
		r.MIP = MIPRetry
		r.DMOV = false
		r.doMoveDecision(ctx, StimulusDelayAck)
		return
	}

	r.MISS = false
	r.MIP = MIPNone
	r.DMOV = true
	r.syncLast()
	if r.SPMG == StanceMove {
		r.SPMG = StancePause
	}
}

func (r *Record) finishWithoutRetry() {
	if r.JOGF || r.JOGR {
		r.MIP = MIPJogReq
	} else {
		r.MIP = MIPNone
	}
	r.DMOV = true
	r.syncLast()
}
