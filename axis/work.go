/*
 * axis - do_work: the MIP (motion-in-progress) state machine, the 12
 * priority-ordered branches of §4.2.
 *
 * Copyright (c) 2026, the axiscore authors.
 */

package axis

import (
	"context"
	"math"
)

func (r *Record) doWork(ctx context.Context, stim Stimulus) {
	// 1. Forced status update.
	if r.STUP == StupOn {
		r.STUP = StupBusy
		_ = r.drv.GetInfo(ctx)
		return
	}

	// 2. Explicit stop, SPMG=Stop/Pause, or an SPMG->Go transition.
	if r.stopRequested || r.SPMG == StanceStop || r.SPMG == StancePause {
		r.handleStopOrPause(ctx)
		return
	}
	if r.spmgWentGo {
		r.spmgWentGo = false
		switch {
		case r.JOGF && !r.jogLimitActive(true):
			r.MIP = MIPJogReq
		case r.JOGR && !r.jogLimitActive(false):
			r.MIP = MIPJogReq
		case r.MIP == MIPStop:
			r.MIP = MIPNone
		}
	}

	// 3. Resolution / encoder mode change.
	if r.paramsChanged {
		r.paramsChanged = false
		num, den := encoderRatio(r.MRES, r.ERES)
		_ = r.drv.SetEncRatio(ctx, num, den)
		r.SDBD, r.RDBD = normalizeDeadband(r.SDBD, r.RDBD, r.MRES)
		if r.SET == Set {
			_ = r.drv.LoadPos(ctx, float64(r.RVAL))
			r.DMOV = true
			r.MIP = MIPNone
			r.syncLast()
			return
		}
	}

	// 4. Closed-loop input.
	if r.closedLoop && r.ReadbackSource != nil {
		r.VAL = r.ReadbackSource()
		r.DVAL = ToDial(r.VAL, r.OFF, r.DIR)
		r.RVAL = ToRaw(r.DVAL, r.MRES)
	}

	// 5. Home request.
	if (r.HOMF || r.HOMR) && !r.MIP.Any(MIPHomF|MIPHomR) {
		fwd := r.HOMF
		onLimit := (fwd && r.plusLS) || (!fwd && r.minusLS)
		if !onLimit || r.homeOnLimit {
			r.armPP()
			if r.MOVN {
				_ = r.drv.Stop(ctx)
				r.stopLayeredOnHome = true
				if fwd {
					r.MIP = MIPHomF
				} else {
					r.MIP = MIPHomR
				}
				return
			}
			r.startHome(ctx, fwd)
			return
		}
	}

	// 6. Jog request.
	if r.jogRequestPending() {
		r.MIP &^= MIPJogReq
		r.startJog(ctx)
		return
	}

	// 7. Stop-jog: a held jog button was released.
	if (r.MIP.Has(MIPJogF) && !r.JOGF) || (r.MIP.Has(MIPJogR) && !r.JOGR) {
		_ = r.drv.Stop(ctx)
		r.armPP()
		r.MIP = MIPJogStop
		return
	}

	valTouched := r.valWritten
	r.valWritten = false

	// 8. Tweak.
	if r.TWF {
		r.TWF = false
		r.VAL += r.TWV
		valTouched = true
	}
	if r.TWR {
		r.TWR = false
		r.VAL -= r.TWV
		valTouched = true
	}

	// 9. Relative move.
	if r.RLV != 0 {
		r.VAL += r.RLV
		r.RLV = 0
		valTouched = true
	}

	// 10. Raw write.
	if r.rawWritten {
		r.rawWritten = false
		r.DVAL = ToDialFromRaw(r.RVAL, r.MRES)
	}

	// 11. VAL change.
	if valTouched {
		if r.SET == Set && r.FOFF == Variable {
			r.OFF = r.VAL - r.DVAL*r.DIR.Sign()
			r.DMOV = true
			r.MIP = MIPNone
			r.syncLast()
			return
		}
		r.DVAL = ToDial(r.VAL, r.OFF, r.DIR)
	}

	// 12. DVAL change, or simply not yet done moving.
	r.doMoveDecision(ctx, stim)
}

func (r *Record) jogRequestPending() bool {
	if r.SPMG == StancePause {
		return false
	}
	if r.MIP.Any(MIPJogF | MIPJogR | MIPHomF | MIPHomR) {
		return false
	}
	return (r.JOGF || r.JOGR) || r.MIP.Has(MIPJogReq)
}

// handleStopOrPause implements §4.2 item 2's stop/pause sub-machine.
func (r *Record) handleStopOrPause(ctx context.Context) {
	delayPending := r.MIP.Has(MIPDelayReq)
	explicitStop := r.stopRequested
	r.stopRequested = false
	pausing := r.SPMG == StancePause && !explicitStop

	if explicitStop || r.SPMG == StanceStop {
		if r.MIP.Done() || r.MIP == MIPStop || r.MIP.Has(MIPRetry) {
			_ = r.drv.Stop(ctx)
			if delayPending {
				r.MIP |= MIPDelayReq
			}
			return
		}
	}

	if r.MOVN {
		_ = r.drv.Stop(ctx)
		r.armPP()
		if !pausing {
			r.clearButtons()
		}
		r.MIP = MIPStop
		if delayPending {
			r.MIP |= MIPDelayReq
		}
		return
	}

	if pausing {
		return
	}

	// Stop while not moving: synchronise targets to the readback.
	r.VAL = r.RBV
	r.DVAL = r.DRBV
	r.RVAL = ToRaw(r.DVAL, r.MRES)
	r.DMOV = true
	r.MIP = MIPNone
	r.syncLast()
}

func (r *Record) startHome(ctx context.Context, fwd bool) {
	hvel := r.HVEL / math.Abs(r.MRES)
	accel := r.accelFor(hvel, r.ACCL)
	rawFwd := (r.MRES >= 0) == fwd

	var err error
	if rawFwd {
		err = r.drv.HomeFwd(ctx, hvel, r.VBAS, accel)
		r.CDIR = 1
	} else {
		err = r.drv.HomeRev(ctx, hvel, r.VBAS, accel)
		r.CDIR = 0
	}
	if fwd {
		r.MIP = MIPHomF
	} else {
		r.MIP = MIPHomR
	}
	r.DMOV = false
	if err != nil {
		r.log.Error("home command failed", "axis", r.Name, "error", err)
	}
}

func (r *Record) startJog(ctx context.Context) {
	if jogLimitViolation(r.JOGF, r.JOGR, r.VAL, r.HLM, r.LLM, r.JVEL) {
		return
	}
	if r.MOVN {
		_ = r.drv.Stop(ctx)
		r.armPP()
		return
	}

	dirSign := 1.0
	if !r.JOGF {
		dirSign = -1
	}
	rawVel := dirSign * r.JVEL * r.DIR.Sign() / r.MRES

	err := r.drv.Jog(ctx, rawVel, r.VBAS, r.JAR)
	if r.JOGF {
		r.MIP = MIPJogF
	} else {
		r.MIP = MIPJogR
	}
	r.DMOV = false
	r.setCDIR(dirSign * r.DIR.Sign())
	if err != nil {
		r.log.Error("jog command failed", "axis", r.Name, "error", err)
	}
}
