/*
 * axis - move decision: §4.3's "DVAL changed or not done moving" branch
 * and the three-way move/backlash dispatch it delegates to.
 *
 * Copyright (c) 2026, the axiscore authors.
 */

package axis

import (
	"context"
	"math"
)

// doMoveDecision is reached from do_work item 12 whenever DVAL may have
// changed, or the axis is simply still not done moving.
func (r *Record) doMoveDecision(ctx context.Context, stim Stimulus) {
	// 1. Recompute VAL/RVAL from DVAL, the single place either is derived
	// from a DVAL that may have just changed.
	r.VAL = ToUser(r.DVAL, r.OFF, r.DIR)
	r.RVAL = ToRaw(r.DVAL, r.MRES)

	isRetry := r.MIP.Has(MIPRetry)
	diff := r.DVAL - r.DRBV
	absdiff := math.Abs(diff)

	// 2 & 3. Too-small filter: moves under the active deadband emit no
	// command at all.
	deadband := r.SDBD
	if isRetry {
		deadband = r.RDBD
	}
	if absdiff < deadband {
		r.DMOV = true
		r.MIP = MIPNone
		r.syncLast()
		return
	}

	if !isRetry {
		r.RCNT = 0
	}

	// 4. Retry scaling.
	relpos := diff
	switch r.RMOD {
	case RetryInPosition:
		if isRetry {
			return // the driver servos to DRBV itself; nothing to issue.
		}
	case RetryArithmetic:
		if isRetry && r.RTRY > 0 {
			relpos = diff * float64(r.RTRY-r.RCNT+1) / float64(r.RTRY)
		}
	case RetryGeometric:
		if isRetry && r.RCNT >= 1 {
			relpos = diff / math.Pow(2, float64(r.RCNT-1))
		}
	}

	preferred := r.preferredDirection(diff)

	// 5. Soft-limit check against the freshly derived DVAL/diff.
	r.LVIO = moveLimitViolation(r.DVAL, r.DRBV, r.DHLM, r.DLLM, preferred, r.BDST)
	if r.LVIO {
		r.DMOV = true
		r.MIP = MIPNone
		return
	}

	// 6. Issue the move (first leg, or a scaled retry leg).
	useRel := r.RTRY > 0 && r.RMOD != RetryInPosition && (r.UEIP || r.ReadbackLinkInUse)
	r.doRetryOrDone(ctx, diff, relpos, preferred, useRel)
}

// doRetryOrDone implements the three move/backlash cases of §4.3.
func (r *Record) doRetryOrDone(ctx context.Context, diff, relpos float64, preferred, useRel bool) {
	if relpos != 0 && math.Abs(relpos) < r.SDBD {
		relpos = math.Copysign(r.SDBD, relpos)
	}

	accel := r.accelFor(r.VELO, r.ACCL)
	var err error
	switch {
	case math.Abs(r.BDST) < r.SDBD || (preferred && r.BVEL == r.VELO && r.BACC == r.ACCL):
		err = r.issueMove(ctx, r.VELO, accel, r.DVAL, relpos, useRel)
	case preferred && math.Abs(diff) <= math.Abs(r.BDST):
		err = r.issueMove(ctx, r.BVEL, r.accelFor(r.BVEL, r.BACC), r.DVAL, relpos, useRel)
	default:
		target := r.DVAL - r.BDST
		err = r.issueMove(ctx, r.VELO, accel, target, target-r.DRBV, useRel)
		r.needsBacklashLeg = true
		r.armPP()
	}
	if err != nil {
		r.log.Error("move command failed", "axis", r.Name, "error", err)
	}

	r.MIP |= MIPMove
	r.DMOV = false
	r.setCDIR(diff)
}

func (r *Record) issueMove(ctx context.Context, vel, accel, absTarget, relDelta float64, useRel bool) error {
	if useRel {
		return r.drv.MoveRel(ctx, vel, r.VBAS, accel, relDelta)
	}
	return r.drv.MoveAbs(ctx, vel, r.VBAS, accel, absTarget)
}

func (r *Record) startBacklashLeg(ctx context.Context) {
	accel := r.accelFor(r.BVEL, r.BACC)
	err := r.drv.MoveAbs(ctx, r.BVEL, r.VBAS, accel, r.DVAL)
	r.DMOV = false
	r.setCDIR(r.DVAL - r.DRBV)
	if err != nil {
		r.log.Error("backlash leg failed", "axis", r.Name, "error", err)
	}
}

func (r *Record) startJogBacklashLeg1(ctx context.Context) {
	r.jogStopDVAL = r.DRBV
	target := r.DRBV - r.BDST
	accel := r.accelFor(r.BVEL, r.BACC)
	err := r.drv.MoveAbs(ctx, r.BVEL, r.VBAS, accel, target)
	r.DMOV = false
	if err != nil {
		r.log.Error("jog backlash leg 1 failed", "axis", r.Name, "error", err)
	}
}

func (r *Record) startJogBacklashLeg2(ctx context.Context) {
	accel := r.accelFor(r.BVEL, r.BACC)
	err := r.drv.MoveAbs(ctx, r.BVEL, r.VBAS, accel, r.jogStopDVAL)
	r.DMOV = false
	if err != nil {
		r.log.Error("jog backlash leg 2 failed", "axis", r.Name, "error", err)
	}
}
