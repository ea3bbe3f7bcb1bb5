/*
 * axis - Process(): the single serialised entry point for every stimulus
 * (§4.1 of the specification).
 *
 * Copyright (c) 2026, the axiscore authors.
 */

package axis

import (
	"context"
	"time"

	"github.com/axiscore/axis/axis/driver"
)

// Stimulus names what triggered a processing pass.
type Stimulus int

const (
	// StimulusWrite is a supervisor field write.
	StimulusWrite Stimulus = iota
	// StimulusCallback is a periodic driver status callback (§2).
	StimulusCallback
	// StimulusDelayAck is the settle-delay timer firing (§4.6).
	StimulusDelayAck
	// StimulusRetryDelay is the InPosition retry-delay timer firing (§4.7).
	StimulusRetryDelay
	// StimulusScanOnce is an unconditional periodic scan with no new data.
	StimulusScanOnce
)

// Process is the single serialised function invoked for every stimulus
// (§4.1). A reentrant call (e.g. a driver callback arriving while a
// supervisor write is still being processed) is silently dropped: pact
// guards against recursion, never against losing work, since every
// stimulus that matters re-derives its outcome from durable record state.
func (r *Record) Process(ctx context.Context, stim Stimulus) {
	r.process(ctx, stim, nil, nil)
}

// processCallback is the internal entry point used by Poll, which already
// has a driver.Status and UpdateResult in hand.
func (r *Record) processCallback(ctx context.Context, result driver.UpdateResult, nl *driver.NewLimitsInfo) {
	r.process(ctx, StimulusCallback, &result, nl)
}

func (r *Record) process(ctx context.Context, stim Stimulus, result *driver.UpdateResult, nl *driver.NewLimitsInfo) {
	if !r.pact.CompareAndSwap(false, true) {
		return
	}
	defer r.pact.Store(false)

	r.changes.reset()
	prevDMOV := r.DMOV
	prevTracked := r.reported
	isCallback := stim == StimulusCallback

	// 1 & 2: project the latest driver status and evaluate completion.
	if isCallback && result != nil {
		r.projectStatus(*result, nl)
	}
	if isCallback || stim == StimulusDelayAck {
		r.evaluateCompletion(ctx, stim)
	}

	// 3: recompute LVIO; a freshly raised violation (outside Set mode)
	// forces a stop and reverts the offending target.
	wasLVIO := r.LVIO
	r.LVIO = r.recomputeLVIO()
	if r.LVIO && !wasLVIO && r.SET != Set {
		r.raiseStop()
	}
	if r.problemRaised {
		r.problemRaised = false
		if r.StopOnProblem {
			r.stopRequested = true
		}
	}

	// 4: the MIP machine runs whenever the axis isn't simply idling
	// through an ordinary callback.
	if r.stopRequested || r.SPMG == StancePause || r.SPMG == StanceStop ||
		!isCallback || r.DMOV || r.MIP.Has(MIPRetry) {
		r.doWork(ctx, stim)
	}

	// 5: push the readback out, if wired.
	if r.ForwardReadback != nil {
		r.ForwardReadback(r.RBV)
	}

	// 6: diff every tracked field against the values the previous pass
	// ended with, alarms, change flush, forward-scan notification on a
	// DMOV edge.
	r.diffTracked(prevTracked)
	r.reported = r.snapshotTracked()
	sev, _ := r.computeSeverity()
	markIfChanged(&r.changes, &r.severity, sev, chgSeverity)
	r.flushChanges()
	if !prevDMOV && r.DMOV && r.ForwardScan != nil {
		r.ForwardScan()
	}
}

// raiseStop implements the stop half of §4.4's new-violation edge: clear
// the jog/home buttons, revert the target to the last known-good values,
// and request a stop on the next MIP pass.
func (r *Record) raiseStop() {
	r.clearButtons()
	r.VAL = r.last.val
	r.DVAL = r.last.dval
	r.RVAL = r.last.rval
	r.stopRequested = true
}

func (r *Record) onDelayFire(int) {
	r.MIP |= MIPDelayAck
	r.Process(context.Background(), StimulusDelayAck)
}

func (r *Record) onRetryDelayFire(int) {
	r.Process(context.Background(), StimulusRetryDelay)
}

func (r *Record) armSettleDelay() {
	r.sched.Arm(r.schedID, time.Duration(r.DLY*float64(time.Second)), r.onDelayFire, 0)
}

func (r *Record) armRetryDelay() {
	r.sched.Arm(r.schedID, time.Duration(r.DLY*float64(time.Second)), r.onRetryDelayFire, 0)
}
