/*
 * axis - mutation-set change tracker (§9 design note: a single bitset per
 * processing pass, flushed once at the end instead of posting events as
 * fields mutate).
 *
 * Copyright (c) 2026, the axiscore authors.
 */

package axis

// changeBit names one observable field for change-tracking purposes. The
// zero value (no bits set) means "nothing changed this pass".
type changeBit uint64

const (
	chgVAL changeBit = 1 << iota
	chgRBV
	chgDVAL
	chgDRBV
	chgRVAL
	chgHLM
	chgLLM
	chgDHLM
	chgDLLM
	chgOFF
	chgDIR
	chgMIP
	chgDMOV
	chgMOVN
	chgCDIR
	chgLVIO
	chgSPMG
	chgSET
	chgFOFF
	chgMISS
	chgRCNT
	chgSTUP
	chgSeverity
)

// ChangeEvent is one field's new value, emitted by Record.flushChanges.
type ChangeEvent struct {
	Field string
	Value any
}

// Subscriber receives every field that mutated during one processing
// pass, in a single batch, after the pass has fully settled.
type Subscriber func(events []ChangeEvent)

type changeTracker struct {
	mask changeBit
}

func (c *changeTracker) mark(b changeBit) { c.mask |= b }
func (c *changeTracker) has(b changeBit) bool { return c.mask&b != 0 }
func (c *changeTracker) reset()              { c.mask = 0 }

// markIfChanged assigns newVal to *ptr and marks bit only when the value
// actually differs, so a pass that recomputes a field to the same value
// does not spuriously report it as changed.
func markIfChanged[T comparable](c *changeTracker, ptr *T, newVal T, bit changeBit) {
	if *ptr != newVal {
		*ptr = newVal
		c.mark(bit)
	}
}

// trackedSnapshot captures every change-tracked field's value as of the end
// of the last processing pass (Record.reported), so the end of the next
// pass can diff against it and mark exactly the bits for fields that
// actually mutated since — whether a setter wrote them before calling
// Process, or any number of do_work's branches touched them.
type trackedSnapshot struct {
	val, rbv, dval, drbv    float64
	rval                    int64
	hlm, llm, dhlm, dllm    float64
	off                     float64
	dir                     Direction
	mip                     MIP
	dmov, movn              bool
	cdir                    uint8
	lvio                    bool
	spmg                    Stance
	set                     SetMode
	foff                    FreezeOffset
	miss                    bool
	rcnt                    int
	stup                    StupState
}

func (r *Record) snapshotTracked() trackedSnapshot {
	return trackedSnapshot{
		val: r.VAL, rbv: r.RBV, dval: r.DVAL, drbv: r.DRBV,
		rval: r.RVAL,
		hlm: r.HLM, llm: r.LLM, dhlm: r.DHLM, dllm: r.DLLM,
		off: r.OFF, dir: r.DIR,
		mip: r.MIP, dmov: r.DMOV, movn: r.MOVN,
		cdir: r.CDIR, lvio: r.LVIO,
		spmg: r.SPMG, set: r.SET, foff: r.FOFF,
		miss: r.MISS, rcnt: r.RCNT, stup: r.STUP,
	}
}

// diffTracked marks every bit whose field differs from prev, covering
// every mutation site across do_work, the move/backlash dispatch and the
// post-processor in one place instead of instrumenting each assignment.
func (r *Record) diffTracked(prev trackedSnapshot) {
	c := &r.changes
	markIfChanged(c, &prev.val, r.VAL, chgVAL)
	markIfChanged(c, &prev.rbv, r.RBV, chgRBV)
	markIfChanged(c, &prev.dval, r.DVAL, chgDVAL)
	markIfChanged(c, &prev.drbv, r.DRBV, chgDRBV)
	markIfChanged(c, &prev.rval, r.RVAL, chgRVAL)
	markIfChanged(c, &prev.hlm, r.HLM, chgHLM)
	markIfChanged(c, &prev.llm, r.LLM, chgLLM)
	markIfChanged(c, &prev.dhlm, r.DHLM, chgDHLM)
	markIfChanged(c, &prev.dllm, r.DLLM, chgDLLM)
	markIfChanged(c, &prev.off, r.OFF, chgOFF)
	markIfChanged(c, &prev.dir, r.DIR, chgDIR)
	markIfChanged(c, &prev.mip, r.MIP, chgMIP)
	markIfChanged(c, &prev.dmov, r.DMOV, chgDMOV)
	markIfChanged(c, &prev.movn, r.MOVN, chgMOVN)
	markIfChanged(c, &prev.cdir, r.CDIR, chgCDIR)
	markIfChanged(c, &prev.lvio, r.LVIO, chgLVIO)
	markIfChanged(c, &prev.spmg, r.SPMG, chgSPMG)
	markIfChanged(c, &prev.set, r.SET, chgSET)
	markIfChanged(c, &prev.foff, r.FOFF, chgFOFF)
	markIfChanged(c, &prev.miss, r.MISS, chgMISS)
	markIfChanged(c, &prev.rcnt, r.RCNT, chgRCNT)
	markIfChanged(c, &prev.stup, r.STUP, chgSTUP)
}

// flushChanges builds the batch of ChangeEvents for whatever mutated this
// pass and hands it to the subscriber, then clears the tracker.
func (r *Record) flushChanges() {
	if r.OnChange == nil {
		r.changes.reset()
		return
	}
	c := &r.changes
	var events []ChangeEvent
	add := func(bit changeBit, field string, value any) {
		if c.has(bit) {
			events = append(events, ChangeEvent{Field: field, Value: value})
		}
	}
	add(chgVAL, "VAL", r.VAL)
	add(chgRBV, "RBV", r.RBV)
	add(chgDVAL, "DVAL", r.DVAL)
	add(chgDRBV, "DRBV", r.DRBV)
	add(chgRVAL, "RVAL", r.RVAL)
	add(chgHLM, "HLM", r.HLM)
	add(chgLLM, "LLM", r.LLM)
	add(chgDHLM, "DHLM", r.DHLM)
	add(chgDLLM, "DLLM", r.DLLM)
	add(chgOFF, "OFF", r.OFF)
	add(chgDIR, "DIR", r.DIR)
	add(chgMIP, "MIP", r.MIP)
	add(chgDMOV, "DMOV", r.DMOV)
	add(chgMOVN, "MOVN", r.MOVN)
	add(chgCDIR, "CDIR", r.CDIR)
	add(chgLVIO, "LVIO", r.LVIO)
	add(chgSPMG, "SPMG", r.SPMG)
	add(chgSET, "SET", r.SET)
	add(chgFOFF, "FOFF", r.FOFF)
	add(chgMISS, "MISS", r.MISS)
	add(chgRCNT, "RCNT", r.RCNT)
	add(chgSTUP, "STUP", r.STUP)
	add(chgSeverity, "Severity", r.severity)

	c.reset()
	if len(events) > 0 {
		r.OnChange(events)
	}
}
