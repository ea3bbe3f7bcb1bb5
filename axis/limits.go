/*
 * axis - soft travel limit gate (§4.4 of the specification).
 *
 * Copyright (c) 2026, the axiscore authors.
 */

package axis

// limitsDefined reports whether soft limits are active. DHLM==DLLM (the
// power-up default, both zero) disables the gate entirely.
func limitsDefined(dhlm, dllm float64) bool {
	return dhlm != dllm
}

// jogLimitViolation implements the jog clause of §4.4: a forward jog
// violates once RBV is within one jog velocity of the high limit, a
// reverse jog once it is within one jog velocity of the low limit.
func jogLimitViolation(jogf, jogr bool, rbv, hlm, llm, jvel float64) bool {
	if !limitsDefined(hlm, llm) {
		return false
	}
	return (jogf && rbv > hlm-jvel) || (jogr && rbv < llm+jvel)
}

// outsideRange reports whether v lies outside [lo,hi] and, if so, its
// distance past the nearer bound.
func outsideRange(v, lo, hi float64) (bool, float64) {
	switch {
	case v > hi:
		return true, v - hi
	case v < lo:
		return true, lo - v
	default:
		return false, 0
	}
}

// moveLimitViolation implements the move clause of §4.4: a target outside
// [DLLM,DHLM] violates, unless it is a recovery move that reduces the
// distance past the limit from where the axis currently sits. A target
// inside the range still violates if the move is not taken from the
// preferred direction and the backlash intermediate point (dval-bdst)
// itself falls outside the range.
func moveLimitViolation(dval, currentDial, dhlm, dllm float64, preferredDir bool, bdst float64) bool {
	if !limitsDefined(dhlm, dllm) {
		return false
	}

	newOut, newDist := outsideRange(dval, dllm, dhlm)
	if !newOut {
		if !preferredDir {
			if iOut, _ := outsideRange(dval-bdst, dllm, dhlm); iOut {
				return true
			}
		}
		return false
	}

	if curOut, curDist := outsideRange(currentDial, dllm, dhlm); curOut && newDist < curDist {
		return false
	}
	return true
}

// recomputeLVIO re-evaluates LVIO for the current record state, per the
// three sub-cases of §4.4 (home never violates, jog uses the jog clause,
// everything else uses the move clause against DVAL).
func (r *Record) recomputeLVIO() bool {
	switch {
	case r.MIP.Any(MIPHomF | MIPHomR) || r.HOMF || r.HOMR:
		return false
	case r.JOGF || r.JOGR || r.MIP.Any(MIPJogF|MIPJogR):
		return jogLimitViolation(r.JOGF, r.JOGR, r.RBV, r.HLM, r.LLM, r.JVEL)
	default:
		preferred := r.preferredDirection(r.DVAL - r.DRBV)
		return moveLimitViolation(r.DVAL, r.DRBV, r.DHLM, r.DLLM, preferred, r.BDST)
	}
}

// preferredDirection reports whether travelling diff is in the backlash's
// preferred direction: always true when no backlash is configured, else
// true iff diff's sign matches BDST's sign.
func (r *Record) preferredDirection(diff float64) bool {
	if r.BDST == 0 {
		return true
	}
	return signOf(diff) == signOf(r.BDST)
}

// jogLimitActive reports whether the hardware limit switch in the given
// direction is currently asserted.
func (r *Record) jogLimitActive(fwd bool) bool {
	if fwd {
		return r.plusLS
	}
	return r.minusLS
}
