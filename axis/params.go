/*
 * axis - parameter family validator (§4.2 item 3, supplemented encoder
 * ratio reduction from SPEC_FULL.md §3).
 *
 * Copyright (c) 2026, the axiscore authors.
 */

package axis

import "math"

// recomputeVelocities re-derives UREV/VELO/VBAS/VMAX/BVEL from
// MRES/SREV/S/SBAS/SMAX/SBAK and then clamps the family back into the
// 0 ≤ VBAS ≤ {VELO,BVEL,JVEL,HVEL} ≤ VMAX invariant whenever VMAX>0.
func (r *Record) recomputeVelocities() {
	r.UREV = r.MRES * r.SREV
	urev := math.Abs(r.UREV)

	r.VELO = urev * r.S
	r.VBAS = urev * r.SBAS
	r.VMAX = urev * r.SMAX
	r.BVEL = urev * r.SBAK

	if r.VMAX <= 0 {
		return
	}
	if r.VBAS > r.VMAX {
		r.VBAS = r.VMAX
	}
	clamp := func(v float64) float64 {
		switch {
		case v < r.VBAS:
			return r.VBAS
		case v > r.VMAX:
			return r.VMAX
		default:
			return v
		}
	}
	r.VELO = clamp(r.VELO)
	r.BVEL = clamp(r.BVEL)
	r.JVEL = clamp(r.JVEL)
	r.HVEL = clamp(r.HVEL)
}

// normalizeDeadband enforces SDBD>0 (defaulting to |MRES|) and SDBD≤RDBD.
func normalizeDeadband(sdbd, rdbd, mres float64) (float64, float64) {
	if sdbd <= 0 {
		sdbd = math.Abs(mres)
	}
	if rdbd < sdbd {
		rdbd = sdbd
	}
	return sdbd, rdbd
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// encoderRatio reduces |MRES/ERES| to a num:den pair of integers, each
// bounded by 1e6, scaling through an intermediate bounded by 1e7 before
// reducing by their GCD. ERES==0 (no encoder configured) yields 1:1.
func encoderRatio(mres, eres float64) (num, den int) {
	if eres == 0 {
		return 1, 1
	}
	const maxSide = 1_000_000
	const maxIntermediate = 10_000_000

	ratio := math.Abs(mres / eres)
	if ratio <= 0 {
		return 1, 1
	}

	den = 1
	scaled := ratio
	for i := 0; i < 7 && scaled < maxSide && math.Abs(scaled-math.Round(scaled)) > 1e-6; i++ {
		scaled *= 10
		den *= 10
	}
	num = int(math.Round(scaled))
	if num > maxIntermediate {
		num = maxIntermediate
	}
	if num == 0 {
		num = 1
	}

	if g := gcd(num, den); g > 1 {
		num /= g
		den /= g
	}
	for num > maxSide || den > maxSide {
		num /= 2
		den /= 2
		if num < 1 {
			num = 1
		}
		if den < 1 {
			den = 1
		}
	}
	return num, den
}
