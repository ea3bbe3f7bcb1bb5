package axis

import (
	"math"
	"testing"
)

func TestUserDialRoundTrip(t *testing.T) {
	cases := []struct {
		val, off float64
		dir      Direction
	}{
		{10, 0, DirPos},
		{10, 5, DirPos},
		{-3.5, 2, DirNeg},
		{0, -100, DirNeg},
	}
	for _, c := range cases {
		dval := ToDial(c.val, c.off, c.dir)
		got := ToUser(dval, c.off, c.dir)
		if math.Abs(got-c.val) > 1e-9 {
			t.Errorf("round trip val=%v off=%v dir=%v: got %v", c.val, c.off, c.dir, got)
		}
	}
}

func TestToRawZeroRes(t *testing.T) {
	if got := ToRaw(5, 0); got != 0 {
		t.Errorf("ToRaw with zero MRES = %d, want 0", got)
	}
}

func TestToRawRounds(t *testing.T) {
	if got := ToRaw(1.0, 0.3); got != 3 {
		t.Errorf("ToRaw(1.0,0.3) = %d, want 3", got)
	}
}

func TestUserLimitsSwapOnNegativeDir(t *testing.T) {
	hlm, llm := UserLimits(20, 5, 0, DirPos)
	if hlm != 20 || llm != 5 {
		t.Errorf("UserLimits positive dir = (%v,%v), want (20,5)", hlm, llm)
	}
	hlm, llm = UserLimits(20, 5, 0, DirNeg)
	if hlm != -5 || llm != -20 {
		t.Errorf("UserLimits negative dir = (%v,%v), want (-5,-20)", hlm, llm)
	}
}
