package axis

import "testing"

func TestRecomputeVelocitiesClamping(t *testing.T) {
	r := New("m1", nil, nil, 0, nil)
	r.MRES, r.SREV = 1, 1
	r.S, r.SBAS, r.SMAX, r.SBAK = 5, 10, 8, 20 // S/SBAS/SBAK deliberately out of order
	r.recomputeVelocities()

	if r.VBAS > r.VMAX {
		t.Errorf("VBAS %v > VMAX %v", r.VBAS, r.VMAX)
	}
	if r.VELO < r.VBAS || r.VELO > r.VMAX {
		t.Errorf("VELO %v outside [VBAS,VMAX] = [%v,%v]", r.VELO, r.VBAS, r.VMAX)
	}
	if r.BVEL < r.VBAS || r.BVEL > r.VMAX {
		t.Errorf("BVEL %v outside [VBAS,VMAX] = [%v,%v]", r.BVEL, r.VBAS, r.VMAX)
	}
}

func TestNormalizeDeadbandDefaultsToMRES(t *testing.T) {
	sdbd, rdbd := normalizeDeadband(0, 0, 0.5)
	if sdbd != 0.5 {
		t.Errorf("SDBD defaulted to %v, want 0.5", sdbd)
	}
	if rdbd != 0.5 {
		t.Errorf("RDBD defaulted to %v, want 0.5", rdbd)
	}
}

func TestNormalizeDeadbandEnforcesOrdering(t *testing.T) {
	sdbd, rdbd := normalizeDeadband(0.2, 0.05, 0.1)
	if sdbd != 0.2 {
		t.Errorf("SDBD = %v, want 0.2", sdbd)
	}
	if rdbd != 0.2 {
		t.Errorf("RDBD should be raised to SDBD, got %v", rdbd)
	}
}

func TestEncoderRatioBounds(t *testing.T) {
	cases := []struct{ mres, eres float64 }{
		{1, 1}, {0.5, 0.25}, {0.001, 1000}, {1, 0},
	}
	for _, c := range cases {
		num, den := encoderRatio(c.mres, c.eres)
		if num <= 0 || den <= 0 {
			t.Errorf("encoderRatio(%v,%v) = %d:%d, want positive", c.mres, c.eres, num, den)
		}
		if num > 1_000_000 || den > 1_000_000 {
			t.Errorf("encoderRatio(%v,%v) = %d:%d exceeds 1e6 bound", c.mres, c.eres, num, den)
		}
	}
}

func TestEncoderRatioIdentity(t *testing.T) {
	num, den := encoderRatio(1, 1)
	if num != den {
		t.Errorf("encoderRatio(1,1) = %d:%d, want equal", num, den)
	}
}
