package axis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/axiscore/axis/axis/driver"
)

// mockDriver records every commanded move so the retry-scaling and
// backlash-sequencing tests can assert on exact call order without
// depending on real (or simulated) motion timing.
type mockDriver struct {
	calls   []string
	highLim float64
	lowLim  float64
}

func (m *mockDriver) record(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *mockDriver) Stop(ctx context.Context) error          { m.record("Stop"); return nil }
func (m *mockDriver) LoadPos(ctx context.Context, p float64) error {
	m.record("LoadPos(%v)", p)
	return nil
}
func (m *mockDriver) GetInfo(ctx context.Context) error { m.record("GetInfo"); return nil }
func (m *mockDriver) SetHighLimit(ctx context.Context, v float64) error {
	m.highLim = v
	m.record("SetHighLimit(%v)", v)
	return nil
}
func (m *mockDriver) SetLowLimit(ctx context.Context, v float64) error {
	m.lowLim = v
	m.record("SetLowLimit(%v)", v)
	return nil
}
func (m *mockDriver) MoveAbs(ctx context.Context, vel, vbase, accel, target float64) error {
	m.record("MoveAbs(%v)", target)
	return nil
}
func (m *mockDriver) MoveRel(ctx context.Context, vel, vbase, accel, delta float64) error {
	m.record("MoveRel(%v)", delta)
	return nil
}
func (m *mockDriver) Jog(ctx context.Context, vel, vbase, accel float64) error {
	m.record("Jog(%v)", vel)
	return nil
}
func (m *mockDriver) UpdateJog(ctx context.Context, vel float64) error {
	m.record("UpdateJog(%v)", vel)
	return nil
}
func (m *mockDriver) HomeFwd(ctx context.Context, vel, vbase, accel float64) error {
	m.record("HomeFwd")
	return nil
}
func (m *mockDriver) HomeRev(ctx context.Context, vel, vbase, accel float64) error {
	m.record("HomeRev")
	return nil
}
func (m *mockDriver) SetEncRatio(ctx context.Context, num, den int) error {
	m.record("SetEncRatio(%d,%d)", num, den)
	return nil
}
func (m *mockDriver) EnableTorque(ctx context.Context) error  { return nil }
func (m *mockDriver) DisableTorque(ctx context.Context) error { return nil }
func (m *mockDriver) SetGainP(ctx context.Context, c float64) error { return nil }
func (m *mockDriver) SetGainI(ctx context.Context, c float64) error { return nil }
func (m *mockDriver) SetGainD(ctx context.Context, c float64) error { return nil }
func (m *mockDriver) UpdateValues(ctx context.Context) (driver.UpdateResult, driver.Status, *driver.NewLimitsInfo, error) {
	return driver.NothingDone, driver.Status{}, nil, nil
}

func newTestRecord(drv driver.Driver) *Record {
	r := New("test", drv, nil, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.udf = false
	r.DMOV = true
	return r
}

func TestSimpleAbsoluteMove(t *testing.T) {
	// Scenario 1: a plain move with no backlash and no retries issues a
	// single MoveAbs and, once the driver reports arrival, finishes Done.
	drv := &mockDriver{}
	r := newTestRecord(drv)
	r.RTRY = 0
	ctx := context.Background()

	r.SetVAL(ctx, 10)

	if len(drv.calls) != 1 || drv.calls[0] != "MoveAbs(10)" {
		t.Fatalf("calls = %v, want [MoveAbs(10)]", drv.calls)
	}
	if r.DMOV {
		t.Error("DMOV should be False while the move is outstanding")
	}

	// Driver reports arrival.
	r.DRBV = 10
	r.RBV = 10
	status := driver.Status{RawPos: 10, Moving: false}
	r.applyStatus(status)
	r.processCallback(ctx, driver.CallbackData, nil)

	if !r.DMOV {
		t.Error("DMOV should be True once the driver reports arrival")
	}
	if r.MIP != MIPNone {
		t.Errorf("MIP = %v, want Done", r.MIP)
	}
}

func TestBacklashTwoLegMove(t *testing.T) {
	// Scenario 2: approaching DVAL=10 from DRBV=0 with BDST=-2 (preferred
	// direction is negative) is NOT the preferred direction, so the axis
	// should move to DVAL-BDST=12 first, then to 10.
	drv := &mockDriver{}
	r := newTestRecord(drv)
	r.RTRY = 0
	r.BDST = -2
	r.BVEL = r.VELO
	r.BACC = r.ACCL
	ctx := context.Background()

	r.SetVAL(ctx, 10)
	if len(drv.calls) != 1 || drv.calls[0] != "MoveAbs(12)" {
		t.Fatalf("first leg calls = %v, want [MoveAbs(12)]", drv.calls)
	}

	r.DRBV, r.RBV = 12, 12
	r.applyStatus(driver.Status{RawPos: 12, Moving: false})
	r.processCallback(ctx, driver.CallbackData, nil)

	if len(drv.calls) != 2 || drv.calls[1] != "MoveAbs(10)" {
		t.Fatalf("second leg calls = %v, want MoveAbs(10) appended", drv.calls)
	}
	if r.DMOV {
		t.Error("DMOV should still be False during the backlash leg")
	}

	r.DRBV, r.RBV = 10, 10
	r.applyStatus(driver.Status{RawPos: 10, Moving: false})
	r.processCallback(ctx, driver.CallbackData, nil)

	if !r.DMOV {
		t.Error("DMOV should be True once the backlash leg completes")
	}
	if len(drv.calls) != 2 {
		t.Errorf("a third move was issued: %v", drv.calls)
	}
}

func TestLimitViolationCancelsMoveAndReverts(t *testing.T) {
	// Scenario 4: writing VAL past DHLM raises a stop, clears jog/home
	// buttons, and reverts VAL to its previous value.
	drv := &mockDriver{}
	r := newTestRecord(drv)
	r.DHLM, r.DLLM = 5, 0
	ctx := context.Background()

	r.SetVAL(ctx, 10)

	if !r.LVIO {
		t.Error("LVIO should be set")
	}
	if r.VAL != 0 {
		t.Errorf("VAL = %v, want reverted to 0", r.VAL)
	}
	if r.MIP != MIPNone {
		t.Errorf("MIP = %v, want Done", r.MIP)
	}
	if !r.DMOV {
		t.Error("DMOV should be True")
	}
}

func TestDeadbandFilterSuppressesCommand(t *testing.T) {
	drv := &mockDriver{}
	r := newTestRecord(drv)
	r.SDBD = 1
	ctx := context.Background()

	r.SetVAL(ctx, 0.1) // well under SDBD

	if len(drv.calls) != 0 {
		t.Errorf("a move under the deadband issued a driver command: %v", drv.calls)
	}
	if !r.DMOV {
		t.Error("DMOV should remain True for a too-small move")
	}
}

func TestArithmeticRetryScaling(t *testing.T) {
	// Scenario 3: RTRY=3, RMOD=Arithmetic; a retry leg's relative distance
	// scales by (RTRY-RCNT+1)/RTRY, which is 1.0 at RCNT=1. This test checks
	// that first retry leg on the absolute path only.
	drv := &mockDriver{}
	r := newTestRecord(drv)
	r.RTRY = 3
	r.RMOD = RetryArithmetic
	r.RDBD = 0.1
	r.SDBD = 0.01
	ctx := context.Background()

	r.SetVAL(ctx, 5)
	r.DRBV, r.RBV = 4.8, 4.8 // first leg undershoots by 0.2
	r.applyStatus(driver.Status{RawPos: 0, Moving: false})
	r.MIP = MIPRetry
	r.RCNT = 1
	r.doMoveDecision(ctx, StimulusDelayAck)

	// useRel is only true when UEIP or ReadbackLinkInUse; neither is set
	// here, so the leg is a MoveAbs to DVAL itself and the scale factor
	// does not change the commanded target.
	if len(drv.calls) == 0 {
		t.Fatal("expected a retry leg to be issued")
	}
	last := drv.calls[len(drv.calls)-1]
	if last != "MoveAbs(5)" {
		t.Errorf("leg at RCNT=1 = %q, want MoveAbs(5) (factor 1.0 recovers the full remaining diff)", last)
	}
}

func TestJogReleaseBacklash(t *testing.T) {
	// Scenario 5: a held jog is released mid-motion; once the driver
	// confirms it has stopped, the backlash pair (overshoot, then return
	// to where the jog was released) runs before DMOV goes True.
	drv := &mockDriver{}
	r := newTestRecord(drv)
	r.BDST = 2
	r.SDBD = 0.01
	r.DHLM, r.DLLM = 100, -100
	r.HLM, r.LLM = 100, -100
	ctx := context.Background()

	r.SetJog(ctx, true, true)
	if len(drv.calls) != 1 || drv.calls[0] != "Jog(1)" {
		t.Fatalf("calls = %v, want [Jog(1)]", drv.calls)
	}
	if r.MIP != MIPJogF {
		t.Fatalf("MIP = %v, want JogF", r.MIP)
	}

	r.SetJog(ctx, true, false)
	if len(drv.calls) != 2 || drv.calls[1] != "Stop" {
		t.Fatalf("calls = %v, want [..., Stop]", drv.calls)
	}
	if r.MIP != MIPJogStop {
		t.Fatalf("MIP = %v, want JogStop", r.MIP)
	}

	r.DRBV, r.RBV = 5, 5
	r.applyStatus(driver.Status{RawPos: 5, Moving: false})
	r.processCallback(ctx, driver.CallbackData, nil)

	if len(drv.calls) != 3 || drv.calls[2] != "MoveAbs(3)" {
		t.Fatalf("calls = %v, want [..., MoveAbs(3)] (overshoot past the stop point by BDST, independent of travel direction)", drv.calls)
	}
	if r.MIP != MIPJogBL1 {
		t.Fatalf("MIP = %v, want JogBL1", r.MIP)
	}
	if r.DMOV {
		t.Error("DMOV should stay False for the return leg")
	}

	r.DRBV, r.RBV = 3, 3
	r.applyStatus(driver.Status{RawPos: 3, Moving: false})
	r.processCallback(ctx, driver.CallbackData, nil)

	if len(drv.calls) != 4 || drv.calls[3] != "MoveAbs(5)" {
		t.Fatalf("calls = %v, want [..., MoveAbs(5)] (return to the release point, approached from sign(BDST))", drv.calls)
	}
	if r.MIP != MIPJogBL2 {
		t.Fatalf("MIP = %v, want JogBL2", r.MIP)
	}

	r.DRBV, r.RBV = 5, 5
	r.applyStatus(driver.Status{RawPos: 5, Moving: false})
	r.processCallback(ctx, driver.CallbackData, nil)

	if !r.DMOV {
		t.Error("DMOV should be True once both backlash legs complete")
	}
	if r.MIP != MIPNone {
		t.Errorf("MIP = %v, want Done", r.MIP)
	}
}

func TestHomeForwardWithNegativeMRES(t *testing.T) {
	// Scenario 6: MRES<0 flips which raw home command corresponds to a
	// user-forward home, and CDIR tracks the raw direction actually sent.
	drv := &mockDriver{}
	r := newTestRecord(drv)
	r.MRES = -0.5
	ctx := context.Background()

	r.SetHome(ctx, true)

	if len(drv.calls) != 1 || drv.calls[0] != "HomeRev" {
		t.Fatalf("calls = %v, want [HomeRev] (negative MRES inverts the raw direction)", drv.calls)
	}
	if r.CDIR != 0 {
		t.Errorf("CDIR = %d, want 0", r.CDIR)
	}
	if r.MIP != MIPHomF {
		t.Errorf("MIP = %v, want HomF", r.MIP)
	}

	r.DRBV, r.RBV = 0, 0
	r.applyStatus(driver.Status{RawPos: 0, Moving: false, HomeSW: true})
	r.processCallback(ctx, driver.CallbackData, nil)

	if !r.DMOV {
		t.Error("DMOV should be True once homing completes")
	}
	if r.MIP != MIPNone {
		t.Errorf("MIP = %v, want Done", r.MIP)
	}
	if r.HOMF {
		t.Error("HOMF should be cleared on completion")
	}
}

func TestHomeOnLimitBypassesLimitGate(t *testing.T) {
	// A plain driver can't home off a limit switch: the request stays
	// pending until the limit clears.
	drv := &mockDriver{}
	r := newTestRecord(drv)
	r.plusLS = true
	ctx := context.Background()

	r.SetHome(ctx, true)

	if len(drv.calls) != 0 {
		t.Fatalf("calls = %v, want none while on the directed limit", drv.calls)
	}
	if !r.HOMF {
		t.Error("HOMF should remain pending until the limit clears")
	}

	// A driver that reports HomeOnLimit may home straight off the switch.
	drv2 := &mockDriver{}
	r2 := newTestRecord(drv2)
	r2.plusLS = true
	r2.homeOnLimit = true

	r2.SetHome(ctx, true)

	if len(drv2.calls) != 1 || drv2.calls[0] != "HomeFwd" {
		t.Fatalf("calls = %v, want [HomeFwd]", drv2.calls)
	}
	if r2.MIP != MIPHomF {
		t.Errorf("MIP = %v, want HomF", r2.MIP)
	}
}

func TestStopOnProblemRaisesStop(t *testing.T) {
	// §7: a motion fault newly asserted while StopOnProblem is configured
	// raises a stop on the same pass.
	drv := &mockDriver{}
	r := newTestRecord(drv)
	r.RTRY = 0
	r.StopOnProblem = true
	ctx := context.Background()

	r.SetVAL(ctx, 10)
	if len(drv.calls) != 1 || drv.calls[0] != "MoveAbs(10)" {
		t.Fatalf("calls = %v, want [MoveAbs(10)]", drv.calls)
	}

	r.applyStatus(driver.Status{RawPos: 0, Moving: true})
	r.processCallback(ctx, driver.CallbackData, nil)
	if len(drv.calls) != 1 {
		t.Fatalf("calls = %v, want no new calls while still healthy", drv.calls)
	}

	r.applyStatus(driver.Status{RawPos: 0, Moving: true, SlipStall: true})
	r.processCallback(ctx, driver.CallbackData, nil)

	if len(drv.calls) != 2 || drv.calls[1] != "Stop" {
		t.Fatalf("calls = %v, want [..., Stop] once SlipStall is newly asserted", drv.calls)
	}
}

func TestStopOnProblemOffDoesNotStop(t *testing.T) {
	drv := &mockDriver{}
	r := newTestRecord(drv)
	r.RTRY = 0
	ctx := context.Background()

	r.SetVAL(ctx, 10)
	r.applyStatus(driver.Status{RawPos: 0, Moving: true})
	r.processCallback(ctx, driver.CallbackData, nil)

	r.applyStatus(driver.Status{RawPos: 0, Moving: true, SlipStall: true})
	r.processCallback(ctx, driver.CallbackData, nil)

	for _, c := range drv.calls {
		if c == "Stop" {
			t.Fatalf("calls = %v, want no Stop without StopOnProblem configured", drv.calls)
		}
	}
}
