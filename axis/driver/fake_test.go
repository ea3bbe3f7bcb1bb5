package driver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/axiscore/axis/axis/driver"
)

func TestFakeMoveAbsReachesTarget(t *testing.T) {
	f := driver.NewFake().WithTick(time.Millisecond)
	defer f.Close()
	facade := driver.NewFacade(f)

	require.NoError(t, facade.MoveAbs(context.Background(), 1000, 1, 0, 100))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		_, status, _, err := f.UpdateValues(context.Background())
		require.NoError(t, err)
		if !status.Moving && status.RawPos == 100 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("fake driver never reached its target")
}

func TestFakeStopHaltsMotion(t *testing.T) {
	f := driver.NewFake().WithTick(time.Millisecond)
	defer f.Close()
	facade := driver.NewFacade(f)

	require.NoError(t, facade.Jog(context.Background(), 1000, 1, 0))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, f.Stop(context.Background()))

	_, before, _, _ := f.UpdateValues(context.Background())
	time.Sleep(20 * time.Millisecond)
	_, after, _, _ := f.UpdateValues(context.Background())

	require.False(t, after.Moving)
	require.Equal(t, before.RawPos, after.RawPos)
}

func TestFakeLoadPosResetsPosition(t *testing.T) {
	f := driver.NewFake()
	defer f.Close()

	require.NoError(t, f.LoadPos(context.Background(), 42))
	_, status, _, _ := f.UpdateValues(context.Background())
	require.Equal(t, int64(42), status.RawPos)
	require.False(t, status.Moving)
}
