package determinism_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/dst-sim/pkg/determinism"
)

func TestRNGDeterministicFromSeed(t *testing.T) {
	a := determinism.NewRNG(7)
	b := determinism.NewRNG(7)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.NextU64(), b.NextU64())
	}
}

func TestRNGGenRangeBounds(t *testing.T) {
	rng := determinism.NewRNG(1)
	for i := 0; i < 1000; i++ {
		v := rng.GenRange(10, 20)
		require.GreaterOrEqual(t, v, uint64(10))
		require.Less(t, v, uint64(20))
	}
	require.Equal(t, uint64(5), rng.GenRange(5, 5))
}

func TestRNGGenRangeDistBiasTowardLo(t *testing.T) {
	rng := determinism.NewRNG(3)
	var sum uint64
	const n = 2000
	for i := 0; i < n; i++ {
		sum += rng.GenRangeDist(0, 1000, 0.1)
	}
	avg := sum / n
	require.Less(t, avg, uint64(300), "bias<1 should skew draws toward lo")
}

func TestChoosePicksAMember(t *testing.T) {
	rng := determinism.NewRNG(9)
	items := []string{"a", "b", "c"}
	for i := 0; i < 20; i++ {
		require.Contains(t, items, determinism.Choose(rng, items))
	}
}

func TestEffectiveSeedRunOneIsVerbatim(t *testing.T) {
	require.Equal(t, uint64(42), determinism.EffectiveSeed(42, 1))
}

func TestEffectiveSeedDeterministicAndDistinct(t *testing.T) {
	s2a := determinism.EffectiveSeed(42, 2)
	s2b := determinism.EffectiveSeed(42, 2)
	s3 := determinism.EffectiveSeed(42, 3)
	require.Equal(t, s2a, s2b)
	require.NotEqual(t, s2a, s3)
	require.NotEqual(t, s2a, uint64(42))
}

func TestClockAdvancesWithStep(t *testing.T) {
	step := determinism.NewStepCounter()
	clock := determinism.NewClock(step, 1000, 10)
	require.True(t, clock.Now().Equal(time.UnixMilli(1010)))
	step.Next()
	require.True(t, clock.Now().Equal(time.UnixMilli(1020)))
}

func TestStepCounterStartsAtOne(t *testing.T) {
	s := determinism.NewStepCounter()
	require.Equal(t, uint64(0), s.Executed())
	require.Equal(t, uint64(1), s.Next())
	require.Equal(t, uint64(2), s.Next())
	require.Equal(t, uint64(2), s.Executed())
	s.Reset()
	require.Equal(t, uint64(0), s.Executed())
}

func TestCancelTokenPropagatesToChild(t *testing.T) {
	parent := determinism.NewCancelToken(nil)
	child := determinism.NewCancelToken(parent)
	require.False(t, child.Cancelled())
	parent.Cancel()
	<-child.Done()
	require.True(t, child.Cancelled())
}

func TestCancelTokenChildDoesNotCancelParent(t *testing.T) {
	parent := determinism.NewCancelToken(nil)
	child := determinism.NewCancelToken(parent)
	child.Cancel()
	require.False(t, parent.Cancelled())
}

func TestFSWriteAppendReadRemove(t *testing.T) {
	fs := determinism.NewFS()
	_, err := fs.Read("/missing")
	require.Error(t, err)

	fs.Write("/a", []byte("hello"))
	got, err := fs.Read("/a")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)

	fs.Append("/a", []byte(" world"))
	got, err = fs.Read("/a")
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), got)

	fs.Remove("/a")
	_, err = fs.Read("/a")
	require.Error(t, err)
}

func TestFSResetClearsAllFiles(t *testing.T) {
	fs := determinism.NewFS()
	fs.Write("/a", []byte("x"))
	fs.Reset()
	_, err := fs.Read("/a")
	require.Error(t, err)
}
