package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/dst-sim/pkg/async"
	"github.com/jihwankim/dst-sim/pkg/determinism"
)

func TestSleepRealBackendRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := async.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSleepRealBackendReturnsAfterDuration(t *testing.T) {
	start := time.Now()
	require.NoError(t, async.Sleep(context.Background(), 5*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestSpawnDeliversResult(t *testing.T) {
	done := async.Spawn(context.Background(), func(context.Context) error {
		return errors.New("boom")
	})
	err := <-done
	require.EqualError(t, err, "boom")
}

func TestRunUntilCancelledResolvesToNilWhenTokenFires(t *testing.T) {
	tok := determinism.NewCancelToken(nil)
	block := make(chan struct{})
	defer close(block)

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- async.RunUntilCancelled(context.Background(), tok, func(context.Context) error {
			<-block
			return errors.New("never seen")
		})
	}()
	tok.Cancel()
	require.NoError(t, <-resultCh)
}

func TestRunUntilCancelledReturnsFnResultWhenItFinishesFirst(t *testing.T) {
	tok := determinism.NewCancelToken(nil)
	err := async.RunUntilCancelled(context.Background(), tok, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestSelect2PrefersAOnTie(t *testing.T) {
	tok := determinism.NewCancelToken(nil)
	a := make(chan int, 1)
	b := make(chan string, 1)
	a <- 1
	b <- "x"

	av, _, which := async.Select2(context.Background(), tok, a, b)
	require.Equal(t, 0, which)
	require.Equal(t, 1, av)
}

func TestSelect2ReturnsMinusOneOnCancel(t *testing.T) {
	tok := determinism.NewCancelToken(nil)
	a := make(chan int)
	b := make(chan string)
	tok.Cancel()

	_, _, which := async.Select2(context.Background(), tok, a, b)
	require.Equal(t, -1, which)
}
