package simnet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/dst-sim/pkg/config"
	"github.com/jihwankim/dst-sim/pkg/determinism"
	"github.com/jihwankim/dst-sim/pkg/simnet"
)

func newTopology(t *testing.T, cfg config.SimConfig) (*simnet.Network, *determinism.Env, simnet.PanicHook) {
	t.Helper()
	var hooked struct {
		name string
		val  interface{}
	}
	hook := func(name string, recovered interface{}) {
		hooked.name = name
		hooked.val = recovered
	}
	global := determinism.NewCancelToken(nil)
	batch := determinism.NewCancelToken(global)
	env := determinism.NewEnv(0, 1, 0, 1, global, batch)
	topo := simnet.New(&cfg, env, hook)
	env.Net = topo
	return topo, env, hook
}

func pump(t *testing.T, topo *simnet.Network, done <-chan struct{}) {
	t.Helper()
	for i := 0; i < 10000; i++ {
		select {
		case <-done:
			return
		default:
		}
		if _, err := topo.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	t.Fatal("topology never settled")
}

func baseCfg() config.SimConfig {
	cfg := config.DefaultSimConfig()
	cfg.TickDuration = time.Millisecond
	return cfg
}

func TestDialRefusedWithoutListener(t *testing.T) {
	topo, env, _ := newTopology(t, baseCfg())
	done := make(chan struct{})
	require.NoError(t, topo.Client("dialer", func(ctx context.Context) error {
		defer close(done)
		ctx = determinism.WithEnv(ctx, env)
		_, err := topo.Dial(ctx, "nobody:1")
		require.Error(t, err)
		return nil
	}))
	pump(t, topo, done)
}

func TestListenDialWriteReadRoundTrip(t *testing.T) {
	topo, env, _ := newTopology(t, baseCfg())
	ctx := determinism.WithEnv(context.Background(), env)

	accepted := make(chan struct{})
	require.NoError(t, topo.Host("server", func(ctx context.Context) error {
		l, err := topo.Listen(ctx, "server:1")
		if err != nil {
			return err
		}
		conn, err := l.Accept(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		buf := make([]byte, 5)
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		if string(buf[:n]) != "hello" {
			t.Errorf("server read %q", buf[:n])
		}
		close(accepted)
		return nil
	}))

	done := make(chan struct{})
	require.NoError(t, topo.Client("client", func(context.Context) error {
		defer close(done)
		conn, err := topo.Dial(ctx, "server:1")
		if err != nil {
			return err
		}
		defer conn.Close()
		_, err = conn.Write([]byte("hello"))
		return err
	}))

	pump(t, topo, accepted)
	pump(t, topo, done)
}

func TestSecondListenOnSameAddrFails(t *testing.T) {
	topo, env, _ := newTopology(t, baseCfg())
	ctx := determinism.WithEnv(context.Background(), env)
	_, err := topo.Listen(ctx, "server:1")
	require.NoError(t, err)
	_, err = topo.Listen(ctx, "server:1")
	require.Error(t, err)
}

func TestWriteRejectedOverTCPCapacity(t *testing.T) {
	cfg := baseCfg()
	cfg.TCPCapacity = 4
	topo, env, _ := newTopology(t, cfg)
	ctx := determinism.WithEnv(context.Background(), env)

	l, err := topo.Listen(ctx, "server:1")
	require.NoError(t, err)
	go func() { _, _ = l.Accept(ctx) }()

	done := make(chan struct{})
	require.NoError(t, topo.Client("client", func(context.Context) error {
		defer close(done)
		conn, err := topo.Dial(ctx, "server:1")
		if err != nil {
			return err
		}
		defer conn.Close()
		_, err = conn.Write([]byte("too-long"))
		require.Error(t, err)
		return nil
	}))

	pump(t, topo, done)
}

func TestClientRegisteredTwiceErrors(t *testing.T) {
	topo, _, _ := newTopology(t, baseCfg())
	require.NoError(t, topo.Client("dup", func(context.Context) error { return nil }))
	require.Error(t, topo.Client("dup", func(context.Context) error { return nil }))
}

func TestHostRegistrationIsIdempotent(t *testing.T) {
	topo, _, _ := newTopology(t, baseCfg())
	calls := 0
	factory := func(context.Context) error { calls++; return nil }
	require.NoError(t, topo.Host("h", factory))
	require.NoError(t, topo.Host("h", factory))
	require.Equal(t, 1, calls)
}

func TestStepReportsSettledWhenAllTasksDone(t *testing.T) {
	topo, _, _ := newTopology(t, baseCfg())
	settled, err := topo.Step()
	require.NoError(t, err)
	require.False(t, settled, "no tasks registered yet still reports not settled")

	require.NoError(t, topo.Client("noop", func(context.Context) error { return nil }))
	require.Eventually(t, func() bool {
		settled, err := topo.Step()
		return err == nil && settled
	}, time.Second, time.Millisecond)
}

func TestHostPanicCapturedByHook(t *testing.T) {
	panicked := make(chan struct{})
	var seenName string
	var seenVal interface{}

	global := determinism.NewCancelToken(nil)
	batch := determinism.NewCancelToken(global)
	env := determinism.NewEnv(0, 1, 0, 1, global, batch)
	cfg := baseCfg()
	topo := simnet.New(&cfg, env, func(name string, recovered interface{}) {
		seenName = name
		seenVal = recovered
		close(panicked)
	})
	env.Net = topo

	require.NoError(t, topo.Host("h", func(context.Context) error {
		panic("boom")
	}))
	<-panicked
	require.Equal(t, "h", seenName)
	require.Equal(t, "boom", seenVal)
}

func TestBounceRestartsHostAfterCancellingPrevious(t *testing.T) {
	topo, _, _ := newTopology(t, baseCfg())
	starts := make(chan int, 4)
	n := 0
	require.NoError(t, topo.Host("h", func(ctx context.Context) error {
		n++
		starts <- n
		<-ctx.Done()
		return nil
	}))
	require.Equal(t, 1, <-starts)

	require.NoError(t, topo.Bounce("h"))
	require.Equal(t, 2, <-starts)
}

func TestBounceUnknownHostErrors(t *testing.T) {
	topo, _, _ := newTopology(t, baseCfg())
	require.Error(t, topo.Bounce("nope"))
}

func TestSleepUntilResumesAfterEnoughSteps(t *testing.T) {
	topo, env, _ := newTopology(t, baseCfg())
	ctx := determinism.WithEnv(context.Background(), env)

	woke := make(chan struct{})
	require.NoError(t, topo.Client("sleeper", func(context.Context) error {
		defer close(woke)
		return topo.SleepUntil(ctx, 5*time.Millisecond)
	}))
	pump(t, topo, woke)
}

func TestElapsedAdvancesByTickDurationPerStep(t *testing.T) {
	topo, _, _ := newTopology(t, baseCfg())
	before := topo.Elapsed()
	_, err := topo.Step()
	require.NoError(t, err)
	require.Equal(t, before+time.Millisecond, topo.Elapsed())
}
