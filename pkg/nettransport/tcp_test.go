package nettransport_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/dst-sim/pkg/config"
	"github.com/jihwankim/dst-sim/pkg/determinism"
	"github.com/jihwankim/dst-sim/pkg/nettransport"
	"github.com/jihwankim/dst-sim/pkg/simnet"
)

func TestRealBackendListenDialRoundTrip(t *testing.T) {
	ctx := context.Background()
	ln, err := nettransport.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan error, 1)
	go func() {
		conn, err := ln.Accept(ctx)
		if err != nil {
			accepted <- err
			return
		}
		defer conn.Close()
		buf := make([]byte, 5)
		_, err = io.ReadFull(conn, buf)
		accepted <- err
	}()

	conn, err := nettransport.Dial(ctx, ln.Addr())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("hello"))
	require.NoError(t, err)

	select {
	case err := <-accepted:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("accept goroutine never reported back")
	}
}

func TestRealBackendAcceptHonorsContextCancellation(t *testing.T) {
	ln, err := nettransport.Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ln.Accept(ctx)
	require.Error(t, err)
}

func newVirtualEnvCtx(t *testing.T) context.Context {
	t.Helper()
	cfg := config.DefaultSimConfig()
	cfg.TickDuration = time.Millisecond
	global := determinism.NewCancelToken(nil)
	batch := determinism.NewCancelToken(global)
	env := determinism.NewEnv(0, 1, 0, 1, global, batch)
	topo := simnet.New(&cfg, env, nil)
	env.Net = topo
	return determinism.WithEnv(context.Background(), env)
}

func TestVirtualBackendDelegatesToTopologyWhenEnvBound(t *testing.T) {
	ctx := newVirtualEnvCtx(t)
	env := determinism.FromContext(ctx)
	topo := env.Net.(*simnet.Network)

	require.NoError(t, topo.Host("server", func(ctx context.Context) error {
		l, err := nettransport.Listen(ctx, "server:1")
		if err != nil {
			return err
		}
		conn, err := l.Accept(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		buf := make([]byte, 2)
		_, err = conn.Read(buf)
		return err
	}))

	done := make(chan struct{})
	require.NoError(t, topo.Client("client", func(ctx context.Context) error {
		defer close(done)
		conn, err := nettransport.Dial(ctx, "server:1")
		if err != nil {
			return err
		}
		defer conn.Close()
		_, err = conn.Write([]byte("hi"))
		return err
	}))

	for i := 0; i < 10000; i++ {
		select {
		case <-done:
			return
		default:
		}
		_, err := topo.Step()
		require.NoError(t, err)
	}
	t.Fatal("virtual topology never settled")
}

func TestVirtualBackendDialRefusedWithoutAListener(t *testing.T) {
	ctx := newVirtualEnvCtx(t)
	_, err := nettransport.Dial(ctx, "nobody:1")
	require.Error(t, err)
}
