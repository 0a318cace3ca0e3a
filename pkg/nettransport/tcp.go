// Package nettransport is the polymorphic TCP facade: TcpListener and
// TcpStream resolve to OS sockets or to the virtual topology depending on
// whether ctx carries a *determinism.Env with a bound Topology — one Go
// interface, two concrete implementations sharing the same call sites.
package nettransport

import (
	"context"
	"net"

	"github.com/jihwankim/dst-sim/pkg/determinism"
)

// Dial connects to addr, over a real socket or the current run's topology.
func Dial(ctx context.Context, addr string) (determinism.Stream, error) {
	if env := determinism.FromContext(ctx); env != nil && env.Net != nil {
		return env.Net.Dial(ctx, addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// Listen binds addr, over a real socket or the current run's topology.
func Listen(ctx context.Context, addr string) (determinism.Listener, error) {
	if env := determinism.FromContext(ctx); env != nil && env.Net != nil {
		return env.Net.Listen(ctx, addr)
	}
	ln, err := new(net.ListenConfig).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return realListener{ln}, nil
}

type realListener struct{ ln net.Listener }

func (r realListener) Accept(ctx context.Context) (determinism.Stream, error) {
	type result struct {
		c   net.Conn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := r.ln.Accept()
		ch <- result{c, err}
	}()
	select {
	case res := <-ch:
		return res.c, res.err
	case <-ctx.Done():
		r.ln.Close()
		return nil, ctx.Err()
	}
}

func (r realListener) Close() error  { return r.ln.Close() }
func (r realListener) Addr() string  { return r.ln.Addr().String() }
