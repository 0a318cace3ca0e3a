package simnet

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jihwankim/dst-sim/pkg/determinism"
)

// simStream is a virtual TCP connection: writes are scheduled for delivery
// a latency-drawn number of ticks in the future, enforcing the run's
// tcp_capacity on the link (spec §8 property 7) rather than delivering
// synchronously the way net.Pipe would.
type simStream struct {
	net        *Network
	peer       *simStream
	link       string
	inbox      chan []byte
	readBuf    []byte
	closed     chan struct{}
	closeOnce  sync.Once
}

func (n *Network) newStreamPair(a, b string) (*simStream, *simStream) {
	link := linkKey(a, b)
	s1 := &simStream{net: n, link: link, inbox: make(chan []byte, 64), closed: make(chan struct{})}
	s2 := &simStream{net: n, link: link, inbox: make(chan []byte, 64), closed: make(chan struct{})}
	s1.peer, s2.peer = s2, s1
	return s1, s2
}

func linkKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

func (s *simStream) Write(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	if err := s.net.reserveCapacity(s.link, uint64(len(p))); err != nil {
		return 0, err
	}
	cp := append([]byte(nil), p...)
	dst := s.peer
	link := s.link
	nbytes := uint64(len(cp))

	s.net.mu.Lock()
	wake := s.net.tick + s.net.latencyTicksLocked()
	s.net.mu.Unlock()

	s.net.due.push(wake, func() {
		s.net.releaseCapacity(link, nbytes)
		select {
		case dst.inbox <- cp:
		case <-dst.closed:
		}
	})
	return len(p), nil
}

func (s *simStream) Read(p []byte) (int, error) {
	for len(s.readBuf) == 0 {
		select {
		case b, ok := <-s.inbox:
			if !ok {
				return 0, io.EOF
			}
			s.readBuf = b
		case <-s.closed:
			return 0, io.EOF
		}
	}
	n := copy(p, s.readBuf)
	s.readBuf = s.readBuf[n:]
	return n, nil
}

func (s *simStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (n *Network) reserveCapacity(link string, nbytes uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.linkBytes[link]+nbytes > n.cfg.TCPCapacity {
		return fmt.Errorf("simnet: tcp_capacity exceeded on link %s", link)
	}
	n.linkBytes[link] += nbytes
	return nil
}

func (n *Network) releaseCapacity(link string, nbytes uint64) {
	n.mu.Lock()
	n.linkBytes[link] -= nbytes
	n.mu.Unlock()
}

// simListener accepts simStreams for one address.
type simListener struct {
	net       *Network
	addr      string
	acceptCh  chan *simStream
	closed    chan struct{}
	closeOnce sync.Once
}

func (l *simListener) Accept(ctx context.Context) (determinism.Stream, error) {
	select {
	case c := <-l.acceptCh:
		return c, nil
	case <-l.closed:
		return nil, fmt.Errorf("simnet: listener %q closed", l.addr)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *simListener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.net.mu.Lock()
		delete(l.net.listeners, l.addr)
		l.net.mu.Unlock()
	})
	return nil
}

func (l *simListener) Addr() string { return l.addr }

// Listen implements determinism.Dialer.
func (n *Network) Listen(ctx context.Context, addr string) (determinism.Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.listeners[addr]; exists {
		return nil, fmt.Errorf("simnet: address %q already in use", addr)
	}
	l := &simListener{net: n, addr: addr, acceptCh: make(chan *simStream, 16), closed: make(chan struct{})}
	n.listeners[addr] = l
	return l, nil
}

// Dial implements determinism.Dialer.
func (n *Network) Dial(ctx context.Context, addr string) (determinism.Stream, error) {
	n.mu.Lock()
	l, ok := n.listeners[addr]
	n.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("simnet: connection refused to %q", addr)
	}
	clientSide, serverSide := n.newStreamPair(fmt.Sprintf("client-%p", l), addr)
	select {
	case l.acceptCh <- serverSide:
		return clientSide, nil
	case <-l.closed:
		return nil, fmt.Errorf("simnet: connection refused to %q", addr)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
