package determinism

import (
	"context"
	"io"
)

// Stream is a byte-oriented connection, real (net.Conn) or simulated.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}

// Listener accepts Streams, real (net.Listener) or simulated.
type Listener interface {
	Accept(ctx context.Context) (Stream, error)
	Close() error
	Addr() string
}

// Dialer is the capability the TCP facade needs from the Topology: connect
// to and listen on named endpoints inside the virtual network. Declared
// here, alongside Sleeper, so pkg/nettransport can depend on determinism
// without depending on pkg/simnet directly.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Stream, error)
	Listen(ctx context.Context, addr string) (Listener, error)
}
