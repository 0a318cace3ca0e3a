package bank

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jihwankim/dst-sim/pkg/determinism"
	"github.com/jihwankim/dst-sim/pkg/nettransport"
)

// Server is the banker host a scenario plants with Sim.Host (spec §4.8):
// it listens on addr for the lifetime of the run and serves every
// connection concurrently, restartable in place by Bounce since its
// Store is handed in fresh by the caller's factory closure.
type Server struct {
	addr  string
	store *Store

	// listOverride, when set, replaces List's result before it is
	// serialized — the hook spec §8's E3 end-to-end scenario uses to
	// deliberately regress the List endpoint to always answer empty.
	listOverride func([]Entity) []Entity
}

func NewServer(addr string, store *Store) *Server {
	return &Server{addr: addr, store: store}
}

// ServeWithListOverride behaves like Serve but passes every List result
// through override first.
func (s *Server) ServeWithListOverride(ctx context.Context, override func([]Entity) []Entity) error {
	s.listOverride = override
	return s.Serve(ctx)
}

// Serve blocks accepting connections until ctx is cancelled (by the
// topology tearing the host down or a Bounce), matching the host
// lifecycle spec §4.6 describes.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := nettransport.Listen(ctx, s.addr)
	if err != nil {
		return fmt.Errorf("bank: listen %s: %w", s.addr, err)
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bank: accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn determinism.Stream) {
	defer conn.Close()

	peek := make([]byte, len(HealthRequest))
	n, err := io.ReadFull(conn, peek)
	if err != nil {
		return
	}
	if string(peek[:n]) == HealthRequest {
		_, _ = conn.Write([]byte(HealthResponse))
		return
	}

	r := bufio.NewReader(io.MultiReader(bytes.NewReader(peek[:n]), conn))
	for {
		line, err := readLine(r)
		if err != nil {
			return
		}
		resp := s.handleLine(line)
		if _, err := conn.Write([]byte(resp + "\n")); err != nil {
			return
		}
	}
}

func (s *Server) handleLine(line string) string {
	var op, rest string
	if i := strings.IndexByte(line, ' '); i >= 0 {
		op, rest = line[:i], line[i+1:]
	} else {
		op = line
	}
	switch op {
	case opCreate:
		var amount int64
		if _, err := fmt.Sscanf(rest, "%d", &amount); err != nil {
			return "ERROR bad amount"
		}
		e := s.store.Create(amount)
		return respCreated + " " + e.Serialize()
	case opGet:
		e, ok := s.store.Get(rest)
		if !ok {
			return respNotFound
		}
		return respFound + " " + e.Serialize()
	case opList:
		entities := s.store.List()
		if s.listOverride != nil {
			entities = s.listOverride(entities)
		}
		out := fmt.Sprintf("%s %d", respList, len(entities))
		for _, e := range entities {
			out += "\n" + e.Serialize()
		}
		return out
	case opVoid:
		if s.store.Void(rest) {
			return respVoided + " " + rest
		}
		return respNotFound
	case opBalance:
		return fmt.Sprintf("%s $%d.00", respBalance, s.store.Balance())
	default:
		return "ERROR unknown op"
	}
}
