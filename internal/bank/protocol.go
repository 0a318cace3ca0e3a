// Package bank is an example service under test: a toy banking TCP server
// speaking a tiny line protocol, reachable through the polymorphic TCP
// facade (pkg/nettransport) so it runs identically over a real socket or
// the virtual topology. It is deliberately ordinary application code, not
// part of the simulation harness itself.
package bank

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// Entity is one bank account record.
type Entity struct {
	ID     string
	Amount int64
}

// Serialize renders an Entity the way the wire protocol and the
// persistence log both expect: "<id> <amount>".
func (e Entity) Serialize() string {
	return fmt.Sprintf("%s %d", e.ID, e.Amount)
}

// ParseEntity parses Serialize's output back into an Entity, satisfying
// spec §4.8's "Get response ... serialized form parses back to the
// original" invariant.
func ParseEntity(s string) (Entity, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Entity{}, fmt.Errorf("bank: malformed entity %q", s)
	}
	amount, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Entity{}, fmt.Errorf("bank: malformed amount in %q: %w", s, err)
	}
	return Entity{ID: fields[0], Amount: amount}, nil
}

// Health is the health-check opcode: a lone NUL-terminated line rather
// than readLine's newline-delimited framing, sent and answered
// literally.
const (
	HealthRequest  = "HEALTH\x00"
	HealthResponse = "healthy\x00"
)

// Opcodes for the newline-delimited request lines. VOID cancels an
// existing account outright rather than reversing it with a
// compensating entry, the simplest reading of "void" for a toy ledger.
const (
	opCreate  = "CREATE"
	opGet     = "GET"
	opList    = "LIST"
	opBalance = "BALANCE"
	opVoid    = "VOID"

	respCreated  = "CREATED"
	respFound    = "FOUND"
	respNotFound = "NOTFOUND"
	respList     = "LIST"
	respBalance  = "BALANCE"
	respVoided   = "VOIDED"
)

// readLine reads one newline-terminated request/response line, trimming
// the trailing '\n' (and any '\r' a real socket might carry).
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
