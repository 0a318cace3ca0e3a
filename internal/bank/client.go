package bank

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jihwankim/dst-sim/pkg/determinism"
	"github.com/jihwankim/dst-sim/pkg/nettransport"
)

// Client is a thin wrapper over one connection to a Server, used both by
// the health-check client and the interaction-plan-driven client (spec
// §4.8).
type Client struct {
	conn determinism.Stream
	r    *bufio.Reader
}

// Dial connects to addr over the current run's TCP facade.
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, err := nettransport.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// Health issues spec §4.8's HEALTH\0 probe and reports whether the
// server answered healthy\0.
func (c *Client) Health() (bool, error) {
	if _, err := c.conn.Write([]byte(HealthRequest)); err != nil {
		return false, err
	}
	buf := make([]byte, len(HealthResponse))
	n, err := c.conn.Read(buf)
	if err != nil {
		return false, err
	}
	return string(buf[:n]) == HealthResponse, nil
}

// Create issues CREATE and returns the new entity, asserting (per spec
// §4.8) that the response parses as an entity record.
func (c *Client) Create(amount int64) (Entity, error) {
	if err := c.send(fmt.Sprintf("%s %d", opCreate, amount)); err != nil {
		return Entity{}, err
	}
	line, err := c.recvLine()
	if err != nil {
		return Entity{}, err
	}
	fields := strings.SplitN(line, " ", 2)
	if len(fields) != 2 || fields[0] != respCreated {
		return Entity{}, fmt.Errorf("bank client: unexpected create response %q", line)
	}
	return ParseEntity(fields[1])
}

// Get issues GET id. found is false on a NOTFOUND response; otherwise the
// response must parse back to an Entity with a matching id (spec §4.8).
func (c *Client) Get(id string) (e Entity, found bool, err error) {
	if err = c.send(opGet + " " + id); err != nil {
		return
	}
	line, err := c.recvLine()
	if err != nil {
		return
	}
	if line == respNotFound {
		return Entity{}, false, nil
	}
	fields := strings.SplitN(line, " ", 2)
	if len(fields) != 2 || fields[0] != respFound {
		return Entity{}, false, fmt.Errorf("bank client: unexpected get response %q", line)
	}
	e, err = ParseEntity(fields[1])
	if err != nil {
		return Entity{}, false, err
	}
	if e.ID != id {
		return Entity{}, false, fmt.Errorf("bank client: get(%s) returned id %s", id, e.ID)
	}
	return e, true, nil
}

// List issues LIST and returns every entity the server reports.
func (c *Client) List() ([]Entity, error) {
	if err := c.send(opList); err != nil {
		return nil, err
	}
	header, err := c.recvLine()
	if err != nil {
		return nil, err
	}
	fields := strings.SplitN(header, " ", 2)
	if len(fields) != 2 || fields[0] != respList {
		return nil, fmt.Errorf("bank client: unexpected list header %q", header)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("bank client: bad list count %q: %w", header, err)
	}
	out := make([]Entity, 0, n)
	for i := 0; i < n; i++ {
		line, err := c.recvLine()
		if err != nil {
			return nil, err
		}
		e, err := ParseEntity(line)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Void issues VOID id and reports whether the account existed to void.
func (c *Client) Void(id string) (bool, error) {
	if err := c.send(opVoid + " " + id); err != nil {
		return false, err
	}
	line, err := c.recvLine()
	if err != nil {
		return false, err
	}
	if line == respNotFound {
		return false, nil
	}
	fields := strings.SplitN(line, " ", 2)
	if len(fields) != 2 || fields[0] != respVoided || fields[1] != id {
		return false, fmt.Errorf("bank client: unexpected void response %q", line)
	}
	return true, nil
}

// Balance issues BALANCE and returns the raw "$<decimal>" response (spec
// §4.8: "response is $ followed by a parseable decimal").
func (c *Client) Balance() (string, error) {
	if err := c.send(opBalance); err != nil {
		return "", err
	}
	line, err := c.recvLine()
	if err != nil {
		return "", err
	}
	fields := strings.SplitN(line, " ", 2)
	if len(fields) != 2 || fields[0] != respBalance || !strings.HasPrefix(fields[1], "$") {
		return "", fmt.Errorf("bank client: unexpected balance response %q", line)
	}
	if _, err := strconv.ParseFloat(strings.TrimPrefix(fields[1], "$"), 64); err != nil {
		return "", fmt.Errorf("bank client: unparseable balance %q: %w", fields[1], err)
	}
	return fields[1], nil
}

func (c *Client) send(line string) error {
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

func (c *Client) recvLine() (string, error) {
	return readLine(c.r)
}
