package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/morikuni/aec"
	"golang.org/x/time/rate"
)

// OutputFormat is the CLI's --format selection: text, json, or tui.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatTUI  OutputFormat = "tui"
)

// ResolveFormat downgrades "tui" to "text" when NO_TUI is set or stdout
// is not a terminal, before ever drawing a gauge.
func ResolveFormat(requested OutputFormat, noTUI bool, out *os.File) OutputFormat {
	if requested != FormatTUI {
		return requested
	}
	if noTUI {
		return FormatText
	}
	if out != nil && !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd()) {
		return FormatText
	}
	return FormatTUI
}

// WorkerProgress is one worker's last-known position in the batch, the
// unit the TUI dashboard gauges are drawn from.
type WorkerProgress struct {
	WorkerID  int
	RunNumber int
	Step      uint64
	Fraction  float64 // step*tick_duration / duration, 0 when unbounded
	Done      int
	Failed    int
}

// Dashboard is the optional TUI progress reporter, drawing one gauge per
// worker since the harness drives many concurrent runs rather than one.
// Repaints are throttled by golang.org/x/time/rate so a tight tick loop
// logging progress frequently does not thrash the terminal.
type Dashboard struct {
	mu      sync.Mutex
	out     io.Writer
	format  OutputFormat
	workers map[int]WorkerProgress
	limiter *rate.Limiter
	lines   int // lines drawn on the previous repaint, for cursor-up erase
}

func NewDashboard(out io.Writer, format OutputFormat) *Dashboard {
	return &Dashboard{
		out:     out,
		format:  format,
		workers: make(map[int]WorkerProgress),
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
}

// Update records a worker's latest progress and repaints if the format is
// TUI and the repaint limiter allows it.
func (d *Dashboard) Update(p WorkerProgress) {
	d.mu.Lock()
	d.workers[p.WorkerID] = p
	d.mu.Unlock()

	if d.format != FormatTUI || !d.limiter.Allow() {
		return
	}
	d.repaint()
}

// repaint redraws every worker's gauge in place using aec's cursor
// controls rather than raw ANSI escape strings.
func (d *Dashboard) repaint() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]int, 0, len(d.workers))
	for id := range d.workers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	if d.lines > 0 {
		fmt.Fprint(d.out, aec.Up(uint(d.lines)))
	}
	for _, id := range ids {
		p := d.workers[id]
		fmt.Fprint(d.out, aec.EraseLine(aec.EraseModes.All))
		fmt.Fprintln(d.out, gaugeLine(p))
	}
	d.lines = len(ids)
}

func gaugeLine(p WorkerProgress) string {
	const width = 30
	filled := int(p.Fraction * width)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", width-filled)
	return fmt.Sprintf("worker %-2d [%s] run %-4d step %-8d done %-4d failed %-4d",
		p.WorkerID, bar, p.RunNumber, p.Step, p.Done, p.Failed)
}

// Finish erases the dashboard's last paint, leaving the cursor at the
// start of a clean line for the final batch summary.
func (d *Dashboard) Finish() {
	if d.format != FormatTUI {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lines > 0 {
		fmt.Fprint(d.out, aec.Up(uint(d.lines)))
		for i := 0; i < d.lines; i++ {
			fmt.Fprint(d.out, aec.EraseLine(aec.EraseModes.All))
			fmt.Fprintln(d.out)
		}
		fmt.Fprint(d.out, aec.Up(uint(d.lines)))
	}
}
