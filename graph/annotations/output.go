package annotations

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// latencyBands colors a duration by the first band it falls under
var latencyBands = []struct {
	below time.Duration
	color color.Attribute
}{
	{50 * time.Millisecond, color.FgGreen},
	{200 * time.Millisecond, color.FgYellow},
	{1<<63 - 1, color.FgRed},
}

// OutputFormatter renders events as one line each. Color is used only when
// writing to a terminal.
type OutputFormatter struct {
	writer io.Writer
	color  bool
}

// NewOutputFormatter writes to w, or stdout when w is nil
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}
	f := &OutputFormatter{writer: w}
	if file, ok := w.(*os.File); ok {
		f.color = isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
	}
	return f
}

// Handle prints event. It satisfies Handler.
func (f *OutputFormatter) Handle(event Event) {
	if line := f.Format(event); line != "" {
		fmt.Fprintln(f.writer, line)
	}
}

// Format renders event without the trailing newline
func (f *OutputFormatter) Format(event Event) string {
	d := event.Data
	var body string

	switch event.Name {
	case TxCommitted:
		body = fmt.Sprintf("%s %v committed", f.paint("tx", color.FgGreen), d["op"])
	case TxRolledBack:
		body = fmt.Sprintf("%s %v rolled back: %v", f.paint("✗", color.FgRed), d["op"], d["error"])
	case IndexCreated, IndexDropped:
		body = fmt.Sprintf("%s %v%v (id %v)", f.paint(event.Name, color.FgYellow), d["kind"], d["fields"], d["index"])
	case IndexBackfilled:
		body = fmt.Sprintf("backfilled index %v with %s", d["index"], f.count(d["count"], "entities"))
	case NeighborsIndexed, NeighborsScanned:
		via := f.paint("scan", color.FgBlue)
		if event.Name == NeighborsIndexed {
			via = f.paint("index", color.FgCyan)
		}
		body = fmt.Sprintf("%v.%v via %s (indexed=%v sequential=%v → %s)",
			d["entity"], d["slot"], via, d["indexed"], d["sequential"], f.count(d["result"], "ids"))
	case QueryIndexed, QueryScanned:
		via := "scan"
		if event.Name == QueryIndexed {
			via = "index"
		}
		body = fmt.Sprintf("%v%v via %s → %s", d["kind"], d["filter"], via, f.count(d["result"], "ids"))
	case TraversalComplete:
		body = fmt.Sprintf("%s %v %v produced %s", f.paint("===", color.FgGreen),
			d["path"], d["terminal"], f.count(d["count"], "items"))
	default:
		body = fmt.Sprintf("%s %v", event.Name, d)
	}
	return f.latency(event.Latency) + " " + body
}

// latency renders [12µs] below a millisecond and [3.4ms] above
func (f *OutputFormatter) latency(d time.Duration) string {
	var s string
	if d < time.Millisecond {
		s = fmt.Sprintf("[%dµs]", d.Microseconds())
	} else {
		s = fmt.Sprintf("[%.1fms]", float64(d.Microseconds())/1000)
	}
	for _, band := range latencyBands {
		if d < band.below {
			return f.paint(s, band.color)
		}
	}
	return s
}

func (f *OutputFormatter) count(n any, label string) string {
	return f.paint(fmt.Sprintf("%v %s", n, label), color.FgMagenta)
}

func (f *OutputFormatter) paint(text string, attrs ...color.Attribute) string {
	if !f.color {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler prints events to stderr
func ConsoleHandler() Handler {
	return NewOutputFormatter(os.Stderr).Handle
}
