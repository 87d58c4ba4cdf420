package alerts

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Writer handles alert output.
type Writer interface {
	WriteAlert(alert *Alert) error
}

// WriterFunc is an adapter to allow functions to be used as Writers.
type WriterFunc func(*Alert) error

// WriteAlert calls the function.
func (f WriterFunc) WriteAlert(alert *Alert) error {
	return f(alert)
}

// DiscardWriter is a Writer that discards all alerts.
var DiscardWriter Writer = WriterFunc(func(*Alert) error { return nil })

// TextWriter prints alerts as lines, colored when writing to a terminal.
type TextWriter struct {
	w        io.Writer
	useColor bool
}

// NewTextWriter creates a TextWriter. Color is used only when w is a terminal
// and noColor is false.
func NewTextWriter(w io.Writer, noColor bool) *TextWriter {
	return &TextWriter{w: w, useColor: !noColor && isTerminal(w)}
}

// WriteAlert writes the alert line followed by its indented details.
func (tw *TextWriter) WriteAlert(alert *Alert) error {
	line := alert.String()
	if tw.useColor {
		line = alert.Level.Color() + line + resetColor
	}
	_, err := fmt.Fprintf(tw.w, "%s\n%s", line, joinDetails(alert.Details))
	return err
}

// WriteAll writes every alert, stopping at the first write error.
func WriteAll(w Writer, alerts []*Alert) error {
	for _, a := range alerts {
		if err := w.WriteAlert(a); err != nil {
			return err
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
