// Package kfmt provides formatted output for the memory manager. Output
// emitted before a sink is registered is captured by a ring buffer and
// replayed once SetOutputSink is invoked.
package kfmt

import (
	"fmt"
	"io"
)

var (
	// earlyPrintBuffer buffers Printf output before an output sink is set.
	earlyPrintBuffer ringBuffer

	// outputSink is the writer that receives Printf output. If nil, output
	// is redirected to earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default output sink and flushes any data buffered
// while no sink was active.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// Printf provides a printf-style interface around the active output sink.
func Printf(format string, args ...interface{}) {
	if outputSink == nil {
		fmt.Fprintf(&earlyPrintBuffer, format, args...)
		return
	}

	fmt.Fprintf(outputSink, format, args...)
}

// Fprintf writes a formatted message to the supplied io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}
