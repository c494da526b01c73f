// Package errw provides a sticky-error io.Writer wrapper, letting a
// sequence of writes (one per disassembled instruction) skip per-call
// error checks and be checked once at the end.
package errw

import (
	"io"

	"github.com/pkg/errors"
)

// Writer wraps an io.Writer and remembers the first error any Write
// call returns; once set, every subsequent Write is a no-op that
// returns the same error.
type Writer struct {
	w   io.Writer
	Err error
}

func (w *Writer) Write(p []byte) (n int, err error) {
	if w.Err != nil {
		return 0, w.Err
	}
	n, err = w.w.Write(p)
	if err != nil {
		w.Err = errors.Wrap(err, "write failed")
	}
	return n, w.Err
}

// New returns a Writer wrapping w.
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}
