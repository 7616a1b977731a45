package export

import (
	"bufio"
	"errors"
	"io"
	"iter"
)

// flushEvery is how many lines are buffered before a flush, so a reader of
// a pipe sees output while a long listing is still being written.
const flushEvery = 64

// Emit writes each line followed by '\n' and returns the number of lines
// written. Whatever was written is flushed, also when a write fails.
func Emit(lines iter.Seq[string], w io.Writer) (n int, err error) {
	bw := bufio.NewWriter(w)
	defer func() {
		if ferr := bw.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}()

	for line := range lines {
		if _, err = bw.WriteString(line); err != nil {
			return n, err
		}
		if err = bw.WriteByte('\n'); err != nil {
			return n, err
		}
		n++
		if n%flushEvery == 0 {
			if err = bw.Flush(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// IsMalformed reports whether err came from ParseLine rejecting its input.
func IsMalformed(err error) bool {
	return errors.Is(err, errMalformed)
}
