// Package console reads interactive input one line at a time.
package console

import (
	"bufio"
	"context"
	"io"
	"sync"
)

type line struct {
	text string
	err  error
}

// Reader hands out lines read from an input by a single background
// goroutine. A ReadLine abandoned through its context leaves the next line
// for the following call, so the input is never read concurrently.
type Reader struct {
	in    io.Reader
	once  sync.Once
	lines chan line
}

// NewReader creates a reader on in, typically os.Stdin. Nothing is read
// until the first ReadLine.
func NewReader(in io.Reader) *Reader {
	return &Reader{in: in, lines: make(chan line)}
}

func (r *Reader) start() {
	go func() {
		br := bufio.NewReader(r.in)
		for {
			text, err := br.ReadString('\n')
			r.lines <- line{text, err}
			if err != nil {
				close(r.lines)
				return
			}
		}
	}()
}

// ReadLine returns the next line including its newline. At the end of the
// input the final partial line is returned with io.EOF, and every later
// call returns io.EOF.
func (r *Reader) ReadLine(ctx context.Context) (string, error) {
	r.once.Do(r.start)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}
