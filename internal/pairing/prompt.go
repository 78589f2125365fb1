package pairing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dokzlo13/qhue/internal/console"
)

// LinePrompter writes the instruction to out and waits for a line on in.
type LinePrompter struct {
	out    io.Writer
	reader *console.Reader
}

// NewLinePrompter creates a prompter reading from in, typically os.Stdin.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{out: out, reader: console.NewReader(in)}
}

// PressButton blocks until a line is read or ctx is done. The end of the
// input counts as a press.
func (p *LinePrompter) PressButton(ctx context.Context, attempt, total int) error {
	if total > 1 {
		fmt.Fprintf(p.out, "Press the Bridge button, then press Return (attempt %d of %d).\n", attempt, total)
	} else {
		fmt.Fprintln(p.out, "Press the Bridge button, then press Return.")
	}

	if _, err := p.reader.ReadLine(ctx); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
