package dataset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

type peekReader struct {
	*bufio.Reader
}

func newPeekReader(r io.Reader) *peekReader {
	return &peekReader{Reader: bufio.NewReaderSize(r, 64*1024)}
}

// sniff looks at the header line: tabs win over commas.
func (p *peekReader) sniff() (rune, error) {
	head, err := p.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return 0, fmt.Errorf("read dataset: %w", err)
	}
	if len(head) == 0 {
		return 0, fmt.Errorf("empty dataset")
	}
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.IndexByte(head, '\t') >= 0 {
		return '\t', nil
	}
	return ',', nil
}
