package archive

import (
	"bytes"
	"errors"
	"io"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 64 * 1024

// Chunks iterates over a byte stream in fixed-size reads.
//
//	c := archive.NewChunks(r, 0)
//	for c.Next() {
//		use(c.Bytes())
//	}
//	if err := c.Err(); err != nil { ... }
type Chunks struct {
	r   io.Reader
	buf []byte
	n   int
	err error
}

// NewChunks returns a chunk iterator over r. size below 1 selects
// DefaultChunkSize.
func NewChunks(r io.Reader, size int) *Chunks {
	if size < 1 {
		size = DefaultChunkSize
	}
	return &Chunks{r: r, buf: make([]byte, size)}
}

// Next reads the next chunk. It returns false at the end of the stream or
// on error.
func (c *Chunks) Next() bool {
	if c.err != nil {
		return false
	}
	for {
		n, err := c.r.Read(c.buf)
		c.n = n
		if err != nil {
			c.err = err
		}
		if n > 0 {
			return true
		}
		if err != nil {
			return false
		}
	}
}

// Bytes returns the current chunk. It is only valid until the next call
// to Next.
func (c *Chunks) Bytes() []byte { return c.buf[:c.n] }

// Err returns the first non-EOF error.
func (c *Chunks) Err() error {
	if errors.Is(c.err, io.EOF) {
		return nil
	}
	return c.err
}

// LineSplitter turns a sequence of chunks into lines. Bytes after the last
// newline of a chunk are carried into the next one, so the lines produced
// do not depend on where chunk boundaries fall. A trailing "\r" is removed.
type LineSplitter struct {
	carry   []byte
	flushed bool
}

// Feed emits every line completed by chunk.
func (s *LineSplitter) Feed(chunk []byte, emit func(line string) error) error {
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			s.carry = append(s.carry, chunk...)
			return nil
		}
		var line []byte
		if len(s.carry) > 0 {
			line = append(s.carry, chunk[:i]...)
			s.carry = s.carry[:0]
		} else {
			line = chunk[:i]
		}
		if err := emit(string(bytes.TrimSuffix(line, []byte{'\r'}))); err != nil {
			return err
		}
		chunk = chunk[i+1:]
	}
	return nil
}

// Flush emits the carried remainder as the final line. Only the first call
// has an effect.
func (s *LineSplitter) Flush(emit func(line string) error) error {
	if s.flushed {
		return nil
	}
	s.flushed = true
	if len(s.carry) == 0 {
		return nil
	}
	line := string(bytes.TrimSuffix(s.carry, []byte{'\r'}))
	s.carry = nil
	return emit(line)
}

// ReadLines streams r through a LineSplitter in chunks of chunkSize and
// calls emit with each line and its 1-based number.
func ReadLines(r io.Reader, chunkSize int, emit func(n int, line string) error) error {
	var (
		sp LineSplitter
		n  int
	)
	count := func(line string) error {
		n++
		return emit(n, line)
	}
	c := NewChunks(r, chunkSize)
	for c.Next() {
		if err := sp.Feed(c.Bytes(), count); err != nil {
			return err
		}
	}
	if err := c.Err(); err != nil {
		return err
	}
	return sp.Flush(count)
}
