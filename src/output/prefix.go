package output

import (
	"bytes"
	"io"
	"sync"
)

// PrefixWriter is a line-buffered io.Writer that prepends a fixed prefix
// to every line it forwards. Concurrent build jobs each get their own
// PrefixWriter over a shared destination so interleaved output stays
// attributable to one architecture. Writes to the destination are
// serialized through mu, which callers share across sibling writers.
type PrefixWriter struct {
	dst    io.Writer
	prefix []byte
	mu     *sync.Mutex
	buf    bytes.Buffer
}

// NewPrefixWriter returns a writer that prefixes each line with
// "[name] ". Writers sharing mu never interleave partial lines.
func NewPrefixWriter(dst io.Writer, name string, mu *sync.Mutex) *PrefixWriter {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &PrefixWriter{
		dst:    dst,
		prefix: []byte("[" + name + "] "),
		mu:     mu,
	}
}

func (p *PrefixWriter) Write(b []byte) (int, error) {
	p.buf.Write(b)
	for {
		line, err := p.buf.ReadBytes('\n')
		if err != nil {
			// Incomplete line stays buffered until the next write.
			p.buf.Write(line)
			break
		}
		if werr := p.emit(line); werr != nil {
			return len(b), werr
		}
	}
	return len(b), nil
}

// Flush writes any buffered partial line, terminating it with a newline.
// Call once after the wrapped job finishes.
func (p *PrefixWriter) Flush() error {
	if p.buf.Len() == 0 {
		return nil
	}
	line := append(p.buf.Bytes(), '\n')
	p.buf.Reset()
	return p.emit(line)
}

func (p *PrefixWriter) emit(line []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.dst.Write(p.prefix); err != nil {
		return err
	}
	_, err := p.dst.Write(line)
	return err
}
