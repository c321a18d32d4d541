package gcode

import (
	"io"
	"sync"
)

// CommentPrefix marks a reply line as informational. Hosts echo these lines
// and never mistake them for "ok" or "!!" replies.
const CommentPrefix = "// "

// CommentWriter prefixes every line written through it with CommentPrefix,
// so diagnostics can share the reply channel with command acknowledgements.
// A line split across several writes is prefixed once.
type CommentWriter struct {
	mu      sync.Mutex
	w       io.Writer
	midLine bool
	buf     []byte
}

// NewCommentWriter wraps w
func NewCommentWriter(w io.Writer) *CommentWriter {
	return &CommentWriter{w: w}
}

func (c *CommentWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.buf[:0]
	for _, b := range p {
		if !c.midLine {
			out = append(out, CommentPrefix...)
			c.midLine = true
		}
		out = append(out, b)
		if b == '\n' {
			c.midLine = false
		}
	}
	c.buf = out

	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
