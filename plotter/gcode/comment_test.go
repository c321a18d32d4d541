package gcode

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentWriterPrefixesLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewCommentWriter(&buf)

	n, err := w.Write([]byte("first\nsecond\n"))
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	_, _ = w.Write([]byte("split "))
	_, _ = w.Write([]byte("line\n"))

	assert.Equal(t, "// first\n// second\n// split line\n", buf.String())
}

func TestCommentWriterKeepsRepliesApart(t *testing.T) {
	var serial bytes.Buffer
	logger := slog.New(slog.NewTextHandler(NewCommentWriter(&serial), nil))

	serial.WriteString("ok\n")
	logger.Warn("plan aborted", "err", "pulse fault")
	serial.WriteString("!! pulse fault\n")

	lines := strings.Split(strings.TrimSuffix(serial.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ok", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], CommentPrefix), lines[1])
	assert.Contains(t, lines[1], `msg="plan aborted"`)
	assert.Equal(t, "!! pulse fault", lines[2])
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("tx fault")
}

func TestCommentWriterError(t *testing.T) {
	n, err := NewCommentWriter(failWriter{}).Write([]byte("x\n"))
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}
