package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penplot/plotter/config"
)

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfig, "")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(bytes.NewReader(nil))
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPlotJSONOnSim(t *testing.T) {
	path := writeFile(t, "square.json", `[[[0,0],[10,0],[10,10]], [[4,4]]]`)

	out, err := execute(t, context.Background(), "--backend", "sim", "plot", path)
	require.NoError(t, err)
	assert.Equal(t, "plotted 1 contours: 20 x pulses, 20 y pulses\n", out)
}

func TestPlotGcodeOnSim(t *testing.T) {
	path := writeFile(t, "square.gcode", "G90\nG0 X0 Y0\nG1 X10 Y0\nG1 X10 Y10 ; corner\nM2\n")

	out, err := execute(t, context.Background(), "--backend", "sim", "--log-format", "json", "plot", path)
	require.NoError(t, err)
	assert.Equal(t, "plotted 1 contours: 20 x pulses, 20 y pulses\n", out)
}

func TestPlotRejectsOffCanvas(t *testing.T) {
	path := writeFile(t, "bad.json", `[[[0,0],[-1,3]]]`)

	_, err := execute(t, context.Background(), "--backend", "sim", "plot", path)
	assert.ErrorContains(t, err, "negative coordinate")
	assert.Equal(t, exitError, exitCode(err))
}

func TestPlotInterrupted(t *testing.T) {
	path := writeFile(t, "line.json", `[[[5,5],[40,40]]]`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := execute(t, ctx, "--backend", "sim", "plot", path)
	assert.Equal(t, exitInterrupted, exitCode(err))
}

func TestCheckPrintsConfig(t *testing.T) {
	out, err := execute(t, context.Background(), "--backend", "sim", "check", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "config ok: backend sim, x 2 motor(s), y 1 motor(s)")
	assert.Contains(t, out, "steps_per_pixel: 1")
	assert.Contains(t, out, "canvas_size: 480")
}

func TestCheckRejectsUnknownBackend(t *testing.T) {
	_, err := execute(t, context.Background(), "--backend", "plasma", "check")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}
