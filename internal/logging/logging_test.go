package logging

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger() (*DefaultLogger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &DefaultLogger{
		stdout: log.New(&out, "", 0),
		stderr: log.New(&errOut, "", 0),
		level:  InfoLevel,
		fields: make(Fields),
		exit:   func(int) {},
	}, &out, &errOut
}

func TestLevelFiltering(t *testing.T) {
	logger, out, _ := newTestLogger()

	logger.Debug("hidden")
	assert.Empty(t, out.String())

	logger.SetLevel(DebugLevel)
	logger.Debug("visible")
	assert.Contains(t, out.String(), "[DEBUG] visible")
}

func TestWarnGoesToStderr(t *testing.T) {
	logger, out, errOut := newTestLogger()

	logger.Warn("careful")
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "[WARN] careful")
}

func TestWithFieldsAppearSorted(t *testing.T) {
	logger, out, _ := newTestLogger()

	child := logger.WithFields(Fields{"run": "abc"})
	child.Info("step", Fields{"epoch": 3})

	assert.Contains(t, out.String(), "epoch=3 run=abc")
}

func TestFatalCallsExit(t *testing.T) {
	logger, _, errOut := newTestLogger()

	exited := false
	logger.exit = func(code int) { exited = true }
	logger.Fatal(assert.AnError, "boom")

	assert.True(t, exited)
	assert.Contains(t, errOut.String(), "[FATAL] boom")
}
