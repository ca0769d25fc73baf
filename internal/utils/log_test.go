package utils

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	b := &bytes.Buffer{}
	log.SetOutput(b)
	t.Cleanup(func() { log.SetOutput(os.Stdout) })
	return b
}

func TestLogLevels(t *testing.T) {
	b := captureOutput(t)
	logger := DefaultLogger.WithPrefix("")

	logger.SetLogLevel(LogLevelNothing)
	logger.Errorf("err")
	logger.Infof("info")
	logger.Debugf("debug")
	require.Zero(t, b.Len())

	logger.SetLogLevel(LogLevelError)
	logger.Errorf("err")
	logger.Infof("info")
	logger.Debugf("debug")
	require.Contains(t, b.String(), "err\n")
	require.NotContains(t, b.String(), "info")

	logger.SetLogLevel(LogLevelDebug)
	require.True(t, logger.Debug())
	logger.Infof("info")
	logger.Debugf("debug")
	require.Contains(t, b.String(), "info\n")
	require.Contains(t, b.String(), "debug\n")
}

func TestLogPrefix(t *testing.T) {
	b := captureOutput(t)
	logger := DefaultLogger.WithPrefix("server")
	logger.SetLogLevel(LogLevelDebug)
	logger.Debugf("debug")
	require.Contains(t, b.String(), "server debug\n")
	nested := logger.WithPrefix("conn")
	nested.Debugf("debug")
	require.Contains(t, b.String(), "server conn debug\n")
}

func TestLogTimeFormat(t *testing.T) {
	b := captureOutput(t)
	logger := DefaultLogger.WithPrefix("")
	logger.SetLogLevel(LogLevelError)
	logger.SetLogTimeFormat("2006")
	logger.Errorf("err")
	require.Regexp(t, `20\d{2} err`, b.String())
}

func TestReadLoggingEnv(t *testing.T) {
	for _, tc := range []struct {
		env   string
		level LogLevel
	}{
		{"", LogLevelNothing},
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"error", LogLevelError},
		{"asdf", LogLevelNothing},
	} {
		t.Setenv(logEnv, tc.env)
		require.Equal(t, tc.level, readLoggingEnv())
	}
}
