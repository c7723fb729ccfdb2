package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts, err := parseOptions(nil)
		require.NoError(t, err)
		assert.Equal(t, options{interval: time.Second, polls: 3}, *opts)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("WAKEINTERVAL_INTERVAL", "250ms")
		t.Setenv("WAKEINTERVAL_PACER", "true")
		opts, err := parseOptions([]string{"-polls", "7"})
		require.NoError(t, err)
		assert.Equal(t, time.Millisecond*250, opts.interval)
		assert.Equal(t, 7, opts.polls)
		assert.True(t, opts.pacer)
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wakeinterval.conf")
		require.NoError(t, os.WriteFile(path, []byte("interval 2s\ndebug true\n"), 0o600))
		opts, err := parseOptions([]string{"-config", path})
		require.NoError(t, err)
		assert.Equal(t, time.Second*2, opts.interval)
		assert.True(t, opts.debug)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := parseOptions([]string{"-interval", "soon"})
		require.Error(t, err)
	})
}

func TestRunMain_countdown(t *testing.T) {
	for _, args := range [][]string{
		{"-polls", "3", "-interval", "5ms", "-timeout", "5s"},
		{"-polls", "3", "-interval", "5ms", "-timeout", "5s", "-pacer"},
	} {
		require.NoError(t, runMain(args), "%q", args)
	}
}

func TestRunMain_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ready")
	go func() {
		time.Sleep(time.Millisecond * 20)
		_ = os.WriteFile(path, []byte("ok"), 0o600)
	}()
	require.NoError(t, runMain([]string{"-file", path, "-interval", "5ms", "-timeout", "5s", "-debug"}))
}

func TestRunMain_timeout(t *testing.T) {
	err := runMain([]string{"-file", filepath.Join(t.TempDir(), "never"), "-interval", "5ms", "-timeout", "30ms"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunMain_invalidPolls(t *testing.T) {
	err := runMain([]string{"-polls", "0"})
	require.EqualError(t, err, "demotask: countdown must be at least 1")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false)

	level.Info(logger).Log("msg", "direct")
	level.Info(log.With(logger, "component", "task")).Log("msg", "nested")
	level.Debug(logger).Log("msg", "filtered")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, buf.String())
	for _, line := range lines {
		assert.Regexp(t, `^level=info ts=\S+ caller=main_test\.go:\d+ `, line)
		assert.NotContains(t, line, "level.go")
	}
	assert.True(t, strings.HasSuffix(lines[0], ` msg=direct`), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ` component=task msg=nested`), lines[1])

	buf.Reset()
	level.Debug(newLogger(&buf, true)).Log("msg", "debug")
	assert.Regexp(t, `^level=debug ts=\S+ caller=main_test\.go:\d+ msg=debug\n$`, buf.String())
}
