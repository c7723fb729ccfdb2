// Package demotask provides inner tasks for the wakeinterval command, each of
// which depends on a condition that can only be observed by polling.
package demotask

import (
	"errors"
	"io/fs"
	"os"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/joeycumines/go-wakeinterval"
)

type (
	// Countdown becomes ready on the Nth poll, with the number of polls.
	// It never arranges its own wake.
	Countdown struct {
		n      int
		polls  int
		logger log.Logger
	}

	// FileExists becomes ready once a file exists at the given path.
	FileExists struct {
		path   string
		stat   func(name string) (fs.FileInfo, error)
		polls  int
		logger log.Logger
	}

	// FileResult is the value of FileExists. Err is set if the file could
	// not be checked for reasons other than not existing.
	FileResult struct {
		Info fs.FileInfo
		Err  error
	}
)

var (
	_ wakeinterval.Task[int]        = (*Countdown)(nil)
	_ wakeinterval.Task[FileResult] = (*FileExists)(nil)
)

// NewCountdown returns a task ready on poll n, which must be at least 1.
func NewCountdown(n int, logger log.Logger) (*Countdown, error) {
	if n < 1 {
		return nil, errors.New(`demotask: countdown must be at least 1`)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Countdown{n: n, logger: logger}, nil
}

func (x *Countdown) Poll(*wakeinterval.Context) (int, bool) {
	x.polls++
	level.Info(x.logger).Log(
		"msg", "poll",
		"task", "countdown",
		"poll", x.polls,
		"ready_on", x.n,
	)
	if x.polls >= x.n {
		return x.polls, true
	}
	return 0, false
}

// NewFileExists returns a task ready once path exists.
func NewFileExists(path string, logger log.Logger) (*FileExists, error) {
	if path == "" {
		return nil, errors.New(`demotask: path must not be empty`)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &FileExists{path: path, stat: os.Stat, logger: logger}, nil
}

func (x *FileExists) Poll(*wakeinterval.Context) (FileResult, bool) {
	x.polls++
	info, err := x.stat(x.path)
	switch {
	case err == nil:
		level.Info(x.logger).Log(
			"msg", "file found",
			"path", x.path,
			"poll", x.polls,
		)
		return FileResult{Info: info}, true
	case errors.Is(err, fs.ErrNotExist):
		level.Debug(x.logger).Log(
			"msg", "file not found",
			"path", x.path,
			"poll", x.polls,
		)
		return FileResult{}, false
	default:
		return FileResult{Err: err}, true
	}
}
