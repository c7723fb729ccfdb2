// Command wakeinterval drives a demo task, which is only ever woken by an
// interval waker, to completion.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v3"

	"github.com/joeycumines/go-wakeinterval"
	"github.com/joeycumines/go-wakeinterval/internal/demotask"
)

type options struct {
	interval time.Duration
	polls    int
	file     string
	timeout  time.Duration
	pacer    bool
	debug    bool
}

func main() {
	if err := runMain(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "wakeinterval: %v\n", err)
		os.Exit(1)
	}
}

func parseOptions(args []string) (*options, error) {
	var opts options
	fs := flag.NewFlagSet("wakeinterval", flag.ContinueOnError)
	fs.DurationVar(&opts.interval, "interval", time.Second, "interval between forced wakes")
	fs.IntVar(&opts.polls, "polls", 3, "countdown task: ready on this poll")
	fs.StringVar(&opts.file, "file", "", "file task: ready once this path exists (takes precedence over -polls)")
	fs.DurationVar(&opts.timeout, "timeout", 0, "give up after this long (0 waits forever)")
	fs.BoolVar(&opts.pacer, "pacer", false, "use a shared pacer, instead of a goroutine per task")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	_ = fs.String("config", "", "config file (optional)")

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("WAKEINTERVAL"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	return &opts, nil
}

// newLogger filters beneath the contextual keyvals, so that DefaultCaller
// still reports the call site.
func newLogger(w io.Writer, debug bool) log.Logger {
	allowed := level.AllowInfo()
	if debug {
		allowed = level.AllowDebug()
	}
	logger := level.NewFilter(log.NewLogfmtLogger(log.NewSyncWriter(w)), allowed)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func runMain(args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, opts.debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if opts.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	wakerOptions := []wakeinterval.Option{
		wakeinterval.WithLogger(log.With(logger, "component", "interval_waker")),
	}

	var g run.Group

	if opts.pacer {
		pacer, err := wakeinterval.NewPacer(wakeinterval.WithLogger(log.With(logger, "component", "pacer")))
		if err != nil {
			return err
		}
		wakerOptions = append(wakerOptions, wakeinterval.WithPacer(pacer))
		g.Add(func() error {
			return pacer.Run(ctx)
		}, func(error) {
			cancel()
		})
	}

	g.Add(func() error {
		return execute(ctx, logger, opts, wakerOptions)
	}, func(error) {
		cancel()
	})

	sigCh := make(chan os.Signal, 1)
	stopCh := make(chan struct{})
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	g.Add(func() error {
		select {
		case sig := <-sigCh:
			return fmt.Errorf("received signal %s", sig)
		case <-stopCh:
			return nil
		}
	}, func(error) {
		signal.Stop(sigCh)
		close(stopCh)
	})

	return g.Run()
}

func execute(ctx context.Context, logger log.Logger, opts *options, wakerOptions []wakeinterval.Option) error {
	taskLogger := log.With(logger, "component", "task")

	if opts.file != "" {
		task, err := demotask.NewFileExists(opts.file, taskLogger)
		if err != nil {
			return err
		}
		level.Info(logger).Log(
			"msg", "waiting for file",
			"path", opts.file,
			"interval", opts.interval,
		)
		value, err := drive[demotask.FileResult](ctx, opts.interval, task, wakerOptions)
		if err != nil {
			return fmt.Errorf("waiting for file %s: %w", opts.file, err)
		}
		if value.Err != nil {
			return fmt.Errorf("checking file %s: %w", opts.file, value.Err)
		}
		level.Info(logger).Log(
			"msg", "task complete",
			"path", opts.file,
			"size", value.Info.Size(),
		)
		return nil
	}

	task, err := demotask.NewCountdown(opts.polls, taskLogger)
	if err != nil {
		return err
	}
	level.Info(logger).Log(
		"msg", "task will be ready after polls",
		"polls", opts.polls,
		"interval", opts.interval,
	)
	value, err := drive[int](ctx, opts.interval, task, wakerOptions)
	if err != nil {
		return fmt.Errorf("waiting for countdown: %w", err)
	}
	level.Info(logger).Log(
		"msg", "task complete",
		"polls", value,
	)
	return nil
}

func drive[T any](ctx context.Context, interval time.Duration, task wakeinterval.Task[T], options []wakeinterval.Option) (value T, err error) {
	x, err := wakeinterval.New[T](interval, task, options...)
	if err != nil {
		return value, err
	}
	return wakeinterval.Block[T](ctx, x)
}
