package wakeinterval

import (
	"errors"

	"github.com/go-kit/kit/log"
	"github.com/mixer/clock"
)

type (
	// Option configures an IntervalWaker (see New), or a Pacer (see
	// NewPacer).
	Option interface {
		applyOption(c *config) error
	}

	optionFunc func(c *config) error

	config struct {
		clock  clock.Clock // time source for tickers and timers
		logger log.Logger  // go-kit logger, nop by default
		pacer  *Pacer      // optional shared timer service, see WithPacer
	}
)

var (
	_ Option = optionFunc(nil)
)

func newConfig(options []Option) (*config, error) {
	c := config{
		clock:  realClock{},
		logger: log.NewNopLogger(),
	}
	for _, option := range options {
		if option == nil {
			return nil, errors.New(`wakeinterval: option must not be nil`)
		}
		if err := option.applyOption(&c); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// WithClock configures the time source used for all timers. The default is
// the real time clock, which clock.DefaultClock (or clock.C) also resolves
// to. Tests may use clock.NewMockClock, to advance time manually.
func WithClock(c clock.Clock) Option {
	return optionFunc(func(cfg *config) error {
		if c == nil {
			return errors.New(`wakeinterval: clock must not be nil`)
		}
		cfg.clock = resolveClock(c)
		return nil
	})
}

// WithLogger configures a go-kit logger, used to log timer lifecycle events
// (at debug level), and recovered panics (at error level).
func WithLogger(logger log.Logger) Option {
	return optionFunc(func(c *config) error {
		if logger == nil {
			return errors.New(`wakeinterval: logger must not be nil`)
		}
		c.logger = logger
		return nil
	})
}

// WithPacer configures an IntervalWaker to register with the given Pacer,
// instead of starting its own goroutine. The Pacer must be running (see
// Pacer.Run) for any wakes to occur. The clock and logger of the Pacer take
// precedence. Invalid for NewPacer.
func WithPacer(pacer *Pacer) Option {
	return optionFunc(func(c *config) error {
		if pacer == nil {
			return errors.New(`wakeinterval: pacer must not be nil`)
		}
		c.pacer = pacer
		return nil
	})
}

func (x optionFunc) applyOption(c *config) error {
	return x(c)
}
