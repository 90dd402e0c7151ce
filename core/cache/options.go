package cache

import (
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Config is the immutable configuration of a TTL cache.
type Config struct {
	Name string

	// ForceString stores every non-string value in its JSON form.
	ForceString bool

	// Size estimator constants, see EstimateSize.
	ObjectValueSize  int
	PromiseValueSize int
	ArrayValueSize   int

	// StdTTL applies when Set is called without WithTTL. 0 never expires.
	StdTTL time.Duration
	// CheckPeriod is the interval of the background sweep. 0 disables it.
	CheckPeriod time.Duration

	// UseClones stores and returns deep copies instead of the caller's
	// references.
	UseClones bool
	// DeleteOnExpire removes expired entries when they are detected.
	// Otherwise they are only hidden from reads.
	DeleteOnExpire bool
	// MaxKeys caps the number of keys; -1 means unbounded.
	MaxKeys int

	// LegacyCallbacks is accepted for configuration compatibility and has
	// no effect.
	LegacyCallbacks bool
}

// DefaultConfig returns the settings used when no option overrides them.
func DefaultConfig() Config {
	return Config{
		ObjectValueSize:  80,
		PromiseValueSize: 80,
		ArrayValueSize:   40,
		StdTTL:           0,
		CheckPeriod:      600 * time.Second,
		UseClones:        true,
		DeleteOnExpire:   true,
		MaxKeys:          -1,
	}
}

type options struct {
	cfg     Config
	log     *slog.Logger
	metrics Metrics
	clock   Clock
	sched   Scheduler
}

type Option func(*options)

func WithName(name string) Option {
	return func(o *options) { o.cfg.Name = name }
}

func WithForceString(force bool) Option {
	return func(o *options) { o.cfg.ForceString = force }
}

func WithObjectValueSize(n int) Option {
	return func(o *options) { o.cfg.ObjectValueSize = n }
}

func WithPromiseValueSize(n int) Option {
	return func(o *options) { o.cfg.PromiseValueSize = n }
}

func WithArrayValueSize(n int) Option {
	return func(o *options) { o.cfg.ArrayValueSize = n }
}

func WithStdTTL(ttl time.Duration) Option {
	return func(o *options) { o.cfg.StdTTL = ttl }
}

func WithCheckPeriod(d time.Duration) Option {
	return func(o *options) { o.cfg.CheckPeriod = d }
}

func WithUseClones(use bool) Option {
	return func(o *options) { o.cfg.UseClones = use }
}

func WithDeleteOnExpire(del bool) Option {
	return func(o *options) { o.cfg.DeleteOnExpire = del }
}

func WithMaxKeys(n int) Option {
	return func(o *options) { o.cfg.MaxKeys = n }
}

func WithLegacyCallbacks(enable bool) Option {
	return func(o *options) { o.cfg.LegacyCallbacks = enable }
}

func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.sched = s }
}

func buildOptions(opts []Option) options {
	o := options{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg.Name == "" {
		o.cfg.Name = fmt.Sprintf("cache-%s", gonanoid.Must(6))
	}
	if o.cfg.MaxKeys < -1 {
		o.cfg.MaxKeys = -1
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = NopMetrics()
	}
	if o.clock == nil {
		o.clock = SystemClock()
	}
	if o.sched == nil {
		o.sched = SystemScheduler()
	}
	return o
}

// PutOptions configures a single write.
type PutOptions struct {
	TTL    time.Duration
	hasTTL bool
}

type PutOption func(*PutOptions)

// WithTTL overrides the configured StdTTL for one entry. 0 never expires,
// a negative ttl stores an entry that is already expired.
func WithTTL(ttl time.Duration) PutOption {
	return func(o *PutOptions) {
		o.TTL = ttl
		o.hasTTL = true
	}
}

func putOptions(opts []PutOption) PutOptions {
	var o PutOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
