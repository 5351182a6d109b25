package scheduler

import (
	"io"

	"github.com/joeycumines/logiface"
	"github.com/key4hep/avalanche-go/precedence"
	"github.com/prometheus/client_golang/prometheus"
)

// Optimizer selects the ranking visitor applied at scheduler init, per
// spec.md §4.F's optimizer row.
type Optimizer string

const (
	OptimizerNone Optimizer = ""
	OptimizerPCE  Optimizer = "PCE" // priority by critical-path estimate
	OptimizerCOD  Optimizer = "COD" // priority by number of consumers (output degree)
	OptimizerDRE  Optimizer = "DRE" // priority by number of dependencies (input count)
	OptimizerE    Optimizer = "E"   // declaration order
	OptimizerT    Optimizer = "T"   // blocking-algorithms-first
)

// Config holds every resolved scheduler option. It is unexported-default
// constructed; callers configure it through Option values.
type Config struct {
	SlotCount                int
	ThreadPoolSize           int // -1: all hardware threads; -100: bypass arena
	MaxParallelismExtra      int
	MaxBlockingAlgosInFlight uint32 // 0 = unlimited
	NumOffloadThreads        int
	PreemptiveBlockingTasks  bool
	SimulateExecution        bool
	Optimizer                Optimizer
	DataLoaderAlg            string
	CheckDependencies        bool
	CheckOutputUsage         bool
	VerifyRules              bool

	FinishedEventsBuffer int

	Logger              *logiface.Logger[logiface.Event]
	MetricsRegisterer   prometheus.Registerer
	OccupancyIntervalMs int
	OccupancyCallback   OccupancyCallback
	DumpWriter          io.Writer
}

func defaultConfig() Config {
	return Config{
		SlotCount:                1,
		ThreadPoolSize:           -1,
		MaxParallelismExtra:      0,
		MaxBlockingAlgosInFlight: 0,
		NumOffloadThreads:        0,
		CheckDependencies:        true,
		CheckOutputUsage:         true,
		VerifyRules:              true,
		FinishedEventsBuffer:     16,
		OccupancyIntervalMs:      -1, // disabled
	}
}

// Option configures a Scheduler at construction time.
type Option interface {
	applyScheduler(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) applyScheduler(c *Config) { f(c) }

func WithSlotCount(n int) Option {
	return optionFunc(func(c *Config) { c.SlotCount = n })
}

func WithThreadPoolSize(n int) Option {
	return optionFunc(func(c *Config) { c.ThreadPoolSize = n })
}

func WithMaxParallelismExtra(n int) Option {
	return optionFunc(func(c *Config) { c.MaxParallelismExtra = n })
}

func WithMaxBlockingAlgosInFlight(n uint32) Option {
	return optionFunc(func(c *Config) { c.MaxBlockingAlgosInFlight = n })
}

func WithNumOffloadThreads(n int) Option {
	return optionFunc(func(c *Config) { c.NumOffloadThreads = n })
}

func WithPreemptiveBlockingTasks(v bool) Option {
	return optionFunc(func(c *Config) { c.PreemptiveBlockingTasks = v })
}

func WithSimulateExecution(v bool) Option {
	return optionFunc(func(c *Config) { c.SimulateExecution = v })
}

func WithOptimizer(o Optimizer) Option {
	return optionFunc(func(c *Config) { c.Optimizer = o })
}

func WithDataLoaderAlg(name string) Option {
	return optionFunc(func(c *Config) { c.DataLoaderAlg = name })
}

func WithValidatorToggles(checkDependencies, checkOutputUsage, verifyRules bool) Option {
	return optionFunc(func(c *Config) {
		c.CheckDependencies = checkDependencies
		c.CheckOutputUsage = checkOutputUsage
		c.VerifyRules = verifyRules
	})
}

func WithFinishedEventsBuffer(n int) Option {
	return optionFunc(func(c *Config) { c.FinishedEventsBuffer = n })
}

func WithLogger(sink *logiface.Logger[logiface.Event]) Option {
	return optionFunc(func(c *Config) { c.Logger = sink })
}

func WithMetricsRegisterer(r prometheus.Registerer) Option {
	return optionFunc(func(c *Config) { c.MetricsRegisterer = r })
}

// WithOccupancySampling preconfigures RecordOccupancy's parameters so Run
// starts the sampler immediately; equivalent to calling RecordOccupancy
// right after New.
func WithOccupancySampling(intervalMs int, cb OccupancyCallback) Option {
	return optionFunc(func(c *Config) {
		c.OccupancyIntervalMs = intervalMs
		c.OccupancyCallback = cb
	})
}

func WithDumpWriter(w io.Writer) Option {
	return optionFunc(func(c *Config) { c.DumpWriter = w })
}

func resolveConfig(opts []Option) Config {
	c := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt.applyScheduler(&c)
		}
	}
	return c
}

func (o Optimizer) ranker() precedence.Ranker {
	switch o {
	case OptimizerPCE:
		return &precedence.CriticalPathRanker{}
	case OptimizerCOD:
		return precedence.OutputFanOutRanker{}
	case OptimizerDRE:
		return precedence.InputCountRanker{}
	case OptimizerE:
		return precedence.DeclarationOrderRanker{}
	case OptimizerT:
		return precedence.BlockingFirstRanker{}
	default:
		return nil
	}
}
