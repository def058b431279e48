package observability

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/aretw0/reroll/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Override results, used as the "result" label.
const (
	ResultOK          = "ok"
	ResultNotFound    = "not_found"
	ResultFixed       = "fixed"
	ResultOutOfRange  = "out_of_range"
	ResultOtherFailed = "error"
)

// Metrics holds the reroll collectors.
type Metrics struct {
	Generations   *prometheus.CounterVec
	Overrides     *prometheus.CounterVec
	Unresolved    prometheus.Counter
	CompileLength prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reroll_generations_total",
				Help: "Total number of prompts instantiated, by action",
			},
			[]string{"action"},
		),
		Overrides: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reroll_overrides_total",
				Help: "Total number of fragment overrides, by result",
			},
			[]string{"result"},
		),
		Unresolved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reroll_unresolved_lists_total",
				Help: "Total number of list references that could not be resolved at parse time",
			},
		),
		CompileLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reroll_compile_length_chars",
				Help:    "Length in characters of compiled prompts",
				Buckets: prometheus.ExponentialBuckets(8, 2, 10),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Generations, m.Overrides, m.Unresolved, m.CompileLength)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnParse: func(ctx context.Context, e *domain.ParseEvent) {
			m.Unresolved.Add(float64(len(e.Unresolved)))
		},
		OnGenerate: func(ctx context.Context, e *domain.GenerateEvent) {
			m.Generations.WithLabelValues(string(e.Action)).Inc()
			m.CompileLength.Observe(float64(utf8.RuneCountInString(e.Text)))
		},
		OnOverride: func(ctx context.Context, e *domain.OverrideEvent) {
			m.Overrides.WithLabelValues(OverrideResult(e.Err)).Inc()
			if e.Err == nil {
				m.CompileLength.Observe(float64(utf8.RuneCountInString(e.Text)))
			}
		},
	}
}

// OverrideResult maps an override error to its metric label.
func OverrideResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, domain.ErrFragmentNotFound):
		return ResultNotFound
	case errors.Is(err, domain.ErrFixedFragment):
		return ResultFixed
	case errors.Is(err, domain.ErrOptionOutOfRange):
		return ResultOutOfRange
	default:
		return ResultOtherFailed
	}
}
