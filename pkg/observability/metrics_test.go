package observability_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/aretw0/reroll/internal/logging"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/aretw0/reroll/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnParse(ctx, &domain.ParseEvent{Source: "{#a}{#b}", Unresolved: []string{"a", "b"}})
	hooks.OnGenerate(ctx, &domain.GenerateEvent{Action: domain.ActionGenerate, Text: "héllo"})
	hooks.OnGenerate(ctx, &domain.GenerateEvent{Action: domain.ActionReroll, Text: "x"})
	hooks.OnOverride(ctx, &domain.OverrideEvent{Text: "y"})
	hooks.OnOverride(ctx, &domain.OverrideEvent{Err: fmt.Errorf("wrapped: %w", domain.ErrFixedFragment)})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Unresolved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues("generate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues("reroll")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Overrides.WithLabelValues(observability.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Overrides.WithLabelValues(observability.ResultFixed)))

	count, err := testutil.GatherAndCount(reg, "reroll_compile_length_chars")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOverrideResult(t *testing.T) {
	assert.Equal(t, observability.ResultOK, observability.OverrideResult(nil))
	assert.Equal(t, observability.ResultNotFound, observability.OverrideResult(domain.ErrFragmentNotFound))
	assert.Equal(t, observability.ResultOutOfRange, observability.OverrideResult(domain.ErrOptionOutOfRange))
	assert.Equal(t, observability.ResultOtherFailed, observability.OverrideResult(fmt.Errorf("boom")))
}

func TestCombine(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnGenerate: func(context.Context, *domain.GenerateEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnGenerate: func(context.Context, *domain.GenerateEvent) { calls = append(calls, "b") }}

	hooks := observability.Combine(a, domain.LifecycleHooks{}, b)
	hooks.OnGenerate(context.Background(), &domain.GenerateEvent{})
	hooks.OnParse(context.Background(), &domain.ParseEvent{})

	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelDebug, logging.FormatJSON)
	hooks := observability.LogHooks(logger)

	hooks.OnOverride(context.Background(), &domain.OverrideEvent{FragmentID: 3, Err: domain.ErrFragmentNotFound})
	assert.Contains(t, buf.String(), "override_rejected")
	assert.Contains(t, buf.String(), `"err":"fragment not found"`)
}
