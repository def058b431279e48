/*
Package observability turns engine lifecycle hooks into Prometheus metrics
and structured log lines.

Hooks are plain domain.LifecycleHooks values, so they can be combined and
passed to reroll.WithLifecycleHooks:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(metrics.Hooks(), observability.LogHooks(logger))
	eng, err := reroll.New("corpus.yaml", reroll.WithLifecycleHooks(hooks))
*/
package observability
