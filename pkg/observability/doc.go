/*
Package observability turns workflow lifecycle events into Prometheus metrics
and structured log lines.

Both are plain domain.LifecycleHooks values and can be combined with
domain.ComposeHooks before being handed to the assistant. Metrics also
implements the runner's stream observer to track open SSE streams and turn
outcomes.
*/
package observability
