// Package metrics exposes Prometheus metrics for record saves.
//
// A Recorder owns its own registry so tests and multiple servers never
// collide on the global one. The start command mounts Handler on the
// configured path.
//
// # Metrics
//
//   - <ns>_save_total{model,outcome}: saves by outcome (committed, plain, invalid, aborted)
//   - <ns>_save_duration_seconds{model,outcome}: save latency
//   - <ns>_save_actions_total{model,type}: relation writes of committed saves
package metrics
