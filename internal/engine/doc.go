// Package engine bridges the HTTP surface, the job store, and the worker
// pool. It persists submitted jobs, dispatches their execution to the pool,
// drives the pending/running/terminal lifecycle, and streams status events to
// SSE subscribers.
package engine
