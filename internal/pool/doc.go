// Package pool provides a fixed-size worker pool with per-worker FIFO queues.
// Tasks are assigned to the queue with the smallest backlog at dispatch time,
// and shutdown drains every queue to empty before workers terminate.
package pool
