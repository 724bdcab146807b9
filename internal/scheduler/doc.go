// Package scheduler holds the pure booking rules: time ranges and their overlap
// predicate, the hour window and duration checks, and Monday-based week ranges.
package scheduler
