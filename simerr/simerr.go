// Package simerr defines the error taxonomy of spec.md section 7:
// fatal configuration/topology/sampling errors that abort a simulation,
// as distinguished from the transient conditions and orphan handling
// that are absorbed silently inside the node state machine and chain
// store respectively.
package simerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigError is raised at world construction: missing/invalid
// distribution descriptors, mismatched location sets across input
// files, non-integer simulation duration. Aborts before any event is
// scheduled.
type ConfigError struct {
	Reason string
	cause  error
}

func (e *ConfigError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("config error: %s: %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.cause }

// NewConfigError builds a ConfigError, optionally wrapping a cause.
func NewConfigError(reason string, cause error) *ConfigError {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &ConfigError{Reason: reason, cause: cause}
}

// TopologyError is raised for programmer errors: mining on a
// non-miner node, or addressing a session that was never established.
type TopologyError struct {
	Reason string
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("topology error: %s", e.Reason)
}

// NewTopologyError builds a TopologyError.
func NewTopologyError(format string, args ...interface{}) *TopologyError {
	return &TopologyError{Reason: fmt.Sprintf(format, args...)}
}

// SampleError is raised when a sampled value violates a physical
// invariant: a non-positive throughput, or a delay derived from a
// sample that came out negative after the configured resampling
// budget was exhausted.
type SampleError struct {
	Origin       string
	Destination  string
	Distribution string
	Reason       string
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample error: %s->%s (%s): %s", e.Origin, e.Destination, e.Distribution, e.Reason)
}

// NewSampleError builds a SampleError naming the offending hop and distribution.
func NewSampleError(origin, destination, distribution, reason string) *SampleError {
	return &SampleError{Origin: origin, Destination: destination, Distribution: distribution, Reason: reason}
}
