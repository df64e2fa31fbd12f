// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Sentinel errors.
//
var (
	// ErrFrozen is the panic value raised when a block is modified after it
	// has been elaborated.
	ErrFrozen = errors.New("block modified after elaboration")
	// ErrTimeLimit is returned (wrapped) by Simulation.Run when the time
	// limit is reached while testbenches are still pending.
	ErrTimeLimit = errors.New("simulation time limit reached")
)

// DanglingPortError is returned when a signal that must be driven has no driver.
//
type DanglingPortError struct {
	Path string
	Dir  Direction
}

func (e *DanglingPortError) Error() string {
	return e.Dir.String() + " signal " + e.Path + " is not driven"
}

// MultipleDriverError is returned when a signal has more than one driver.
//
type MultipleDriverError struct {
	Path    string
	Drivers []string
}

func (e *MultipleDriverError) Error() string {
	return "signal " + e.Path + " has " + strconv.Itoa(len(e.Drivers)) +
		" drivers: " + strings.Join(e.Drivers, ", ")
}

// ScopeError is returned when a block uses a signal it cannot see, or drives
// a signal that it is not allowed to drive.
//
type ScopeError struct {
	Block string
	Path  string
	Msg   string
}

func (e *ScopeError) Error() string {
	return e.Block + ": " + e.Msg + " " + e.Path
}

// WidthError reports invalid widths or width mismatches.
//
type WidthError struct {
	Path string
	Msg  string
}

func (e *WidthError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return e.Path + ": " + e.Msg
}

// LinkError reports an invalid link or join between interfaces, or an invalid
// block composition.
//
type LinkError struct {
	Path string
	Msg  string
}

func (e *LinkError) Error() string { return e.Path + ": " + e.Msg }

// CombinationalCycleError reports a combinational loop.
//
// Validate returns it for a signal that depends on itself, with Iterations
// set to 0 and Paths holding the loop: each signal is computed from the next
// one, the first and last are the same. Settling returns it when no fixpoint
// is reached within the iteration bound, Paths then lists the signals still
// changing.
//
type CombinationalCycleError struct {
	Paths      []string
	Iterations int
	Time       uint64
}

func (e *CombinationalCycleError) Error() string {
	if e.Iterations == 0 {
		return "combinational cycle: " + strings.Join(e.Paths, " <- ")
	}
	return "combinational cycle at t=" + strconv.FormatUint(e.Time, 10) +
		": no fixpoint after " + strconv.Itoa(e.Iterations) + " iterations, still changing: " +
		strings.Join(e.Paths, ", ")
}

// WatchTimeoutError is returned when a testbench predicate does not become
// true within its time bound.
//
type WatchTimeoutError struct {
	Task  string
	Since uint64 // time at which the watch started
	Time  uint64 // time at which the watch gave up
}

func (e *WatchTimeoutError) Error() string {
	return "testbench " + e.Task + ": watch started at t=" + strconv.FormatUint(e.Since, 10) +
		" timed out at t=" + strconv.FormatUint(e.Time, 10)
}

// TaskError wraps an error returned by a testbench.
//
type TaskError struct {
	Task string
	Time uint64
	Err  error
}

func (e *TaskError) Error() string {
	return "testbench " + e.Task + " failed at t=" + strconv.FormatUint(e.Time, 10) + ": " + e.Err.Error()
}

// Cause returns the underlying error.
func (e *TaskError) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *TaskError) Unwrap() error { return e.Err }

// SimulationError is the error returned by Simulation.Run. It wraps the
// failure and preserves the last known signal values.
//
type SimulationError struct {
	Time     uint64
	Err      error
	Snapshot Snapshot
}

func (e *SimulationError) Error() string {
	return "simulation failed at t=" + strconv.FormatUint(e.Time, 10) + ": " + e.Err.Error()
}

// Cause returns the underlying error.
func (e *SimulationError) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *SimulationError) Unwrap() error { return e.Err }
