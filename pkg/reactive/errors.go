package reactive

import (
	"errors"
	"fmt"
)

// Error codes shared with the structured error registry used by the CLI and
// configuration loader.
const (
	CodeCyclicDependency = "E001"
	CodeEffectExecution  = "E002"
	CodeStaleAccess      = "E003"
	CodeEffectWrite      = "E004"
	CodeFlushBudget      = "E005"
	CodeComputeFailed    = "E006"
	CodeCleanupContext   = "E007"
)

// ErrFlushBudgetExceeded is reported when a single flush runs more effects
// than MaxEffectRunsPerFlush allows, which almost always means two effects
// keep re-triggering each other. The remaining queue is dropped.
var ErrFlushBudgetExceeded = errors.New("reactive: flush budget exceeded")

// ErrCleanupContext is reported (or panicked with in DevMode) when OnCleanup
// is called with no running effect, computed or scope to attach to.
var ErrCleanupContext = errors.New("reactive: OnCleanup called outside a reactive context")

// CyclicDependencyError is raised when a Computed is read while it is
// already computing.
type CyclicDependencyError struct {
	ID   uint64
	Name string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("reactive: cyclic dependency detected while computing %s", nodeLabel(KindComputed, e.ID, e.Name))
}

// Code returns the registry code for this error.
func (e *CyclicDependencyError) Code() string { return CodeCyclicDependency }

// EffectExecutionError wraps a panic recovered from an effect body.
type EffectExecutionError struct {
	Effect NodeInfo

	// Value is the recovered panic value.
	Value any
}

func (e *EffectExecutionError) Error() string {
	return fmt.Sprintf("reactive: %s failed: %v", nodeLabel(KindEffect, e.Effect.ID, e.Effect.Name), e.Value)
}

// Unwrap returns the panic value when it was an error.
func (e *EffectExecutionError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Code returns the registry code for this error.
func (e *EffectExecutionError) Code() string { return CodeEffectExecution }

// ComputeError wraps a panic recovered from a compute function by TryGet.
type ComputeError struct {
	Computed NodeInfo
	Value    any
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("reactive: %s failed: %v", nodeLabel(KindComputed, e.Computed.ID, e.Computed.Name), e.Value)
}

// Unwrap returns the panic value when it was an error.
func (e *ComputeError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Code returns the registry code for this error.
func (e *ComputeError) Code() string { return CodeComputeFailed }

// StaleAccessError is raised in DevMode when a node owned by a disposed
// Scope is read or written.
type StaleAccessError struct {
	Node NodeInfo
	Op   string
}

func (e *StaleAccessError) Error() string {
	return fmt.Sprintf("reactive: %s of %s after its scope was disposed", e.Op, nodeLabel(e.Node.Kind, e.Node.ID, e.Node.Name))
}

// Code returns the registry code for this error.
func (e *StaleAccessError) Code() string { return CodeStaleAccess }

// EffectWriteError is raised in StrictEffectPanic mode when an effect body
// writes a signal without AllowWrites().
type EffectWriteError struct {
	Effect NodeInfo
	Signal NodeInfo
}

func (e *EffectWriteError) Error() string {
	return fmt.Sprintf("reactive: %s wrote %s without AllowWrites()",
		nodeLabel(KindEffect, e.Effect.ID, e.Effect.Name),
		nodeLabel(KindSignal, e.Signal.ID, e.Signal.Name))
}

// Code returns the registry code for this error.
func (e *EffectWriteError) Code() string { return CodeEffectWrite }

func nodeLabel(kind NodeKind, id uint64, name string) string {
	if name != "" {
		return fmt.Sprintf("%s %q", kind, name)
	}
	return fmt.Sprintf("%s #%d", kind, id)
}
