package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Specification errors - reject a run before any computation starts
	ErrInvalidSpec = errors.New("invalid design specification")

	// Coding errors - a row references a level the attribute never declared
	ErrInvalidLevel = errors.New("undeclared attribute level")

	// Baseline errors - a supplied starting design violates its constraints
	ErrInfeasibleBaseline = errors.New("infeasible baseline design")

	// Numerical errors - the information matrix is not invertible
	ErrSingularDesign = errors.New("singular or near-singular information matrix")

	// Power-analysis errors - statistical parameters out of range
	ErrInvalidPowerTarget = errors.New("invalid power-analysis parameter")
)

// Error constructors with context

func NewInvalidSpecError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidSpec, field, reason)
}

func NewInvalidLevelError(row int, attribute string, level int) error {
	return fmt.Errorf("%w: row %d references level index %d of attribute %q", ErrInvalidLevel, row, level, attribute)
}

func NewInfeasibleBaselineError(detail string) error {
	return fmt.Errorf("%w: %s", ErrInfeasibleBaseline, detail)
}

func NewSingularDesignError(criterion string, detail string) error {
	return fmt.Errorf("%w: criterion %s: %s", ErrSingularDesign, criterion, detail)
}

func NewInvalidPowerTargetError(param string, value float64) error {
	return fmt.Errorf("%w: %s=%v", ErrInvalidPowerTarget, param, value)
}

// Error checking helpers

func IsInvalidSpec(err error) bool {
	return errors.Is(err, ErrInvalidSpec)
}

func IsInvalidLevel(err error) bool {
	return errors.Is(err, ErrInvalidLevel)
}

func IsInfeasibleBaseline(err error) bool {
	return errors.Is(err, ErrInfeasibleBaseline)
}

func IsSingularDesign(err error) bool {
	return errors.Is(err, ErrSingularDesign)
}

func IsInvalidPowerTarget(err error) bool {
	return errors.Is(err, ErrInvalidPowerTarget)
}
