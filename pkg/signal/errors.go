package signal

import "fmt"

// ErrorCode represents specific error conditions at the intersection boundary
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Direction index is outside 0..3
	ErrCodeInvalidDirection
	// Demand snapshot failed validation
	ErrCodeInvalidDemand
	// Configuration is invalid
	ErrCodeInvalidConfiguration
	// Scheduler has not been started
	ErrCodeNotStarted
	// Scheduler is already running
	ErrCodeAlreadyRunning
)

// DirectionError represents a rejected direction argument
type DirectionError struct {
	Code      ErrorCode
	Direction int
	Message   string
}

func (e *DirectionError) Error() string {
	return fmt.Sprintf("direction error [%d]: %s", e.Direction, e.Message)
}

// NewInvalidDirectionError creates an error for an out-of-range direction index
func NewInvalidDirectionError(direction int) *DirectionError {
	return &DirectionError{
		Code:      ErrCodeInvalidDirection,
		Direction: direction,
		Message:   fmt.Sprintf("direction %d is outside 0..%d", direction, NumDirections-1),
	}
}

// NewDirectionError creates a direction error with a custom message
func NewDirectionError(direction int, message string) *DirectionError {
	return &DirectionError{
		Code:      ErrCodeInvalidDirection,
		Direction: direction,
		Message:   message,
	}
}

// DemandError represents a malformed demand snapshot
type DemandError struct {
	Code      ErrorCode
	Direction Direction
	Count     int
	Message   string
}

func (e *DemandError) Error() string {
	return fmt.Sprintf("demand error [%s]: %s", e.Direction, e.Message)
}

// NewNegativeCountError creates an error for a negative waiting count
func NewNegativeCountError(direction Direction, count int) *DemandError {
	return &DemandError{
		Code:      ErrCodeInvalidDemand,
		Direction: direction,
		Count:     count,
		Message:   fmt.Sprintf("waiting count %d is negative", count),
	}
}

// ConfigurationError represents invalid tunables
type ConfigurationError struct {
	Component string
	Issue     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Issue)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(component, issue string) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Issue:     issue,
	}
}

// SchedulerError represents scheduler lifecycle errors
type SchedulerError struct {
	Code      ErrorCode
	Operation string
	Message   string
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("scheduler error during %s: %s", e.Operation, e.Message)
}

// NewSchedulerError creates a new scheduler error
func NewSchedulerError(code ErrorCode, operation string, message string) *SchedulerError {
	return &SchedulerError{
		Code:      code,
		Operation: operation,
		Message:   message,
	}
}

// IsDirectionError checks if an error is a DirectionError
func IsDirectionError(err error) bool {
	_, ok := err.(*DirectionError)
	return ok
}

// IsDemandError checks if an error is a DemandError
func IsDemandError(err error) bool {
	_, ok := err.(*DemandError)
	return ok
}

// IsConfigurationError checks if an error is a ConfigurationError
func IsConfigurationError(err error) bool {
	_, ok := err.(*ConfigurationError)
	return ok
}

// IsSchedulerError checks if an error is a SchedulerError
func IsSchedulerError(err error) bool {
	_, ok := err.(*SchedulerError)
	return ok
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	switch e := err.(type) {
	case *DirectionError:
		return e.Code
	case *DemandError:
		return e.Code
	case *SchedulerError:
		return e.Code
	case *ConfigurationError:
		return ErrCodeInvalidConfiguration
	default:
		return ErrCodeNone
	}
}
