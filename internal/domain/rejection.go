package domain

import (
	"errors"
	"fmt"
)

// ReasonCode is the machine-readable classification of a pipeline failure.
type ReasonCode string

const (
	ReasonDataUnavailable     ReasonCode = "DATA_UNAVAILABLE"
	ReasonInvalidIntent       ReasonCode = "INVALID_INTENT"
	ReasonInvalidCollateral   ReasonCode = "INVALID_COLLATERAL"
	ReasonOutOfLeverageBounds ReasonCode = "OUT_OF_LEVERAGE_BOUNDS"
	ReasonOverClose           ReasonCode = "OVER_CLOSE"
	ReasonUnbalancedDeposit   ReasonCode = "UNBALANCED_DEPOSIT"
	ReasonExecutionFailure    ReasonCode = "EXECUTION_FAILURE"
)

// ReasonError is a typed failure carrying a reason code and human detail.
// Sentinels below match any ReasonError of the same code under errors.Is.
type ReasonError struct {
	Code   ReasonCode
	Detail string
}

func (e *ReasonError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Is matches by reason code so wrapped details still compare equal to the
// package sentinels.
func (e *ReasonError) Is(target error) bool {
	re, ok := target.(*ReasonError)
	return ok && e.Code == re.Code
}

func (e *ReasonError) withDetail(detail string) *ReasonError {
	return &ReasonError{Code: e.Code, Detail: detail}
}

// Reasonf builds a ReasonError with a formatted detail message.
func Reasonf(code ReasonCode, format string, args ...any) *ReasonError {
	return &ReasonError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

var (
	ErrDataUnavailable     = &ReasonError{Code: ReasonDataUnavailable, Detail: "market data unavailable"}
	ErrInvalidIntent       = &ReasonError{Code: ReasonInvalidIntent, Detail: "malformed trade intent"}
	ErrInvalidCollateral   = &ReasonError{Code: ReasonInvalidCollateral, Detail: "collateral must be positive"}
	ErrOutOfLeverageBounds = &ReasonError{Code: ReasonOutOfLeverageBounds, Detail: "leverage outside market bounds"}
	ErrOverClose           = &ReasonError{Code: ReasonOverClose, Detail: "close exceeds open position"}
	ErrUnbalancedDeposit   = &ReasonError{Code: ReasonUnbalancedDeposit, Detail: "deposit legs deviate from pool ratio"}
	ErrExecutionFailure    = &ReasonError{Code: ReasonExecutionFailure, Detail: "signer reported failure"}
)

// Rejection is the caller-facing failure variant of a pipeline result.
type Rejection struct {
	Code   ReasonCode `json:"code"`
	Detail string     `json:"detail"`
}

// RejectionFromError classifies an error into a Rejection. Errors with no
// ReasonError in their chain are surfaced as INVALID_INTENT with the raw
// message as detail.
func RejectionFromError(err error) *Rejection {
	var re *ReasonError
	if errors.As(err, &re) {
		return &Rejection{Code: re.Code, Detail: re.Detail}
	}
	return &Rejection{Code: ReasonInvalidIntent, Detail: err.Error()}
}
