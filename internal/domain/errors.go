package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Use with NewDomainError to add operation context.
var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrTimeout          = fmt.Errorf("operation timed out")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrProviderError    = fmt.Errorf("provider error")
)

// Validation sentinels. Each maps to exactly one terminal failure mode of
// the validator; all are client mistakes and never retried.
var (
	ErrMissingActionField   = fmt.Errorf("missing action field")
	ErrMissingParamsField   = fmt.Errorf("missing params field")
	ErrUnknownAction        = fmt.Errorf("unknown action")
	ErrUnknownParameter     = fmt.Errorf("unknown parameter")
	ErrMissingRequiredParam = fmt.Errorf("missing required parameter")
	ErrInvalidParamType     = fmt.Errorf("invalid parameter type")
	ErrInvalidEnumValue     = fmt.Errorf("invalid enum value")
	ErrInvalidURLFormat     = fmt.Errorf("invalid url format")
	ErrInvalidUUIDFormat    = fmt.Errorf("invalid uuid format")
	ErrXorParamsRequired    = fmt.Errorf("exactly one of the exclusive parameters is required")
	ErrXorParamsConflict    = fmt.Errorf("mutually exclusive parameters supplied together")
)

// Consensus sentinels.
var (
	ErrNoConsensus  = fmt.Errorf("no consensus reached")
	ErrNoValues     = fmt.Errorf("no values to merge")
	ErrUnknownParam = fmt.Errorf("no consensus rule for parameter")
)

// Batch sentinels.
var (
	ErrEmptyBatch        = fmt.Errorf("batch is empty")
	ErrBatchTooSmall     = fmt.Errorf("batch needs at least two actions")
	ErrNestedBatch       = fmt.Errorf("batches cannot contain batch actions")
	ErrUnbatchableAction = fmt.Errorf("action kind not eligible for batching")
)

// Authorization and resource sentinels.
var (
	ErrActionNotAllowed = fmt.Errorf("action not allowed")
	ErrBudgetExceeded   = fmt.Errorf("budget exceeded")
)

// Execution sentinels.
var (
	ErrHandlerNotFound  = fmt.Errorf("handler not found")
	ErrConsensusTimeout = fmt.Errorf("timed out gathering proposals: %w", ErrTimeout)
	ErrActionTimeout    = fmt.Errorf("timed out awaiting completion: %w", ErrTimeout)
	ErrAgentGone        = fmt.Errorf("owning agent terminated")
	ErrTransient        = fmt.Errorf("transient execution failure")
	ErrEmbeddingFailed  = fmt.Errorf("embedding generation failed")
	ErrEmbeddingLength  = fmt.Errorf("embedding vectors have mismatched lengths")
	ErrAuditWrite       = fmt.Errorf("audit record write failed")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Router.Dispatch")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may
// succeed on retry. Validation, permission, and budget errors are
// deterministic and therefore never retryable.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrTransient)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

// Every sentinel maps to exactly one code.
const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeMissingActionField ErrorCode = "MISSING_ACTION_FIELD"
	CodeMissingParamsField ErrorCode = "MISSING_PARAMS_FIELD"
	CodeUnknownAction      ErrorCode = "UNKNOWN_ACTION"
	CodeUnknownParameter   ErrorCode = "UNKNOWN_PARAMETER"
	CodeMissingRequired    ErrorCode = "MISSING_REQUIRED_PARAM"
	CodeInvalidParamType   ErrorCode = "INVALID_PARAM_TYPE"
	CodeInvalidEnumValue   ErrorCode = "INVALID_ENUM_VALUE"
	CodeInvalidURLFormat   ErrorCode = "INVALID_URL_FORMAT"
	CodeInvalidUUIDFormat  ErrorCode = "INVALID_UUID_FORMAT"
	CodeXorParamsRequired  ErrorCode = "XOR_PARAMS_REQUIRED"
	CodeXorParamsConflict  ErrorCode = "XOR_PARAMS_CONFLICT"
	CodeNoConsensus        ErrorCode = "NO_CONSENSUS"
	CodeNoValues           ErrorCode = "NO_VALUES"
	CodeUnknownParam       ErrorCode = "UNKNOWN_CONSENSUS_PARAM"
	CodeEmptyBatch         ErrorCode = "EMPTY_BATCH"
	CodeBatchTooSmall      ErrorCode = "BATCH_TOO_SMALL"
	CodeNestedBatch        ErrorCode = "NESTED_BATCH"
	CodeUnbatchableAction  ErrorCode = "UNBATCHABLE_ACTION"
	CodeActionNotAllowed   ErrorCode = "ACTION_NOT_ALLOWED"
	CodeBudgetExceeded     ErrorCode = "BUDGET_EXCEEDED"
	CodeHandlerNotFound    ErrorCode = "HANDLER_NOT_FOUND"
	CodeConsensusTimeout   ErrorCode = "CONSENSUS_TIMEOUT"
	CodeActionTimeout      ErrorCode = "ACTION_TIMEOUT"
	CodeAgentGone          ErrorCode = "AGENT_GONE"
	CodeTransient          ErrorCode = "TRANSIENT"
	CodeEmbeddingFailed    ErrorCode = "EMBEDDING_FAILED"
	CodeEmbeddingLength    ErrorCode = "EMBEDDING_LENGTH_MISMATCH"
	CodeAuditWrite         ErrorCode = "AUDIT_WRITE"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeProviderError      ErrorCode = "PROVIDER_ERROR"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrMissingActionField:   CodeMissingActionField,
	ErrMissingParamsField:   CodeMissingParamsField,
	ErrUnknownAction:        CodeUnknownAction,
	ErrUnknownParameter:     CodeUnknownParameter,
	ErrMissingRequiredParam: CodeMissingRequired,
	ErrInvalidParamType:     CodeInvalidParamType,
	ErrInvalidEnumValue:     CodeInvalidEnumValue,
	ErrInvalidURLFormat:     CodeInvalidURLFormat,
	ErrInvalidUUIDFormat:    CodeInvalidUUIDFormat,
	ErrXorParamsRequired:    CodeXorParamsRequired,
	ErrXorParamsConflict:    CodeXorParamsConflict,
	ErrNoConsensus:          CodeNoConsensus,
	ErrNoValues:             CodeNoValues,
	ErrUnknownParam:         CodeUnknownParam,
	ErrEmptyBatch:           CodeEmptyBatch,
	ErrBatchTooSmall:        CodeBatchTooSmall,
	ErrNestedBatch:          CodeNestedBatch,
	ErrUnbatchableAction:    CodeUnbatchableAction,
	ErrActionNotAllowed:     CodeActionNotAllowed,
	ErrBudgetExceeded:       CodeBudgetExceeded,
	ErrHandlerNotFound:      CodeHandlerNotFound,
	ErrConsensusTimeout:     CodeConsensusTimeout,
	ErrActionTimeout:        CodeActionTimeout,
	ErrAgentGone:            CodeAgentGone,
	ErrTransient:            CodeTransient,
	ErrEmbeddingFailed:      CodeEmbeddingFailed,
	ErrEmbeddingLength:      CodeEmbeddingLength,
	ErrAuditWrite:           CodeAuditWrite,
	ErrNotFound:             CodeNotFound,
	ErrTimeout:              CodeTimeout,
	ErrPermissionDenied:     CodePermissionDenied,
	ErrInvalidInput:         CodeInvalidInput,
	ErrProviderError:        CodeProviderError,
}

// ErrorCodeOf returns the machine-parseable error code for the given
// error. It unwraps DomainError and uses errors.Is to match sentinels.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is. Specific sentinels win over
	// the category sentinels they wrap (ErrConsensusTimeout before
	// ErrTimeout).
	for _, sentinel := range codePrecedence {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}

	return CodeUnknown
}

// codePrecedence orders sentinels from most to least specific for the
// errors.Is fallback in ErrorCodeOf.
var codePrecedence = []error{
	ErrMissingActionField, ErrMissingParamsField, ErrUnknownAction,
	ErrUnknownParameter, ErrMissingRequiredParam, ErrInvalidParamType,
	ErrInvalidEnumValue, ErrInvalidURLFormat, ErrInvalidUUIDFormat,
	ErrXorParamsRequired, ErrXorParamsConflict,
	ErrNoConsensus, ErrNoValues, ErrUnknownParam,
	ErrEmptyBatch, ErrBatchTooSmall, ErrNestedBatch, ErrUnbatchableAction,
	ErrActionNotAllowed, ErrBudgetExceeded,
	ErrHandlerNotFound, ErrConsensusTimeout, ErrActionTimeout,
	ErrAgentGone, ErrTransient, ErrEmbeddingFailed, ErrEmbeddingLength,
	ErrAuditWrite,
	ErrNotFound, ErrTimeout, ErrPermissionDenied, ErrInvalidInput,
	ErrProviderError,
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return ErrorCodeOf(e.Err)
}
