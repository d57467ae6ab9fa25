package domain

import "errors"

// RetriableError marks collaborator failures that may succeed on the next
// cycle. Nothing retries inside a cycle; the flag only shapes log output.
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError wraps a failed call to the venue, the model or a feed.
type NetworkError struct {
	Op        string // e.g. "candles", "orders", "llm.generate"
	Err       error
	Retriable bool
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DecisionError carries the raw model text that failed to parse.
type DecisionError struct {
	Symbol string
	Raw    string
	Err    error
}

func (e *DecisionError) Error() string {
	if e.Symbol == "" {
		return "decision: " + e.Err.Error()
	}
	return "decision [" + e.Symbol + "]: " + e.Err.Error()
}

func (e *DecisionError) Unwrap() error {
	return e.Err
}

var (
	// ErrMalformedDecision is returned when model output fails schema validation.
	ErrMalformedDecision = errors.New("malformed decision")

	// ErrUnknownSymbol is returned for a decision naming an asset that is not enabled.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrLedgerUnreadable distinguishes a corrupt store from an empty one.
	ErrLedgerUnreadable = errors.New("ledger unreadable")

	// ErrMissingCredentials is returned by private venue calls without API keys.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrEmptyResponse is returned when a collaborator answers with nothing usable.
	ErrEmptyResponse = errors.New("empty response")

	// ErrInsufficientBalance is returned by the paper venue for an unfunded order.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
