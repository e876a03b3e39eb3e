package stellar

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures surfaced by the blockchain core.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidAddress
	KindAccountNotFound
	KindNetwork
	KindTimeout
	KindValidation
	KindSigning
	KindSubmissionRejected
)

func (k Kind) String() string {
	switch k {
	case KindInvalidAddress:
		return "invalid_address"
	case KindAccountNotFound:
		return "account_not_found"
	case KindNetwork:
		return "network_error"
	case KindTimeout:
		return "timeout"
	case KindValidation:
		return "validation_error"
	case KindSigning:
		return "signing_error"
	case KindSubmissionRejected:
		return "submission_rejected"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks. Any *Error with the same Kind matches.
var (
	ErrInvalidAddress     = &Error{Kind: KindInvalidAddress}
	ErrAccountNotFound    = &Error{Kind: KindAccountNotFound}
	ErrNetwork            = &Error{Kind: KindNetwork}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrSigning            = &Error{Kind: KindSigning}
	ErrSubmissionRejected = &Error{Kind: KindSubmissionRejected}
)

// Rejection carries the gateway's explanation for a refused transaction.
type Rejection struct {
	Status          int      `json:"status"`
	Title           string   `json:"title"`
	Detail          string   `json:"detail,omitempty"`
	TransactionCode string   `json:"transaction_code,omitempty"`
	OperationCodes  []string `json:"operation_codes,omitempty"`
	ResultXDR       string   `json:"result_xdr,omitempty"`
}

// Error is the single error type returned by the ledger, trustline and
// payment packages.
type Error struct {
	Kind      Kind
	Op        string
	Detail    string
	Status    int
	Rejection *Rejection
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Rejection != nil && e.Rejection.TransactionCode != "" {
		fmt.Fprintf(&b, " (%s)", e.Rejection.TransactionCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can compare against the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// InvalidAddress reports a malformed account id.
func InvalidAddress(op, address string) *Error {
	return &Error{Kind: KindInvalidAddress, Op: op, Detail: fmt.Sprintf("malformed account id %q", address)}
}

// AccountNotFound reports an unfunded account.
func AccountNotFound(op, address string) *Error {
	return &Error{Kind: KindAccountNotFound, Op: op, Detail: address, Status: 404}
}

// Validation reports a rejected input or a failed business precondition.
func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Signing reports a key or envelope failure while signing.
func Signing(op, detail string, err error) *Error {
	return &Error{Kind: KindSigning, Op: op, Detail: detail, Err: err}
}

// NetworkErr reports a transport or unexpected gateway failure.
func NetworkErr(op string, status int, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Status: status, Err: err}
}

// Timeout reports an attempt that exceeded the configured request timeout.
func Timeout(op string, err error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Err: err}
}

// Rejected wraps a gateway refusal of a submitted transaction.
func Rejected(op string, r Rejection) *Error {
	return &Error{Kind: KindSubmissionRejected, Op: op, Status: r.Status, Detail: r.Title, Rejection: &r}
}
