package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a failed gateway call.
type Kind int

const (
	KindNetwork Kind = iota
	KindTimeout
	KindServer
	KindRejected
	KindAuthExpired
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network failure"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server error"
	case KindRejected:
		return "rejected"
	case KindAuthExpired:
		return "auth expired"
	case KindMalformed:
		return "malformed response"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every Client method that fails.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gateway: %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (%d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a gateway error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind, true
	}
	return 0, false
}

// transportError classifies an error returned by http.Client.Do.
func transportError(op string, err error) *Error {
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// statusError classifies a non-2xx response.
func statusError(op string, status int, message string) *Error {
	kind := KindRejected
	switch {
	case status == http.StatusUnauthorized:
		kind = KindAuthExpired
	case status >= 500:
		kind = KindServer
	}
	return &Error{Kind: kind, Op: op, Status: status, Message: message}
}
