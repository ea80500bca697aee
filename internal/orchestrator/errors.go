package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/resilience"
)

// Step names one of the three outbound calls of a submission.
type Step string

// Steps, in execution order.
const (
	StepUploadURL Step = "upload_url"
	StepTransfer  Step = "transfer"
	StepAnalysis  Step = "analysis"
)

// Kind classifies why a step failed.
type Kind int

// Possible values for Kind
const (
	KindTransport   Kind = iota // other network failure
	KindStatus                  // non-2xx response
	KindMalformed               // 2xx with an unusable body
	KindTimeout                 // the step's own deadline passed
	KindUnreachable             // connection refused, DNS failure
	KindUnavailable             // breaker open, call not attempted
	KindCanceled                // caller gave up
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindMalformed:
		return "malformed"
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindUnavailable:
		return "unavailable"
	case KindCanceled:
		return "canceled"
	default:
		return "transport"
	}
}

// Errors matched with errors.Is. A *StepError matches its step sentinel and,
// for timeouts and unreachable backends, the kind sentinel too.
var (
	ErrUploadURL       = errors.New("upload url error")
	ErrTransfer        = errors.New("transfer error")
	ErrAnalysis        = errors.New("analysis error")
	ErrTimeout         = errors.New("timeout")
	ErrUnreachable     = errors.New("backend unreachable")
	ErrUnavailable     = errors.New("temporarily unavailable")
	ErrInvalidDocument = errors.New("invalid document")
)

// StepError reports the failed step of a submission.
type StepError struct {
	Step       Step
	Kind       Kind
	StatusCode int
	Elapsed    time.Duration
	// Timeout is the step budget, set for KindTimeout.
	Timeout time.Duration
	// Message is the remote error text, when the remote side sent one.
	Message string
	Err     error
}

func (e *StepError) Error() string {
	switch e.Kind {
	case KindTimeout:
		if e.Step == StepAnalysis {
			return fmt.Sprintf("Processing timed out after %ds. The claim may still be processing; check history shortly.", int(e.Timeout.Seconds()))
		}
		return fmt.Sprintf("%s timed out after %ds", e.describe(), int(e.Timeout.Seconds()))
	case KindUnreachable:
		if e.Step == StepAnalysis {
			return "Cannot connect to processing server. Please check that the analysis backend is running."
		}
		return fmt.Sprintf("%s: cannot connect", e.describe())
	case KindUnavailable:
		return fmt.Sprintf("%s: temporarily unavailable, try again shortly", e.describe())
	case KindCanceled:
		return fmt.Sprintf("%s: canceled", e.describe())
	case KindStatus:
		if e.Message != "" {
			return fmt.Sprintf("%s: status %d: %s", e.describe(), e.StatusCode, e.Message)
		}
		return fmt.Sprintf("%s: status %d", e.describe(), e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.describe(), e.Err)
	}
	return e.describe()
}

func (e *StepError) describe() string {
	switch e.Step {
	case StepUploadURL:
		return "failed to generate upload URL"
	case StepTransfer:
		return "failed to upload file to S3"
	default:
		return "analysis failed"
	}
}

// Unwrap exposes the step sentinel, the kind sentinel and the cause.
func (e *StepError) Unwrap() []error {
	out := make([]error, 0, 3)
	switch e.Step {
	case StepUploadURL:
		out = append(out, ErrUploadURL)
	case StepTransfer:
		out = append(out, ErrTransfer)
	case StepAnalysis:
		out = append(out, ErrAnalysis)
	}
	switch e.Kind {
	case KindTimeout:
		out = append(out, ErrTimeout)
	case KindUnreachable:
		out = append(out, ErrUnreachable)
	case KindUnavailable:
		out = append(out, ErrUnavailable)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// classify maps a transport-level error to a Kind. parent is the caller's
// context, used to tell caller cancellation from the step deadline.
func classify(parent context.Context, err error) Kind {
	var (
		netErr net.Error
		dnsErr *net.DNSError
		opErr  *net.OpError
	)
	switch {
	case resilience.IsOpen(err):
		return KindUnavailable
	case parent.Err() != nil && !errors.Is(parent.Err(), context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return KindUnreachable
	case errors.As(err, &dnsErr):
		return KindUnreachable
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return KindUnreachable
	}
	return KindTransport
}

// Outcome is a short label for metrics and logs.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, ErrInvalidDocument) {
		return "invalid_document"
	}
	var se *StepError
	if errors.As(err, &se) {
		return string(se.Step) + "_" + se.Kind.String()
	}
	return "error"
}
