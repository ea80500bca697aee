// Package routes implements the HTTP API route handlers. Each handler has
// the API Gateway v2 Lambda shape and is served either by its own Lambda or
// through httpx.Adapt in the API server.
package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/authz"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/claims"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/httpx"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/identity"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/orchestrator"

	"github.com/aws/aws-lambda-go/events"
)

// Error codes clients branch on.
const (
	CodeUserNotConfirmed = "user_not_confirmed"
	CodeAlreadyConfirmed = "already_confirmed"
)

// fail maps a domain error to its response. Unknown errors become a
// generic 500; the cause is shown only in dev mode.
func fail(log *slog.Logger, dev bool, msg string, err error) (events.APIGatewayV2HTTPResponse, error) {
	var (
		idErr   *identity.Error
		stepErr *orchestrator.StepError
	)
	switch {
	case errors.Is(err, authz.ErrUnauthorized):
		return httpx.Error(http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, claims.ErrNotFound):
		return httpx.Error(http.StatusNotFound, "Claim not found")
	case errors.Is(err, claims.ErrForbidden):
		return httpx.Error(http.StatusForbidden, "Forbidden")
	case errors.Is(err, claims.ErrInvalidInput), errors.Is(err, orchestrator.ErrInvalidDocument):
		return httpx.Error(http.StatusBadRequest, err.Error())

	case errors.As(err, &idErr):
		return identityError(log, idErr)

	case errors.As(err, &stepErr):
		log.Warn(msg, "step", stepErr.Step, "kind", stepErr.Kind.String(), "status", stepErr.StatusCode, "error", err)
		return httpx.ErrorCode(stepStatus(stepErr), orchestrator.Outcome(err), stepErr.Error())
	}
	return httpx.Internal(log, msg, err, dev)
}

func identityError(log *slog.Logger, e *identity.Error) (events.APIGatewayV2HTTPResponse, error) {
	switch {
	case errors.Is(e, identity.ErrUserNotConfirmed):
		return httpx.ErrorCode(http.StatusForbidden, CodeUserNotConfirmed, e.Message)
	case errors.Is(e, identity.ErrInvalidCredentials):
		return httpx.Error(http.StatusUnauthorized, e.Message)
	case errors.Is(e, identity.ErrUserExists):
		return httpx.Error(http.StatusConflict, e.Message)
	case errors.Is(e, identity.ErrAlreadyConfirmed):
		return httpx.ErrorCode(http.StatusConflict, CodeAlreadyConfirmed, e.Message)
	case errors.Is(e, identity.ErrRateLimited):
		return httpx.Error(http.StatusTooManyRequests, e.Message)
	case errors.Is(e, identity.ErrWeakPassword), errors.Is(e, identity.ErrInvalidEmail),
		errors.Is(e, identity.ErrCodeMismatch), errors.Is(e, identity.ErrCodeExpired),
		errors.Is(e, identity.ErrInvalidCode):
		return httpx.Error(http.StatusBadRequest, e.Message)
	}
	log.Error("identity provider error", "error", e.Err)
	return httpx.Error(http.StatusBadGateway, "Authentication service error. Please try again.")
}

func stepStatus(e *orchestrator.StepError) int {
	switch e.Kind {
	case orchestrator.KindTimeout:
		return http.StatusGatewayTimeout
	case orchestrator.KindUnavailable:
		return http.StatusServiceUnavailable
	case orchestrator.KindCanceled:
		// nginx's client-closed-request; the caller is gone anyway
		return 499
	}
	return http.StatusBadGateway
}
