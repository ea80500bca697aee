package routes

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/api"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/httpx"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/identity"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"

	"github.com/aws/aws-lambda-go/events"
)

// Authenticator is the identity provider surface the auth routes need.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (identity.Identity, error)
	Register(ctx context.Context, name, email, password string) error
	Confirm(ctx context.Context, email, code string) error
	ResendCode(ctx context.Context, email string) error
}

// TokenIssuer mints dashboard session tokens.
type TokenIssuer interface {
	Issue(p models.Principal) (string, time.Duration, error)
}

// Auth serves every /api/auth/* route from one Lambda.
type Auth struct {
	Identity Authenticator
	Sessions TokenIssuer
	Log      *slog.Logger
	DevMode  bool
}

// Handle dispatches on the last path segment.
func (h *Auth) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	p := req.RawPath
	if p == "" {
		p = req.RequestContext.HTTP.Path
	}
	switch path.Base(p) {
	case "login":
		return h.login(ctx, req)
	case "register":
		return h.register(ctx, req)
	case "confirm":
		return h.confirm(ctx, req)
	case "resend":
		return h.resend(ctx, req)
	}
	return httpx.Error(http.StatusNotFound, "not found")
}

func (h *Auth) login(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body api.LoginRequest
	if err := httpx.Decode(req, &body); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	id, err := h.Identity.Authenticate(ctx, body.Email, body.Password)
	if err != nil {
		return fail(loggerOr(h.Log), h.DevMode, "login failed", err)
	}

	token, ttl, err := h.Sessions.Issue(models.Principal{UserID: id.Email, Subject: id.Subject})
	if err != nil {
		return httpx.Internal(loggerOr(h.Log), "failed to create session", err, h.DevMode)
	}
	loggerOr(h.Log).Info("user logged in", "user_id", id.Email)
	return httpx.JSON(http.StatusOK, api.LoginResponse{
		Token:     token,
		ExpiresIn: int(ttl.Seconds()),
		User:      api.User{Email: id.Email},
	})
}

func (h *Auth) register(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body api.RegisterRequest
	if err := httpx.Decode(req, &body); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	if err := h.Identity.Register(ctx, body.Name, body.Email, body.Password); err != nil {
		return fail(loggerOr(h.Log), h.DevMode, "registration failed", err)
	}
	return httpx.JSON(http.StatusCreated, api.MessageResponse{
		Message: "Registration successful. Check your email for the 6-digit verification code.",
		Next:    "verify",
	})
}

func (h *Auth) confirm(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body api.ConfirmRequest
	if err := httpx.Decode(req, &body); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	if err := h.Identity.Confirm(ctx, body.Email, body.Code); err != nil {
		return fail(loggerOr(h.Log), h.DevMode, "verification failed", err)
	}
	return httpx.JSON(http.StatusOK, api.MessageResponse{
		Message: "Email verified successfully. You can now log in.",
		Next:    "login",
	})
}

func (h *Auth) resend(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body api.ResendRequest
	if err := httpx.Decode(req, &body); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	if err := h.Identity.ResendCode(ctx, body.Email); err != nil {
		return fail(loggerOr(h.Log), h.DevMode, "resend failed", err)
	}
	return httpx.JSON(http.StatusOK, api.MessageResponse{Message: "A new verification code has been sent to your email."})
}
