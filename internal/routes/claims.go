package routes

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/api"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/authz"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/claims"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/httpx"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/validate"

	"github.com/aws/aws-lambda-go/events"
)

// ClaimReader is the read surface of claims.Service.
type ClaimReader interface {
	ListByUser(ctx context.Context, p models.Principal, page claims.Page) (*claims.Listing, error)
	Get(ctx context.Context, p models.Principal, claimID string) (*models.StoredClaim, error)
}

// History serves GET /api/claims/history.
type History struct {
	Claims  ClaimReader
	Auth    authz.Options
	Log     *slog.Logger
	DevMode bool
}

// Handle lists the caller's claims, newest first.
func (h *History) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := loggerOr(h.Log)
	principal, err := authz.FromAPIGWv2(req, h.Auth)
	if err != nil {
		return fail(log, h.DevMode, "unauthorized", err)
	}

	q := req.QueryStringParameters
	page, err := claims.ParsePage(q["page"], q["limit"], q["risk_level"])
	if err != nil {
		return fail(log, h.DevMode, "bad history query", err)
	}

	listing, err := h.Claims.ListByUser(ctx, principal, page)
	if err != nil {
		return fail(log, h.DevMode, "Failed to fetch claims", err)
	}
	return httpx.JSON(http.StatusOK, api.HistoryResponse{
		Claims: listing.Claims,
		Pagination: api.Pagination{
			Page:       listing.Page,
			Limit:      listing.Limit,
			Total:      listing.Total,
			TotalPages: listing.TotalPages,
		},
	})
}

// Claim serves GET /api/claims/{claimId}.
type Claim struct {
	Claims  ClaimReader
	Auth    authz.Options
	Log     *slog.Logger
	DevMode bool
}

// Handle returns one claim the caller owns.
func (h *Claim) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := loggerOr(h.Log)
	principal, err := authz.FromAPIGWv2(req, h.Auth)
	if err != nil {
		return fail(log, h.DevMode, "unauthorized", err)
	}

	id := req.PathParameters["claimId"]
	if err := validate.ClaimID(id); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}

	c, err := h.Claims.Get(ctx, principal, id)
	if err != nil {
		return fail(log, h.DevMode, "Failed to fetch claim", err)
	}
	return httpx.JSON(http.StatusOK, c)
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
