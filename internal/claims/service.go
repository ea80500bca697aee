// Package claims exposes a caller's stored claim results, scoped to that caller.
package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/ddb"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"
)

// Errors returned by the service. Route handlers map them to 400/403/404.
var (
	ErrNotFound     = errors.New("claim not found")
	ErrForbidden    = errors.New("access denied")
	ErrInvalidInput = errors.New("invalid input")
)

// Page limits.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Store is the read side of the claim table.
type Store interface {
	GetClaim(ctx context.Context, claimID string) (*models.StoredClaim, error)
	QueryByUser(ctx context.Context, userID string, level models.RiskLevel, fn func(models.StoredClaim) bool) error
}

// Page selects one page of a caller's history. An empty RiskLevel means all levels.
type Page struct {
	Number    int
	Limit     int
	RiskLevel models.RiskLevel
}

// Listing is one page of history plus the totals over the filtered set.
type Listing struct {
	Claims     []models.StoredClaim
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// ParsePage reads raw query values. Empty values take defaults; a limit
// above MaxLimit is clamped. "ALL" or an empty risk level disables the filter.
func ParsePage(page, limit, risk string) (Page, error) {
	p := Page{Number: 1, Limit: DefaultLimit}

	if s := strings.TrimSpace(page); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, fmt.Errorf("%w: page must be a positive integer", ErrInvalidInput)
		}
		p.Number = n
	}
	if s := strings.TrimSpace(limit); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, fmt.Errorf("%w: limit must be a positive integer", ErrInvalidInput)
		}
		p.Limit = min(n, MaxLimit)
	}

	level := models.RiskLevel(strings.ToUpper(strings.TrimSpace(risk)))
	switch {
	case level == "" || level == "ALL":
	case level.Valid():
		p.RiskLevel = level
	default:
		return p, fmt.Errorf("%w: unknown risk_level %q", ErrInvalidInput, risk)
	}
	return p, nil
}

// Service answers history and detail reads for an authenticated principal.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService wires a store. A nil logger falls back to slog.Default.
func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// ListByUser returns the requested page of the caller's claims, newest first.
// The store applies the risk filter, so Total counts only matching records
// and every page but the last is full.
func (s *Service) ListByUser(ctx context.Context, p models.Principal, page Page) (*Listing, error) {
	if p.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Limit < 1 {
		page.Limit = DefaultLimit
	}
	page.Limit = min(page.Limit, MaxLimit)

	offset := (page.Number - 1) * page.Limit
	out := &Listing{Claims: []models.StoredClaim{}, Page: page.Number, Limit: page.Limit}

	err := s.store.QueryByUser(ctx, p.UserID, page.RiskLevel, func(c models.StoredClaim) bool {
		if c.UserID != p.UserID {
			s.log.Warn("dropping foreign claim from listing", "claim_id", c.ClaimID, "owner", c.UserID, "caller", p.UserID)
			return true
		}
		if page.RiskLevel != "" && c.RiskLevel != page.RiskLevel {
			return true
		}
		if out.Total >= offset && len(out.Claims) < page.Limit {
			out.Claims = append(out.Claims, c)
		}
		out.Total++
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}

	out.TotalPages = (out.Total + page.Limit - 1) / page.Limit
	return out, nil
}

// Get returns one claim if the caller owns it. A missing record and a
// foreign record are reported differently.
func (s *Service) Get(ctx context.Context, p models.Principal, claimID string) (*models.StoredClaim, error) {
	if strings.TrimSpace(claimID) == "" {
		return nil, fmt.Errorf("%w: claim id required", ErrInvalidInput)
	}
	c, err := s.store.GetClaim(ctx, claimID)
	if errors.Is(err, ddb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	if c.UserID != p.UserID {
		s.log.Warn("claim access denied", "claim_id", claimID, "caller", p.UserID)
		return nil, ErrForbidden
	}
	return c, nil
}
