// Package authz resolves the calling principal for HTTP API requests.
package authz

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"

	"github.com/aws/aws-lambda-go/events"
)

// ErrUnauthorized is returned when no usable identity is on the request.
var ErrUnauthorized = errors.New("unauthorized")

const devBypassHeader = "x-user-sub"

// Verifier checks a dashboard session token.
type Verifier interface {
	Verify(token string) (models.Principal, error)
}

// Options controls which identity sources are trusted.
type Options struct {
	// DevBypass trusts the x-user-sub header as the caller's email.
	DevBypass bool
	// Sessions verifies bearer tokens; nil disables bearer auth.
	Sessions Verifier
}

// --- small utils ---

// headerLookup returns the value of a header key, ignoring case.
func headerLookup(h map[string]string, key string) string {
	if len(h) == 0 {
		return ""
	}
	if v, ok := h[strings.ToLower(key)]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// stringIf returns v if it is a non-empty string.
func stringIf(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return ""
}

// principalFromClaims reads email (owner key) and sub from a claims map in
// any of the shapes authorizers hand over.
func principalFromClaims(raw any) models.Principal {
	var m map[string]any
	switch c := raw.(type) {
	case map[string]any:
		m = c
	case map[string]string:
		m = make(map[string]any, len(c))
		for k, v := range c {
			m[k] = v
		}
	case string:
		_ = json.Unmarshal([]byte(c), &m)
	}
	p := models.Principal{UserID: stringIf(m["email"]), Subject: stringIf(m["sub"])}
	if p.UserID == "" {
		p.UserID = p.Subject
	}
	return p
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(headers map[string]string) string {
	auth := strings.TrimSpace(headerLookup(headers, "Authorization"))
	if len(auth) < len("bearer ") || !strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[len("bearer "):])
}

// FromAPIGWv2 returns the caller of an HTTP API (v2) request. Sources are
// tried in order: dev bypass header, JWT authorizer claims, Lambda
// authorizer context, verified session bearer token.
func FromAPIGWv2(req events.APIGatewayV2HTTPRequest, opts Options) (models.Principal, error) {
	// 0) Dev bypass header
	if opts.DevBypass {
		if user := strings.TrimSpace(headerLookup(req.Headers, devBypassHeader)); user != "" {
			return models.Principal{UserID: user, Subject: user}, nil
		}
	}

	// 1) API Gateway authorizers
	if a := req.RequestContext.Authorizer; a != nil {
		if a.JWT != nil && a.JWT.Claims != nil {
			if p := principalFromClaims(a.JWT.Claims); p.UserID != "" {
				return p, nil
			}
		}
		if a.Lambda != nil {
			if p := principalFromClaims(a.Lambda["claims"]); p.UserID != "" {
				return p, nil
			}
			if p := principalFromClaims(a.Lambda); p.UserID != "" {
				return p, nil
			}
		}
	}

	// 2) Session token, verified
	if opts.Sessions != nil {
		if tok := BearerToken(req.Headers); tok != "" {
			if p, err := opts.Sessions.Verify(tok); err == nil {
				return p, nil
			}
		}
	}

	return models.Principal{}, ErrUnauthorized
}
