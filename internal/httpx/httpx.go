// Package httpx provides helper functions for creating HTTP responses.
package httpx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/api"

	"github.com/aws/aws-lambda-go/events"
)

// JSON creates a JSON HTTP response with the given status code and value.
func JSON(status int, v any) (events.APIGatewayV2HTTPResponse, error) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode response", "error", err)
		status = http.StatusInternalServerError
		b = []byte(`{"error":"internal error"}`)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":           "application/json",
			"X-Content-Type-Options": "nosniff",
		},
		Body: string(b),
	}, nil
}

// Error creates a JSON HTTP error response with the given status code and message.
func Error(status int, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return JSON(status, api.ErrorResponse{Error: msg})
}

// ErrorCode is Error plus a machine-readable code clients branch on.
func ErrorCode(status int, code, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return JSON(status, api.ErrorResponse{Error: msg, Code: code})
}

// Internal logs err and answers 500 with a generic message. The error text
// is included only in dev mode.
func Internal(log *slog.Logger, msg string, err error, dev bool) (events.APIGatewayV2HTTPResponse, error) {
	if log == nil {
		log = slog.Default()
	}
	log.Error(msg, "error", err)
	body := api.ErrorResponse{Error: msg}
	if dev && err != nil {
		body.Detail = err.Error()
	}
	return JSON(http.StatusInternalServerError, body)
}

// ErrEmptyBody is returned by Decode for a request without a body.
var ErrEmptyBody = errors.New("request body required")

// Body returns the raw request body, undoing API Gateway's base64 encoding.
func Body(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	return base64.StdEncoding.DecodeString(req.Body)
}

// Decode unmarshals a JSON request body into v.
func Decode(req events.APIGatewayV2HTTPRequest, v any) error {
	b, err := Body(req)
	if err != nil {
		return errors.New("invalid body encoding")
	}
	if len(b) == 0 {
		return ErrEmptyBody
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.New("invalid json")
	}
	return nil
}

// Header looks a request header up ignoring case. API Gateway v2 lowercases
// names, the net/http adapter does the same.
func Header(req events.APIGatewayV2HTTPRequest, name string) string {
	if v, ok := req.Headers[name]; ok {
		return v
	}
	for k, v := range req.Headers {
		if http.CanonicalHeaderKey(k) == http.CanonicalHeaderKey(name) {
			return v
		}
	}
	return ""
}
