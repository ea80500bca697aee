package httpx

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

// LambdaHandler is the shape of every HTTP API route handler.
type LambdaHandler func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// maxBodyBytes mirrors the payload ceiling of a Lambda invocation.
const maxBodyBytes = 6 << 20

// ErrBodyTooLarge is returned by ToAPIGWv2 for bodies over the Lambda limit.
var ErrBodyTooLarge = errors.New("request body too large")

// Adapt serves a route handler from net/http, so the long-running API server
// and the Lambdas share one implementation. params names the path wildcards
// to copy into PathParameters.
func Adapt(h LambdaHandler, params ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := ToAPIGWv2(r, params...)
		if errors.Is(err, ErrBodyTooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "could not read request body")
			return
		}
		resp, err := h(r.Context(), req)
		if err != nil {
			slog.Error("route handler failed", "path", r.URL.Path, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "internal error")
			return
		}
		WriteResponse(w, resp)
	})
}

// ToAPIGWv2 converts an inbound request into the event API Gateway would
// deliver for it.
func ToAPIGWv2(r *http.Request, params ...string) (events.APIGatewayV2HTTPRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return events.APIGatewayV2HTTPRequest{}, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return events.APIGatewayV2HTTPRequest{}, ErrBodyTooLarge
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ",")
	}
	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	var path map[string]string
	for _, p := range params {
		if path == nil {
			path = make(map[string]string, len(params))
		}
		path[p] = r.PathValue(p)
	}

	req := events.APIGatewayV2HTTPRequest{
		Version:               "2.0",
		RouteKey:              r.Method + " " + r.URL.Path,
		RawPath:               r.URL.Path,
		RawQueryString:        r.URL.RawQuery,
		Headers:               headers,
		QueryStringParameters: query,
		PathParameters:        path,
	}
	req.RequestContext.HTTP = events.APIGatewayV2HTTPRequestContextHTTPDescription{
		Method:    r.Method,
		Path:      r.URL.Path,
		Protocol:  r.Proto,
		SourceIP:  clientIP(r),
		UserAgent: r.UserAgent(),
	}
	req.RequestContext.RequestID = RequestIDFromContext(r.Context())

	if isText(headers["content-type"], body) {
		req.Body = string(body)
	} else {
		req.Body = base64.StdEncoding.EncodeToString(body)
		req.IsBase64Encoded = true
	}
	return req, nil
}

// WriteResponse writes a route handler's response to w.
func WriteResponse(w http.ResponseWriter, resp events.APIGatewayV2HTTPResponse) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	for _, c := range resp.Cookies {
		w.Header().Add("Set-Cookie", c)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if resp.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			slog.Error("decode response body", "error", err)
			return
		}
		_, _ = w.Write(b)
		return
	}
	_, _ = io.WriteString(w, resp.Body)
}

// isText reports whether body can travel as a plain string. Multipart and
// binary uploads are base64 encoded like API Gateway does.
func isText(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	for _, bin := range []string{"multipart/", "application/pdf", "application/octet-stream"} {
		if strings.HasPrefix(ct, bin) {
			return false
		}
	}
	return utf8.Valid(body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	resp, _ := Error(status, msg)
	WriteResponse(w, resp)
}
