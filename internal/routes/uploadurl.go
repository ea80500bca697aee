package routes

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/api"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/httpx"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/s3io"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/validate"

	"github.com/aws/aws-lambda-go/events"
)

// UploadURL issues presigned PUT grants. It is identity-agnostic and writes
// nothing to the claim table.
type UploadURL struct {
	Presigner s3io.Presigner
	Bucket    string
	TTL       time.Duration
	Log       *slog.Logger
	DevMode   bool
}

// Handle serves POST /upload-url.
func (h *UploadURL) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body api.UploadURLRequest
	if err := httpx.Decode(req, &body); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	if err := validate.FilenamePDF(body.Filename); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}

	key := s3io.BuildKey(s3io.NewObjectID())
	meta := map[string]string{"original_filename": sanitizeName(body.Filename)}

	url, err := s3io.PresignPut(ctx, h.Presigner, h.Bucket, key, meta, h.TTL)
	if err != nil {
		return httpx.Internal(h.Log, "failed to generate upload URL", err, h.DevMode)
	}
	loggerOr(h.Log).Info("upload url issued", "s3_key", key, "request_id", req.RequestContext.RequestID)

	return httpx.JSON(http.StatusOK, api.UploadGrant{
		UploadURL:     url,
		Bucket:        h.Bucket,
		ObjectKey:     key,
		ExpiresIn:     int(h.TTL.Seconds()),
		UploadHeaders: s3io.UploadHeaders(),
	})
}

// sanitizeName keeps object metadata printable ASCII, which is all S3 accepts
// unencoded, and bounds its length.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			r = '_'
		}
		b.WriteRune(r)
		if b.Len() >= 255 {
			break
		}
	}
	if b.Len() == 0 {
		return "claim.pdf"
	}
	return b.String()
}
