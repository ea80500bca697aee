package routes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/authz"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/httpx"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/orchestrator"

	"github.com/aws/aws-lambda-go/events"
)

// multipartMemory bounds how much of a form is buffered in memory.
const multipartMemory = 10 << 20

// Submitter runs a claim submission.
type Submitter interface {
	Submit(ctx context.Context, doc orchestrator.Document, progress orchestrator.ProgressFunc) (*models.ClaimAnalysisResult, error)
}

// Process serves POST /api/process-claim: a multipart upload submitted on
// the caller's behalf. It outlives the gateway's 29s ceiling, so it is only
// mounted on the API server.
type Process struct {
	Orchestrator Submitter
	Auth         authz.Options
	Log          *slog.Logger
	DevMode      bool
}

// Handle reads the "file" part and runs the orchestrator for the caller.
func (h *Process) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := loggerOr(h.Log)
	principal, err := authz.FromAPIGWv2(req, h.Auth)
	if err != nil {
		return fail(log, h.DevMode, "unauthorized", err)
	}

	doc, err := readUpload(req)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	doc.UserID = principal.UserID
	if doc.ClaimID == "" {
		doc.ClaimID = orchestrator.NewClaimID(time.Now())
	}

	result, err := h.Orchestrator.Submit(ctx, doc, func(p orchestrator.Progress) {
		log.Debug("submission progress", "claim_id", doc.ClaimID, "percent", p.Percent, "stage", p.Label)
	})
	if err != nil {
		return fail(log, h.DevMode, "Failed to process claim", err)
	}
	return httpx.JSON(http.StatusOK, result)
}

var errNoFile = errors.New("no file provided")

func readUpload(req events.APIGatewayV2HTTPRequest) (orchestrator.Document, error) {
	mediaType, params, err := mime.ParseMediaType(httpx.Header(req, "content-type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return orchestrator.Document{}, errors.New("expected multipart/form-data")
	}
	body, err := httpx.Body(req)
	if err != nil {
		return orchestrator.Document{}, errors.New("invalid body encoding")
	}

	form, err := multipart.NewReader(bytes.NewReader(body), params["boundary"]).ReadForm(multipartMemory)
	if err != nil {
		return orchestrator.Document{}, fmt.Errorf("invalid form: %v", err)
	}
	defer func() { _ = form.RemoveAll() }()

	files := form.File["file"]
	if len(files) == 0 {
		return orchestrator.Document{}, errNoFile
	}
	f, err := files[0].Open()
	if err != nil {
		return orchestrator.Document{}, errNoFile
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return orchestrator.Document{}, fmt.Errorf("read file: %v", err)
	}

	doc := orchestrator.Document{Filename: files[0].Filename, Body: data}
	if v := form.Value["claim_id"]; len(v) > 0 {
		doc.ClaimID = strings.TrimSpace(v[0])
	}
	return doc, nil
}
