// Package orchestrator drives one claim submission: obtain an upload grant,
// PUT the document to object storage, then ask the analysis backend for a
// verdict. The steps run strictly in order and are never retried.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/api"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/config"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/httpx"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/resilience"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/s3io"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/validate"

	"github.com/google/uuid"
)

const maxResponseBytes = 1 << 20

// Config holds the endpoints and per-step budgets.
type Config struct {
	// UploadURLEndpoint is the base URL serving POST /upload-url.
	UploadURLEndpoint string
	// AnalysisEndpoint is the base URL of the analysis backend, called
	// directly so the gateway's ~29s ceiling does not apply.
	AnalysisEndpoint string

	UploadURLTimeout time.Duration
	TransferTimeout  time.Duration
	AnalysisTimeout  time.Duration
	SettleDelay      time.Duration
}

// ConfigFromEnv picks the orchestrator settings out of the shared env.
func ConfigFromEnv(e config.Env) Config {
	return Config{
		UploadURLEndpoint: e.UploadURLEndpoint,
		AnalysisEndpoint:  e.AnalysisEndpoint,
		UploadURLTimeout:  e.UploadURLTimeout,
		TransferTimeout:   e.TransferTimeout,
		AnalysisTimeout:   e.AnalysisTimeout,
		SettleDelay:       e.SettleDelay,
	}
}

func (c Config) normalize() Config {
	if c.UploadURLTimeout <= 0 {
		c.UploadURLTimeout = 10 * time.Second
	}
	if c.TransferTimeout <= 0 {
		c.TransferTimeout = 30 * time.Second
	}
	if c.AnalysisTimeout <= 0 {
		c.AnalysisTimeout = 120 * time.Second
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	c.UploadURLEndpoint = strings.TrimRight(c.UploadURLEndpoint, "/")
	c.AnalysisEndpoint = strings.TrimRight(c.AnalysisEndpoint, "/")
	return c
}

// Document is one claim file to submit on behalf of UserID. An empty ClaimID
// is generated.
type Document struct {
	Filename string
	Body     []byte
	UserID   string
	ClaimID  string
}

// Observer is told the outcome of every submission.
type Observer func(outcome string, level models.RiskLevel, elapsed time.Duration)

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	cfg      Config
	client   *http.Client
	guard    *resilience.Guard
	log      *slog.Logger
	observe  Observer
	now      func() time.Time
	newReqID func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHTTPClient replaces the default client. Per-step deadlines come from
// the context, so the client should not set its own Timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

// WithGuard sets the fail-fast breakers.
func WithGuard(g *resilience.Guard) Option {
	return func(o *Orchestrator) { o.guard = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithObserver registers a submission observer.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observe = fn }
}

// WithClock overrides time.Now, used for generated claim ids.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New builds an orchestrator. Both endpoints are required.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg = cfg.normalize()
	if cfg.UploadURLEndpoint == "" || cfg.AnalysisEndpoint == "" {
		return nil, errors.New("orchestrator: upload url and analysis endpoints are required")
	}
	o := &Orchestrator{
		cfg:      cfg,
		client:   &http.Client{},
		log:      slog.Default(),
		now:      time.Now,
		newReqID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Submit runs the three steps for doc and returns the backend's verdict.
// progress may be nil. Any failure is a *StepError or wraps ErrInvalidDocument.
func (o *Orchestrator) Submit(ctx context.Context, doc Document, progress ProgressFunc) (*models.ClaimAnalysisResult, error) {
	start := o.now()
	res, err := o.submit(ctx, doc, progress)
	if o.observe != nil {
		var level models.RiskLevel
		if res != nil {
			level = res.RiskLevel
		}
		o.observe(Outcome(err), level, o.now().Sub(start))
	}
	return res, err
}

// NewClaimID is the id given to a submission that did not bring one.
func NewClaimID(t time.Time) string {
	return fmt.Sprintf("CLAIM-%d", t.UnixMilli())
}

func (o *Orchestrator) submit(ctx context.Context, doc Document, progress ProgressFunc) (*models.ClaimAnalysisResult, error) {
	if err := checkDocument(doc); err != nil {
		return nil, err
	}
	if doc.ClaimID == "" {
		doc.ClaimID = NewClaimID(o.now())
	}
	reqID := httpx.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = o.newReqID()
	}
	log := o.log.With("request_id", reqID, "claim_id", doc.ClaimID, "user_id", doc.UserID)

	report(progress, StageUploadURL)
	grant, err := o.requestGrant(ctx, reqID, doc.Filename)
	if err != nil {
		log.Error("upload grant failed", "error", err)
		return nil, err
	}

	report(progress, StageTransfer)
	if err := o.transfer(ctx, reqID, grant, doc.Body); err != nil {
		log.Error("transfer failed", "s3_key", grant.ObjectKey, "error", err)
		return nil, err
	}

	report(progress, StagePreparing)
	if err := sleep(ctx, o.cfg.SettleDelay); err != nil {
		o.logOrphan(log, grant.ObjectKey, err)
		return nil, &StepError{Step: StepAnalysis, Kind: KindCanceled, Err: err}
	}

	report(progress, StageAnalyzing)
	result, err := o.analyze(ctx, reqID, api.AnalysisRequest{
		S3Key:   grant.ObjectKey,
		UserID:  doc.UserID,
		ClaimID: doc.ClaimID,
	})
	if err != nil {
		o.logOrphan(log, grant.ObjectKey, err)
		return nil, err
	}

	report(progress, StageComplete)
	log.Info("claim analyzed", "risk_score", result.RiskScore, "risk_level", result.RiskLevel, "recommendation", result.Recommendation)
	return result, nil
}

// logOrphan notes an uploaded object no result will reference. The janitor
// removes it after its grace period.
func (o *Orchestrator) logOrphan(log *slog.Logger, key string, err error) {
	log.Warn("uploaded document left without analysis", "s3_key", key, "error", err)
}

func checkDocument(doc Document) error {
	if err := validate.Filename(doc.Filename); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := validate.PDF(doc.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if strings.TrimSpace(doc.UserID) == "" {
		return fmt.Errorf("%w: user id required", ErrInvalidDocument)
	}
	if doc.ClaimID != "" {
		if err := validate.ClaimID(doc.ClaimID); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}
	return nil
}

func (o *Orchestrator) requestGrant(ctx context.Context, reqID, filename string) (*api.UploadGrant, error) {
	body, _ := json.Marshal(api.UploadURLRequest{Filename: filename})
	var grant api.UploadGrant
	err := o.call(ctx, StepUploadURL, o.cfg.UploadURLTimeout, func(stepCtx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(stepCtx, http.MethodPost, o.cfg.UploadURLEndpoint+"/upload-url", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(httpx.RequestIDHeader, reqID)
		return req, nil
	}, func(raw []byte) error {
		if err := json.Unmarshal(raw, &grant); err != nil {
			return err
		}
		if grant.UploadURL == "" || grant.ObjectKey == "" {
			return errors.New("grant missing upload_url or s3_key")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (o *Orchestrator) transfer(ctx context.Context, reqID string, grant *api.UploadGrant, doc []byte) error {
	return o.call(ctx, StepTransfer, o.cfg.TransferTimeout, func(stepCtx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(stepCtx, http.MethodPut, grant.UploadURL, bytes.NewReader(doc))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", s3io.ContentTypePDF)
		for k, v := range grant.UploadHeaders {
			req.Header.Set(k, v)
		}
		req.Header.Set(httpx.RequestIDHeader, reqID)
		return req, nil
	}, nil)
}

func (o *Orchestrator) analyze(ctx context.Context, reqID string, in api.AnalysisRequest) (*models.ClaimAnalysisResult, error) {
	body, _ := json.Marshal(in)
	var result models.ClaimAnalysisResult
	err := o.call(ctx, StepAnalysis, o.cfg.AnalysisTimeout, func(stepCtx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(stepCtx, http.MethodPost, o.cfg.AnalysisEndpoint+"/process-claim", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(httpx.RequestIDHeader, reqID)
		return req, nil
	}, func(raw []byte) error {
		if err := json.Unmarshal(raw, &result); err != nil {
			return err
		}
		return result.Validate()
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// call runs one step under its own deadline and the step's breaker. decode
// may be nil when the response body is not needed.
func (o *Orchestrator) call(
	ctx context.Context,
	step Step,
	timeout time.Duration,
	build func(context.Context) (*http.Request, error),
	decode func([]byte) error,
) error {
	start := time.Now()
	var stepErr *StepError

	err := o.guard.Do(ctx, string(step), func(ctx context.Context) error {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := build(stepCtx)
		if err != nil {
			stepErr = &StepError{Step: step, Kind: KindTransport, Err: err}
			return stepErr
		}
		resp, err := o.client.Do(req)
		if err != nil {
			stepErr = &StepError{Step: step, Kind: classify(ctx, err), Timeout: timeout, Err: err}
			return stepErr
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			stepErr = &StepError{Step: step, Kind: classify(ctx, err), Timeout: timeout, StatusCode: resp.StatusCode, Err: err}
			return stepErr
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			stepErr = &StepError{Step: step, Kind: KindStatus, StatusCode: resp.StatusCode, Message: remoteMessage(raw)}
			return stepErr
		}
		if decode != nil {
			if err := decode(raw); err != nil {
				stepErr = &StepError{Step: step, Kind: KindMalformed, StatusCode: resp.StatusCode, Err: err}
				return stepErr
			}
		}
		return nil
	}, countsAgainstBreaker)

	if err == nil {
		return nil
	}
	if stepErr == nil {
		// the breaker refused the call
		stepErr = &StepError{Step: step, Kind: KindUnavailable, Err: err}
	}
	stepErr.Elapsed = time.Since(start)
	return stepErr
}

// countsAgainstBreaker ignores client-side mistakes and cancellations.
func countsAgainstBreaker(err error) bool {
	var se *StepError
	if !errors.As(err, &se) {
		return true
	}
	switch se.Kind {
	case KindCanceled, KindMalformed:
		return false
	case KindStatus:
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// remoteMessage pulls error text out of a failed response.
func remoteMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil {
		for _, s := range []string{body.Error, body.Message, body.Detail} {
			if s != "" {
				return s
			}
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
