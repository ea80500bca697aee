package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/logging"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/orchestrator"
)

func (c *cli) runSubmit(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	claimID := fs.String("claim-id", "", "claim id (default CLAIM-<unix millis>)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "submit requires exactly one PDF path")
		return 2
	}
	if c.prof.UploadURLEndpoint == "" || c.prof.AnalysisEndpoint == "" {
		fmt.Fprintln(c.stderr, "no processing endpoints configured: run claimctl configure -upload-url-endpoint <url> -analysis-endpoint <url>")
		return 2
	}
	if !c.needLogin() {
		return 2
	}

	file := fs.Arg(0)
	body, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(c.stderr, "read %s: %v\n", file, err)
		return 1
	}

	level := c.prof.LogLevel
	if level == "" {
		level = "warn"
	}
	// No breaker: one submission per invocation has nothing to fail fast on.
	orch, err := orchestrator.New(orchestrator.Config{
		UploadURLEndpoint: c.prof.UploadURLEndpoint,
		AnalysisEndpoint:  c.prof.AnalysisEndpoint,
		SettleDelay:       time.Second,
	}, orchestrator.WithLogger(logging.NewWithWriter(c.stderr, "claimctl", level)))
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}

	res, err := orch.Submit(ctx, orchestrator.Document{
		Filename: filepath.Base(file),
		Body:     body,
		UserID:   c.prof.Email,
		ClaimID:  *claimID,
	}, func(p orchestrator.Progress) {
		fmt.Fprintf(c.stdout, "[%3d%%] %s\n", p.Percent, p.Label)
	})
	if err != nil {
		fmt.Fprintf(c.stderr, "submit failed: %v\n", err)
		return 1
	}
	printResult(c.stdout, res)
	return 0
}

func (c *cli) runHistory(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 10, "claims per page (max 100)")
	risk := fs.String("risk", "", "risk level filter (CRITICAL, HIGH, MEDIUM, LOW, VERY_LOW)")
	xlsx := fs.String("xlsx", "", "also export this page to a spreadsheet")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !c.needLogin() {
		return 2
	}

	res, err := c.client().History(ctx, *page, *limit, *risk)
	if err != nil {
		fmt.Fprintf(c.stderr, "history failed: %v\n", err)
		return 1
	}
	if len(res.Claims) == 0 {
		fmt.Fprintln(c.stdout, "no claims found")
	} else {
		tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CLAIM ID\tSUBMITTED\tSCORE\tRISK\tRECOMMENDATION\tPATIENT")
		for _, cl := range res.Claims {
			patient := "-"
			if cl.ClaimSummary != nil && cl.ClaimSummary.PatientName != "" {
				patient = cl.ClaimSummary.PatientName
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
				cl.ClaimID, submittedAt(cl.Timestamp).Format("2006-01-02"), cl.RiskScore,
				cl.RiskLevel, cl.Recommendation, patient)
		}
		_ = tw.Flush()
	}
	pg := res.Pagination
	fmt.Fprintf(c.stdout, "page %d of %d (%d claims)\n", pg.Page, max(pg.TotalPages, 1), pg.Total)

	if *xlsx != "" {
		if err := writeHistoryXLSX(*xlsx, res.Claims); err != nil {
			fmt.Fprintf(c.stderr, "export: %v\n", err)
			return 1
		}
		fmt.Fprintf(c.stdout, "exported %d claims to %s\n", len(res.Claims), *xlsx)
	}
	return 0
}

func (c *cli) runShow(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "show requires a claim id")
		return 2
	}
	if !c.needLogin() {
		return 2
	}
	cl, err := c.client().Claim(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr, "show failed: %v\n", err)
		return 1
	}
	printResult(c.stdout, &cl.ClaimAnalysisResult)
	fmt.Fprintf(c.stdout, "Submitted:       %s\n", submittedAt(cl.Timestamp).Format(time.RFC3339))
	return 0
}

// submittedAt reads a stored timestamp. The backend writes unix seconds;
// older records carry milliseconds.
func submittedAt(ts int64) time.Time {
	if ts > 1e12 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

func printResult(w io.Writer, r *models.ClaimAnalysisResult) {
	fmt.Fprintf(w, "\nClaim:           %s\n", r.ClaimID)
	fmt.Fprintf(w, "Risk score:      %d/100 (%s)\n", r.RiskScore, r.RiskLevel)
	fmt.Fprintf(w, "Recommendation:  %s\n", r.Recommendation)
	if r.ProcessingTimeSeconds != "" {
		fmt.Fprintf(w, "Processing time: %ss\n", r.ProcessingTimeSeconds)
	}
	if s := r.ClaimSummary; s != nil {
		fmt.Fprintf(w, "Patient:         %s\n", s.PatientName)
		fmt.Fprintf(w, "Policy:          %s\n", s.PolicyNumber)
		if s.EstimatedAmount != "" {
			fmt.Fprintf(w, "Amount:          %s\n", s.EstimatedAmount)
		}
	}

	fi := r.FraudIndicators
	fmt.Fprintf(w, "\nFraud indicators: %d (severity %s, confidence %d%%, priority %s)\n",
		len(fi.Indicators), orDash(fi.Severity), fi.Confidence, orDash(fi.InvestigationPriority))
	for _, ind := range fi.Indicators {
		fmt.Fprintf(w, "  - %s\n", ind)
	}

	dc := r.DocumentCompleteness
	fmt.Fprintf(w, "\nDocuments: %d/%d present\n", dc.TotalPresent, dc.TotalRequired)
	if len(dc.CriticalMissing) > 0 {
		fmt.Fprintf(w, "  critical missing: %s\n", strings.Join(dc.CriticalMissing, ", "))
	}
	if len(dc.MissingDocuments) > 0 {
		fmt.Fprintf(w, "  missing: %s\n", strings.Join(dc.MissingDocuments, ", "))
	}

	if len(r.KeyFindings) > 0 {
		fmt.Fprintln(w, "\nKey findings:")
		for _, f := range r.KeyFindings {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
