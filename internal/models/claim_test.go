package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const sampleResult = `{
	"status": "success",
	"claim_id": "CLAIM-171234",
	"risk_score": 82,
	"risk_level": "HIGH",
	"recommendation": "DETAILED_INVESTIGATION",
	"processing_time_seconds": "38.2",
	"ai_time_seconds": 21.5,
	"document_completeness": {"score": 0.8, "total_present": 4, "total_required": 5, "missing_documents": ["discharge summary"], "notes": ""},
	"fraud_indicators": {"detected": true, "severity": "high", "confidence": 77, "investigation_priority": "urgent", "categories_detected": ["billing"], "indicators": ["duplicate invoice", "inflated room charges"]},
	"key_findings": ["amount exceeds policy cap"]
}`

func TestDecodeAnalysisResult(t *testing.T) {
	var r ClaimAnalysisResult
	if err := json.Unmarshal([]byte(sampleResult), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if r.ProcessingTimeSeconds != "38.2" {
		t.Fatalf("string seconds not kept: %q", r.ProcessingTimeSeconds)
	}
	if r.AITimeSeconds != "21.5" {
		t.Fatalf("numeric seconds not kept: %q", r.AITimeSeconds)
	}
	if len(r.FraudIndicators.Indicators) != 2 {
		t.Fatalf("expected 2 indicators, got %v", r.FraudIndicators.Indicators)
	}
	if r.ClaimSummary != nil {
		t.Fatalf("claim summary should be absent")
	}
}

func TestValidateRejectsOutOfRangeScore(t *testing.T) {
	for _, score := range []int{-1, 101} {
		r := ClaimAnalysisResult{Status: StatusSuccess, ClaimID: "c", RiskScore: score, RiskLevel: RiskLow, Recommendation: RecommendAutoApprove}
		if err := r.Validate(); !errors.Is(err, ErrMalformedResult) {
			t.Fatalf("score %d: expected malformed error, got %v", score, err)
		}
	}
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	base := ClaimAnalysisResult{Status: StatusSuccess, ClaimID: "c", RiskScore: 10, RiskLevel: RiskLow, Recommendation: RecommendAutoApprove}

	badLevel := base
	badLevel.RiskLevel = "SEVERE"
	if err := badLevel.Validate(); !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("expected malformed for level, got %v", err)
	}

	badRec := base
	badRec.Recommendation = "ESCALATE"
	if err := badRec.Validate(); !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("expected malformed for recommendation, got %v", err)
	}

	errStatus := base
	errStatus.Status = "error"
	if err := errStatus.Validate(); !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("expected malformed for status, got %v", err)
	}
}

func TestStoredClaimFromAttributeValues(t *testing.T) {
	item := map[string]types.AttributeValue{
		"claim_id":                &types.AttributeValueMemberS{Value: "CLAIM-1"},
		"user_id":                 &types.AttributeValueMemberS{Value: "ana@example.com"},
		"timestamp":               &types.AttributeValueMemberN{Value: "1712340000"},
		"status":                  &types.AttributeValueMemberS{Value: "success"},
		"risk_score":              &types.AttributeValueMemberN{Value: "45"},
		"risk_level":              &types.AttributeValueMemberS{Value: "MEDIUM"},
		"recommendation":          &types.AttributeValueMemberS{Value: "MANUAL_REVIEW"},
		"processing_time_seconds": &types.AttributeValueMemberN{Value: "31.7"},
		"s3_key":                  &types.AttributeValueMemberS{Value: "claims/01HX.pdf"},
	}

	var c StoredClaim
	if err := attributevalue.UnmarshalMap(item, &c); err != nil {
		t.Fatalf("UnmarshalMap: %v", err)
	}
	if c.ClaimID != "CLAIM-1" || c.UserID != "ana@example.com" || c.Timestamp != 1712340000 {
		t.Fatalf("unexpected keys: %+v", c)
	}
	if c.RiskLevel != RiskMedium || c.RiskScore != 45 {
		t.Fatalf("unexpected verdict: %+v", c.ClaimAnalysisResult)
	}
	if c.ProcessingTimeSeconds != "31.7" {
		t.Fatalf("numeric attribute seconds not kept: %q", c.ProcessingTimeSeconds)
	}
}
