// Package models defines the data models used in the application.
package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// RiskLevel is the backend's coarse risk classification.
type RiskLevel string

// Possible values for RiskLevel
const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
	RiskVeryLow  RiskLevel = "VERY_LOW"
)

// Valid reports whether l is one of the known levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskCritical, RiskHigh, RiskMedium, RiskLow, RiskVeryLow:
		return true
	}
	return false
}

// Recommendation is the action the backend suggests for a claim.
type Recommendation string

// Possible values for Recommendation
const (
	RecommendReject        Recommendation = "REJECT"
	RecommendInvestigation Recommendation = "DETAILED_INVESTIGATION"
	RecommendManualReview  Recommendation = "MANUAL_REVIEW"
	RecommendAutoApprove   Recommendation = "AUTO_APPROVE"
)

// Valid reports whether r is one of the known recommendations.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendReject, RecommendInvestigation, RecommendManualReview, RecommendAutoApprove:
		return true
	}
	return false
}

// StatusSuccess is the only status a usable analysis result carries.
const StatusSuccess = "success"

// Seconds is a duration reported by the backend. It arrives either as a JSON
// string ("38.2") or a number depending on the backend build, and is kept as
// the textual form for display.
type Seconds string

// UnmarshalJSON accepts strings, numbers and null.
func (s *Seconds) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = Seconds(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("seconds: %w", err)
	}
	*s = Seconds(n.String())
	return nil
}

// UnmarshalDynamoDBAttributeValue accepts S and N attributes.
func (s *Seconds) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		*s = Seconds(v.Value)
	case *types.AttributeValueMemberN:
		*s = Seconds(v.Value)
	case *types.AttributeValueMemberNULL:
		*s = ""
	default:
		return fmt.Errorf("seconds: unsupported attribute type %T", av)
	}
	return nil
}

// DocumentCompleteness describes which supporting documents were found.
type DocumentCompleteness struct {
	Score            float64  `json:"score" dynamodbav:"score"`
	TotalPresent     int      `json:"total_present" dynamodbav:"total_present"`
	TotalRequired    int      `json:"total_required" dynamodbav:"total_required"`
	PresentDocuments []string `json:"present_documents" dynamodbav:"present_documents"`
	MissingDocuments []string `json:"missing_documents" dynamodbav:"missing_documents"`
	CriticalMissing  []string `json:"critical_missing" dynamodbav:"critical_missing"`
	Notes            string   `json:"notes" dynamodbav:"notes"`
}

// FraudIndicators summarizes the backend's fraud signals. Detected=false with
// a non-empty Indicators list is tolerated.
type FraudIndicators struct {
	Detected              bool     `json:"detected" dynamodbav:"detected"`
	Severity              string   `json:"severity" dynamodbav:"severity"`
	Confidence            int      `json:"confidence" dynamodbav:"confidence"`
	InvestigationPriority string   `json:"investigation_priority" dynamodbav:"investigation_priority"`
	CategoriesDetected    []string `json:"categories_detected" dynamodbav:"categories_detected"`
	Indicators            []string `json:"indicators" dynamodbav:"indicators"`
}

// ClaimSummary holds the fields the backend extracted from the claim form.
type ClaimSummary struct {
	ClaimType       string `json:"claim_type" dynamodbav:"claim_type"`
	PatientName     string `json:"patient_name" dynamodbav:"patient_name"`
	PolicyNumber    string `json:"policy_number" dynamodbav:"policy_number"`
	PHSID           string `json:"phs_id" dynamodbav:"phs_id"`
	InsuredName     string `json:"insured_name" dynamodbav:"insured_name"`
	SubmissionDate  string `json:"submission_date" dynamodbav:"submission_date"`
	EstimatedAmount string `json:"estimated_amount" dynamodbav:"estimated_amount"`
	HospitalDetails string `json:"hospital_details" dynamodbav:"hospital_details"`
	TreatmentDates  string `json:"treatment_dates" dynamodbav:"treatment_dates"`
}

// ClaimAnalysisResult is the verdict returned by the analysis backend. It is
// produced once and never modified here.
type ClaimAnalysisResult struct {
	Status                string               `json:"status" dynamodbav:"status"`
	ClaimID               string               `json:"claim_id" dynamodbav:"claim_id"`
	RiskScore             int                  `json:"risk_score" dynamodbav:"risk_score"`
	RiskLevel             RiskLevel            `json:"risk_level" dynamodbav:"risk_level"`
	Recommendation        Recommendation       `json:"recommendation" dynamodbav:"recommendation"`
	ProcessingTimeSeconds Seconds              `json:"processing_time_seconds" dynamodbav:"processing_time_seconds"`
	TextractTimeSeconds   Seconds              `json:"textract_time_seconds,omitempty" dynamodbav:"textract_time_seconds,omitempty"`
	AITimeSeconds         Seconds              `json:"ai_time_seconds,omitempty" dynamodbav:"ai_time_seconds,omitempty"`
	ExtractedFieldsCount  int                  `json:"extracted_fields_count,omitempty" dynamodbav:"extracted_fields_count,omitempty"`
	TablesFound           int                  `json:"tables_found,omitempty" dynamodbav:"tables_found,omitempty"`
	ResultsURL            string               `json:"results_url,omitempty" dynamodbav:"results_url,omitempty"`
	DocumentCompleteness  DocumentCompleteness `json:"document_completeness" dynamodbav:"document_completeness"`
	FraudIndicators       FraudIndicators      `json:"fraud_indicators" dynamodbav:"fraud_indicators"`
	KeyFindings           []string             `json:"key_findings" dynamodbav:"key_findings"`
	ClaimSummary          *ClaimSummary        `json:"claim_summary,omitempty" dynamodbav:"claim_summary,omitempty"`
}

// ErrMalformedResult is wrapped by Validate failures.
var ErrMalformedResult = errors.New("malformed analysis result")

// Validate checks the shape of a result. The score/level/recommendation
// mapping belongs to the backend and is not re-derived.
func (r *ClaimAnalysisResult) Validate() error {
	switch {
	case r.Status != StatusSuccess:
		return fmt.Errorf("%w: status %q", ErrMalformedResult, r.Status)
	case r.ClaimID == "":
		return fmt.Errorf("%w: missing claim_id", ErrMalformedResult)
	case r.RiskScore < 0 || r.RiskScore > 100:
		return fmt.Errorf("%w: risk_score %d out of range", ErrMalformedResult, r.RiskScore)
	case !r.RiskLevel.Valid():
		return fmt.Errorf("%w: risk_level %q", ErrMalformedResult, r.RiskLevel)
	case !r.Recommendation.Valid():
		return fmt.Errorf("%w: recommendation %q", ErrMalformedResult, r.Recommendation)
	}
	return nil
}

// StoredClaim is a result as persisted by the analysis backend in the claim
// table: partition key claim_id, GSI on user_id + timestamp.
type StoredClaim struct {
	ClaimAnalysisResult

	UserID    string `json:"user_id" dynamodbav:"user_id"`
	Timestamp int64  `json:"timestamp" dynamodbav:"timestamp"`
	S3Key     string `json:"s3_key,omitempty" dynamodbav:"s3_key,omitempty"`
}

// Principal is the authenticated caller. UserID is the caller's email, the
// owner key stored on every claim record.
type Principal struct {
	UserID  string
	Subject string
}
