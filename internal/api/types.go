// Package api contains types for the API requests and responses.
package api

import "github.com/kylejryan/healthcare-claims-dashboard/internal/models"

// UploadURLRequest is the body of POST /upload-url.
type UploadURLRequest struct {
	Filename string `json:"filename"`
}

// UploadGrant is a short-lived, single-use write authorization for a direct
// PUT to object storage. Expiry is enforced by the store, not the client.
type UploadGrant struct {
	UploadURL     string            `json:"upload_url"`
	Bucket        string            `json:"s3_bucket"`
	ObjectKey     string            `json:"s3_key"`
	ExpiresIn     int               `json:"expires_in"`
	UploadHeaders map[string]string `json:"upload_headers,omitempty"`
}

// AnalysisRequest is the body of POST /process-claim on the analysis backend.
type AnalysisRequest struct {
	S3Key   string `json:"s3_key"`
	UserID  string `json:"user_id"`
	ClaimID string `json:"claim_id"`
}

// LoginRequest carries the resource-owner credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the dashboard session token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	User      User   `json:"user"`
}

// User is the public view of a principal.
type User struct {
	Email string `json:"email"`
}

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ConfirmRequest carries the emailed verification code.
type ConfirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ResendRequest asks for a fresh verification code.
type ResendRequest struct {
	Email string `json:"email"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
	Next    string `json:"next,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Pagination describes one page of claim history.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HistoryResponse is the body of GET /api/claims/history.
type HistoryResponse struct {
	Claims     []models.StoredClaim `json:"claims"`
	Pagination Pagination           `json:"pagination"`
}
