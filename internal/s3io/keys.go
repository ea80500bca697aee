package s3io

import (
	"path"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Common S3 key patterns and helper functions.
const (
	ContentTypePDF = "application/pdf"
	KeyPrefix      = "claims/"
	keySuffix      = ".pdf"
)

// NewObjectID returns a sortable id for a new claim document.
func NewObjectID() string {
	return ulid.Make().String()
}

// BuildKey constructs the S3 key for a claim document id.
func BuildKey(objectID string) string {
	return KeyPrefix + objectID + keySuffix
}

// ParseKey extracts the object id from a claim document key.
func ParseKey(key string) (objectID string, ok bool) {
	if !strings.HasPrefix(key, KeyPrefix) || strings.ToLower(path.Ext(key)) != keySuffix {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, KeyPrefix), path.Ext(key))
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return "", false
	}
	return id, true
}

// UploadHeaders lists the headers, besides Content-Type, the client must
// send on PUT so the request matches the presigned signature.
func UploadHeaders() map[string]string {
	return map[string]string{
		"x-amz-server-side-encryption": "aws:kms",
	}
}
