package s3io

import (
	"strings"
	"testing"
)

func TestBuildAndParseKey(t *testing.T) {
	id := NewObjectID()
	key := BuildKey(id)
	if !strings.HasPrefix(key, "claims/") || !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("unexpected key shape %q", key)
	}
	got, ok := ParseKey(key)
	if !ok || got != id {
		t.Fatalf("ParseKey(%q) = %q, %v", key, got, ok)
	}
}

func TestParseKeyRejectsForeignShapes(t *testing.T) {
	for _, key := range []string{
		"user/abc/claim.txt",
		"claims/not-a-ulid.pdf",
		"claims/01HZY3K6S8Q9V0W1X2Y3Z4A5B6.txt",
		"claims/nested/01HZY3K6S8Q9V0W1X2Y3Z4A5B6.pdf",
		"claims/.pdf",
	} {
		if _, ok := ParseKey(key); ok {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}
