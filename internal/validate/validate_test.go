package validate

import (
	"testing"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/testutil"
)

func TestFilenamePDF(t *testing.T) {
	if err := FilenamePDF("claim.PDF"); err != nil {
		t.Fatalf("expected upper-case extension to pass, got %v", err)
	}
	for _, fn := range []string{"", "   ", "claim.txt", "claim"} {
		if err := FilenamePDF(fn); err == nil {
			t.Fatalf("expected %q to be rejected", fn)
		}
	}
}

func TestPDFAcceptsMinimalDocument(t *testing.T) {
	if err := PDF(testutil.MinimalPDF()); err != nil {
		t.Fatalf("PDF() error = %v", err)
	}
}

func TestPDFRejectsNonPDF(t *testing.T) {
	cases := map[string][]byte{
		"empty":     nil,
		"text":      []byte("hello, not a pdf"),
		"truncated": []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog"),
	}
	for name, body := range cases {
		if err := PDF(body); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestEmailAndPassword(t *testing.T) {
	if err := Email("ana@example.com"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := Email("ana@example"); err == nil {
		t.Fatalf("expected bad email to fail")
	}
	if err := Password("short"); err == nil {
		t.Fatalf("expected short password to fail")
	}
	if err := Password("Longenough1"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestVerificationCodeAndClaimID(t *testing.T) {
	if err := VerificationCode("123456"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := VerificationCode("12345a"); err == nil {
		t.Fatalf("expected non-digit code to fail")
	}
	if err := ClaimID("CLAIM-171234"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := ClaimID("../etc/passwd"); err == nil {
		t.Fatalf("expected path-like id to fail")
	}
}
