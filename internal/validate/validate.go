// Package validate provides functions to validate claim uploads and form input.
package validate

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	emailRx   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	claimIDRx = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,128}$`)
	codeRx    = regexp.MustCompile(`^[0-9]{6}$`)
)

// Filename checks that a document name is present.
func Filename(fn string) error {
	if strings.TrimSpace(fn) == "" {
		return errors.New("filename required")
	}
	return nil
}

// FilenamePDF checks that the filename has a .pdf extension (case insensitive).
func FilenamePDF(fn string) error {
	if err := Filename(fn); err != nil {
		return err
	}
	if strings.ToLower(filepath.Ext(fn)) != ".pdf" {
		return errors.New("only .pdf files allowed")
	}
	return nil
}

// PDF checks that body is a readable PDF with at least one page.
func PDF(body []byte) (err error) {
	if len(body) == 0 {
		return errors.New("document is empty")
	}
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		return errors.New("document is not a PDF")
	}
	// the reader panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unreadable PDF: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return fmt.Errorf("unreadable PDF: %w", err)
	}
	if r.NumPage() < 1 {
		return errors.New("PDF has no pages")
	}
	return nil
}

// Email checks the address shape; the identity provider does the real check.
func Email(s string) error {
	if !emailRx.MatchString(strings.TrimSpace(s)) {
		return errors.New("invalid email format")
	}
	return nil
}

// Password enforces the local minimum before the provider's policy applies.
func Password(s string) error {
	if len(s) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// VerificationCode checks the 6-digit emailed code.
func VerificationCode(s string) error {
	if !codeRx.MatchString(strings.TrimSpace(s)) {
		return errors.New("verification code must be 6 digits")
	}
	return nil
}

// ClaimID checks a claim identifier taken from a path or form.
func ClaimID(s string) error {
	if !claimIDRx.MatchString(s) {
		return errors.New("invalid claim id")
	}
	return nil
}
