package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// profile is the on-disk CLI state.
type profile struct {
	// APIURL is the dashboard base for auth and history routes.
	APIURL string `yaml:"api_url"`
	// UploadURLEndpoint and AnalysisEndpoint drive direct submissions.
	UploadURLEndpoint string `yaml:"upload_url_endpoint"`
	AnalysisEndpoint  string `yaml:"analysis_endpoint"`

	Email        string    `yaml:"email,omitempty"`
	Token        string    `yaml:"token,omitempty"`
	TokenExpires time.Time `yaml:"token_expires,omitempty"`

	LogLevel string `yaml:"log_level,omitempty"`
}

// profilePath resolves where the profile lives: an explicit path, then
// $CLAIMCTL_CONFIG, then ~/.config/claimctl/config.yaml.
func profilePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if p := os.Getenv("CLAIMCTL_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home dir: %w", err)
	}
	return filepath.Join(home, ".config", "claimctl", "config.yaml"), nil
}

// loadProfile reads path. A missing file is an empty profile.
func loadProfile(path string) (*profile, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

// save writes the profile owner-only; it holds a bearer token.
func (p *profile) save(path string) error {
	raw, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	return os.WriteFile(path, raw, 0o600)
}

// loggedIn reports whether the stored token is still usable at now.
func (p *profile) loggedIn(now time.Time) bool {
	if p.Token == "" {
		return false
	}
	return p.TokenExpires.IsZero() || now.Before(p.TokenExpires)
}
