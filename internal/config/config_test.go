package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		StoreID:              "store_123",
		PlatformAPIKey:       "pk_test_abc",
		PlatformAPIURL:       "https://api.commercekit.io",
		DatabaseURL:          "postgres://localhost:5432/stepshop",
		CacheProvider:        "memory",
		SessionStoreProvider: "memory",
		EncryptionKey:        strings.Repeat("k", 32),
		LogFormat:            "text",
		Environment:          "development",
		Port:                 "8080",
	}
}

func TestValidateRequiredPlatformCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:    "complete config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:    "missing store id",
			mutate:  func(cfg *Config) { cfg.StoreID = "" },
			wantErr: true,
		},
		{
			name:    "missing platform api key",
			mutate:  func(cfg *Config) { cfg.PlatformAPIKey = "" },
			wantErr: true,
		},
		{
			name:    "malformed platform api url",
			mutate:  func(cfg *Config) { cfg.PlatformAPIURL = "not-a-url" },
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateEncryptionKeyLength(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.EncryptionKey = "short"
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for short encryption key")
	}
}

func TestValidateEmailPairing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		resendKey string
		emailFrom string
		wantErr   bool
	}{
		{name: "both unset", wantErr: false},
		{name: "both set", resendKey: "re_123", emailFrom: "orders@example.com", wantErr: false},
		{name: "key without from", resendKey: "re_123", wantErr: true},
		{name: "from without key", emailFrom: "orders@example.com", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.ResendAPIKey = tc.resendKey
			cfg.EmailFrom = tc.emailFrom

			err := cfg.validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "empty is allowed", baseURL: "", wantErr: false},
		{name: "https is allowed", baseURL: "https://shop.example.com", wantErr: false},
		{name: "http localhost is allowed", baseURL: "http://localhost:8080", wantErr: false},
		{name: "http outside localhost is rejected", baseURL: "http://shop.example.com", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.BaseURL = tc.baseURL

			err := cfg.validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}
