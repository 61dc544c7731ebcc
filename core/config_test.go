package core

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("TEST_BACKENDURL", "https://project.example.co/")
	t.Setenv("TEST_BACKENDAPIKEY", "anon-key")

	conf, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if !conf.TestMode {
		t.Error("TestMode = false; want true under ENV=TEST")
	}
	if conf.Backend.BaseURL != "https://project.example.co" {
		t.Errorf("Backend.BaseURL = %q; want trailing slash trimmed", conf.Backend.BaseURL)
	}
	if conf.Backend.APIKey != "anon-key" {
		t.Errorf("Backend.APIKey = %q", conf.Backend.APIKey)
	}
	if conf.Backend.CallTimeout != 10*time.Second {
		t.Errorf("Backend.CallTimeout = %v; want default 10s", conf.Backend.CallTimeout)
	}
	if conf.Backend.MaxRetries != 3 {
		t.Errorf("Backend.MaxRetries = %d; want default 3", conf.Backend.MaxRetries)
	}
}

func TestNewConfigRequiredSettings(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		apiKey string
	}{
		{"missing url", "", "anon-key"},
		{"missing api key", "https://project.example.co", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV", "TEST")
			t.Setenv("TEST_BACKENDURL", tt.url)
			t.Setenv("TEST_BACKENDAPIKEY", tt.apiKey)

			_, err := NewConfig()
			if !errors.Is(err, errMissingConf) {
				t.Errorf("NewConfig() error = %v; want errMissingConf", err)
			}
		})
	}
}
