package server

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"backend-snsapp/internal/config"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		JWTSecret:          "secret",
		ServerPort:         ":0",
		MediaDir:           t.TempDir(),
		MediaBaseURL:       "http://localhost/media",
		MediaMaxBytes:      1 << 20,
		RateLimitPerMinute: 10,
	}
}

func TestHealthRoute(t *testing.T) {
	s := NewServer(testConfig(t), nil, nil, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 status")
	}
}

func TestMetricsRoute(t *testing.T) {
	s := NewServer(testConfig(t), nil, nil, nil)

	if _, err := s.App.Test(httptest.NewRequest("GET", "/health", nil)); err != nil {
		t.Fatalf("test request: %v", err)
	}
	resp, err := s.App.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "snsapp_http_requests_total") {
		t.Fatalf("expected request metrics to be exposed")
	}
}

func TestSocialRoutesRequireToken(t *testing.T) {
	s := NewServer(testConfig(t), nil, nil, nil)

	for _, path := range []string{"/social/", "/social/mypost", "/social/following", "/social/follow-home/p1"} {
		resp, err := s.App.Test(httptest.NewRequest("GET", path, nil))
		if err != nil {
			t.Fatalf("test request: %v", err)
		}
		if resp.StatusCode != 401 {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "/auth/login") {
			t.Fatalf("%s: expected login path in body", path)
		}
	}
}

func TestMediaUploadRequiresToken(t *testing.T) {
	s := NewServer(testConfig(t), nil, nil, nil)

	resp, err := s.App.Test(httptest.NewRequest("POST", "/media/images", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
