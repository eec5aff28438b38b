package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropic_Generate(t *testing.T) {
	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("Missing API key header")
		}
		if r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Error("Missing anthropic-version header")
		}
		json.NewDecoder(r.Body).Decode(&got)

		resp := anthropicResponse{
			Content: []anthropicBlock{
				{Type: "text", Text: `{"observations":`},
				{Type: "tool_use"},
				{Type: "text", Text: `[]}`},
			},
			Usage: anthropicUsage{InputTokens: 100, OutputTokens: 10},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	a := &Anthropic{
		apiKey: "test-key",
		model:  "claude-sonnet-4-20250514",
		url:    anthropicAPIURL,
		client: &http.Client{
			Transport: &rewriteTransport{
				base:    server.Client().Transport,
				baseURL: server.URL,
			},
		},
	}

	comp, err := a.Generate(context.Background(), GenerateRequest{
		System:    "sys",
		User:      "user",
		MaxTokens: 10,
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if comp.Text != `{"observations":[]}` {
		t.Errorf("Text = %q", comp.Text)
	}
	if comp.Usage.InputTokens != 100 || comp.Usage.OutputTokens != 10 {
		t.Errorf("Usage = %+v", comp.Usage)
	}
	if got.System != "sys" || got.MaxTokens != 10 || len(got.Messages) != 1 {
		t.Errorf("request = %+v", got)
	}
}

func TestAnthropic_BaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicBlock{{Type: "text", Text: "ok"}}})
	}))
	defer server.Close()

	a, err := NewAnthropic(Options{Model: "m", APIKey: "k", BaseURL: server.URL + "/v1/", Client: server.Client()})
	if err != nil {
		t.Fatalf("NewAnthropic error: %v", err)
	}
	comp, err := a.Generate(context.Background(), GenerateRequest{User: "u"})
	if err != nil || comp.Text != "ok" {
		t.Fatalf("Generate = %q, %v", comp.Text, err)
	}
}

func TestAnthropic_MissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewAnthropic(Options{Model: "m"}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestAnthropic_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer server.Close()

	a := &Anthropic{
		apiKey: "bad-key",
		model:  "claude-sonnet-4-20250514",
		url:    anthropicAPIURL,
		client: &http.Client{
			Transport: &rewriteTransport{
				base:    server.Client().Transport,
				baseURL: server.URL,
			},
		},
	}

	_, err := a.Generate(context.Background(), GenerateRequest{System: "test", User: "test"})
	if err == nil {
		t.Fatal("Expected auth error")
	}
	if !IsAuthError(err) {
		t.Errorf("Expected auth error, got: %v", err)
	}
}

// rewriteTransport rewrites all request URLs to point at the test server.
type rewriteTransport struct {
	base    http.RoundTripper
	baseURL string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = "http"
	req.URL.Host = t.baseURL[len("http://"):]
	if t.base != nil {
		return t.base.RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}
