package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestConfigured(t *testing.T) {
	if NewClient("http://x", "", "m", time.Second).Configured() {
		t.Fatal("expected unconfigured without api key")
	}
	if !NewClient("http://x", "sk-test", "m", time.Second).Configured() {
		t.Fatal("expected configured with api key")
	}
	var nilClient *Client
	if nilClient.Configured() {
		t.Fatal("expected nil client to be unconfigured")
	}
}

func TestGenerate(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{"message": map[string]string{"content": "hello world"}},
			},
			"usage": map[string]int64{"prompt_tokens": 12, "completion_tokens": 7},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "sk-test", "gpt-4o-mini", time.Second)
	result, err := c.Generate(context.Background(), "be terse", "say hello", true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", gotReq.Messages)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format, got %+v", gotReq.ResponseFormat)
	}
	if result.Content != "hello world" {
		t.Fatalf("expected content, got %q", result.Content)
	}
	if result.InputTokens != 12 || result.OutputTokens != 7 {
		t.Fatalf("expected token counts 12/7, got %d/%d", result.InputTokens, result.OutputTokens)
	}
	if result.Model != "gpt-4o-mini" {
		t.Fatalf("expected model echoed, got %q", result.Model)
	}
}

func TestGenerateOmitsResponseFormatForProse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseFormat != nil {
			t.Errorf("expected no response_format, got %+v", req.ResponseFormat)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "sk-test", "m", time.Second)
	if _, err := c.Generate(context.Background(), "s", "p", false); err != nil {
		t.Fatalf("generate: %v", err)
	}
}

func TestGenerateProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "invalid key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(server.URL, "sk-bad", "m", time.Second)
	if _, err := c.Generate(context.Background(), "s", "p", false); err == nil {
		t.Fatal("expected error on HTTP 401")
	}
}

func TestGenerateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	c := NewClient(server.URL, "sk-test", "m", time.Second)
	if _, err := c.Generate(context.Background(), "s", "p", false); err == nil {
		t.Fatal("expected error on empty choices")
	}
}

func TestMockGenerateStructured(t *testing.T) {
	tests := []struct {
		action string
		key    string
	}{
		{"okrs", "okrs"},
		{"kpis", "kpis"},
		{"personas", "personas"},
		{"competitors", "competitors"},
	}
	for _, tt := range tests {
		result := MockGenerate(tt.action, "Acme")
		var parsed map[string]json.RawMessage
		if err := json.Unmarshal([]byte(result.Content), &parsed); err != nil {
			t.Errorf("%s: invalid JSON: %v", tt.action, err)
			continue
		}
		if _, ok := parsed[tt.key]; !ok {
			t.Errorf("%s: missing key %q", tt.action, tt.key)
		}
		if result.Model != MockModel {
			t.Errorf("%s: expected mock model, got %q", tt.action, result.Model)
		}
		if result.InputTokens != 0 || result.OutputTokens != 0 {
			t.Errorf("%s: expected zero tokens", tt.action)
		}
	}
}

func TestMockGenerateFlowHasNodesAndEdges(t *testing.T) {
	result := MockGenerate("flow", "Acme")
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(result.Content), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"nodes", "edges"} {
		if _, ok := parsed[key]; !ok {
			t.Fatalf("missing key %q", key)
		}
	}
}

func TestMockGenerateProse(t *testing.T) {
	for _, action := range []string{"story", "strategy", "spec"} {
		result := MockGenerate(action, "Acme")
		if result.Content == "" {
			t.Errorf("%s: empty content", action)
		}
	}
	// Unknown actions get the story fallback; empty subject gets a default.
	if MockGenerate("story", "").Content == "" {
		t.Fatal("expected content for empty subject")
	}
}
