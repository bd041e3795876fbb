package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sahalkhalani/WeatherKI-backend/internal/gemini"
)

func TestClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/test-model:generateContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("expected key query param test-key, got %q", got)
		}

		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		cfg, _ := req["generationConfig"].(map[string]interface{})
		if cfg["maxOutputTokens"] != float64(256) {
			t.Errorf("expected maxOutputTokens 256, got %v", cfg["maxOutputTokens"])
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []interface{}{
				map[string]interface{}{
					"content": map[string]interface{}{
						"parts": []map[string]string{
							{"text": "Pack an umbrella, "},
							{"text": "Berlin is rainy today.\n"},
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "test-key", "test-model")

	got, err := client.Generate(context.Background(), "What should I pack?", 256)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := "Pack an umbrella, Berlin is rainy today."
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestClient_Generate_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "test-key", "test-model")

	if _, err := client.Generate(context.Background(), "hi", 128); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestClient_Generate_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "test-key", "test-model")

	if _, err := client.Generate(context.Background(), "hi", 128); err == nil {
		t.Fatal("expected error when no candidates are returned")
	}
}

func TestClient_Generate_Cancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "test-key", "test-model")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Generate(ctx, "hi", 128); err == nil {
		t.Error("expected error due to context cancellation")
	}
}
