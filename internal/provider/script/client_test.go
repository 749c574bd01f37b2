package script

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/postervoice/talkinghead-api/internal/stage"
)

func completionBody(text string) chatResponse {
	var resp chatResponse
	resp.Choices = make([]struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}, 1)
	resp.Choices[0].Message.Content = text
	return resp
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	if _, err := NewClient(""); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 {
			t.Fatalf("expected system+user messages, got %d", len(req.Messages))
		}
		user := req.Messages[1].Content
		if !strings.Contains(user, "poster_01") || !strings.Contains(user, "Tone: happy") {
			t.Errorf("prompt missing request fields: %q", user)
		}

		_ = json.NewEncoder(w).Encode(completionBody("  Meet the night runner, today only!  "))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, err := client.Complete(context.Background(), CompletionInput{
		Subject:  "poster_01",
		Language: "en",
		Emotion:  "happy",
		Metadata: map[string]string{"title": "Night Runner"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Meet the night runner, today only!" {
		t.Errorf("expected trimmed completion, got %q", text)
	}
}

func TestComplete_EmptyChoicesIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	client, _ := NewClient("test-key", WithBaseURL(srv.URL))

	_, err := client.Complete(context.Background(), CompletionInput{Subject: "p"})
	if !stage.IsTransient(err) {
		t.Errorf("expected transient classification, got %v", err)
	}
}

func TestComplete_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusBadGateway, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			client, _ := NewClient("test-key", WithBaseURL(srv.URL))

			_, err := client.Complete(context.Background(), CompletionInput{Subject: "p"})
			if err == nil {
				t.Fatal("expected error")
			}
			if stage.IsTransient(err) != tt.transient {
				t.Errorf("status %d: transient=%v, want %v", tt.status, stage.IsTransient(err), tt.transient)
			}
		})
	}
}

func TestComplete_ProviderErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{}
		resp.Error = &struct {
			Message string `json:"message"`
		}{Message: "model overloaded"}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client, _ := NewClient("test-key", WithBaseURL(srv.URL))

	_, err := client.Complete(context.Background(), CompletionInput{Subject: "p"})
	if !stage.IsPermanent(err) {
		t.Errorf("expected permanent classification, got %v", err)
	}
}
