package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type chatServer struct {
	mu      sync.Mutex
	prompts []string
	status  int
	reply   string
	models  []string
}

func (s *chatServer) start(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, _ *http.Request) {
		data := make([]map[string]string, 0, len(s.models))
		for _, id := range s.models {
			data = append(data, map[string]string{"id": id, "object": "model"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		if len(req.Messages) > 0 {
			s.prompts = append(s.prompts, req.Messages[0].Content)
		}
		status, reply := s.status, s.reply
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != 0 && status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"runtime failure","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}}},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestChatTranslateUsesHYMTTemplates(t *testing.T) {
	t.Parallel()

	stub := &chatServer{reply: "Gothic cathedral at dusk", models: []string{DefaultQualityModel}}
	server := stub.start(t)

	c, err := LoadChat(context.Background(), Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("load chat: %v", err)
	}
	if !c.ConcurrencySafe() {
		t.Fatalf("expected quality backend to be concurrency-safe")
	}

	out, err := c.Translate(context.Background(), "黄昏的哥特式大教堂", "zh", "en")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "Gothic cathedral at dusk" {
		t.Fatalf("unexpected translation: %q", out)
	}
	if _, err := c.Translate(context.Background(), "Kathedrale", "de", "en"); err != nil {
		t.Fatalf("translate: %v", err)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if len(stub.prompts) != 2 {
		t.Fatalf("unexpected prompt count: %d", len(stub.prompts))
	}
	if !strings.HasPrefix(stub.prompts[0], "将以下文本翻译为英语") {
		t.Fatalf("unexpected zh prompt: %q", stub.prompts[0])
	}
	if !strings.HasPrefix(stub.prompts[1], "Translate the following segment into English") {
		t.Fatalf("unexpected xx prompt: %q", stub.prompts[1])
	}
}

func TestLoadChatRequiresServedModel(t *testing.T) {
	t.Parallel()

	stub := &chatServer{models: []string{"qwen2.5-7b"}}
	server := stub.start(t)

	if _, err := LoadChat(context.Background(), Config{Endpoint: server.URL}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestChatTranslateClassifiesErrors(t *testing.T) {
	t.Parallel()

	stub := &chatServer{models: []string{DefaultQualityModel}}
	server := stub.start(t)
	c, err := LoadChat(context.Background(), Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("load chat: %v", err)
	}

	stub.mu.Lock()
	stub.status = http.StatusServiceUnavailable
	stub.mu.Unlock()
	if _, err := c.Translate(context.Background(), "猫", "ja", "en"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for 503, got %v", err)
	}

	stub.mu.Lock()
	stub.status = http.StatusBadRequest
	stub.mu.Unlock()
	if _, err := c.Translate(context.Background(), "猫", "ja", "en"); !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference for 400, got %v", err)
	}

	stub.mu.Lock()
	stub.status = http.StatusOK
	stub.reply = ""
	stub.mu.Unlock()
	if _, err := c.Translate(context.Background(), "猫", "ja", "en"); !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference for empty reply, got %v", err)
	}
}

func TestChatTranslateCancelled(t *testing.T) {
	t.Parallel()

	stub := &chatServer{models: []string{DefaultQualityModel}, reply: "cat"}
	server := stub.start(t)
	c, err := LoadChat(context.Background(), Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("load chat: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Translate(ctx, "猫", "ja", "en"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
