package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newSeq2SeqServer(t *testing.T, translate http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "model": DefaultFastModel})
	})
	mux.HandleFunc("/translate", translate)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSeq2SeqTranslateMapsLanguageCodes(t *testing.T) {
	t.Parallel()

	var got seq2seqRequest
	server := newSeq2SeqServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"translation": " a cat on the roof "})
	})

	b, err := LoadSeq2Seq(context.Background(), Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("load seq2seq: %v", err)
	}
	defer b.Close()

	out, err := b.Translate(context.Background(), "屋根の上の猫", "ja", "en")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "a cat on the roof" {
		t.Fatalf("unexpected translation: %q", out)
	}
	if got.SrcLang != "ja_XX" || got.TgtLang != "en_XX" || got.Model != DefaultFastModel {
		t.Fatalf("unexpected request payload: %+v", got)
	}
	if b.ConcurrencySafe() {
		t.Fatalf("expected fast backend to require serialized inference")
	}
}

func TestLoadSeq2SeqUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	if _, err := LoadSeq2Seq(context.Background(), Config{Endpoint: server.URL}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	endpoint := closed.URL
	closed.Close()
	if _, err := LoadSeq2Seq(context.Background(), Config{Endpoint: endpoint}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for closed runtime, got %v", err)
	}
}

func TestLoadSeq2SeqChecksModelDir(t *testing.T) {
	t.Parallel()

	server := newSeq2SeqServer(t, func(http.ResponseWriter, *http.Request) {})
	empty := t.TempDir()
	if _, err := LoadSeq2Seq(context.Background(), Config{Endpoint: server.URL, ModelDir: empty}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for empty model dir, got %v", err)
	}
	if _, err := LoadSeq2Seq(context.Background(), Config{Endpoint: server.URL, ModelDir: filepath.Join(empty, "missing")}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for missing model dir, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(empty, "config.json"), []byte("{}"), 0o600); err != nil {
		t.Fatalf("write model file: %v", err)
	}
	if _, err := LoadSeq2Seq(context.Background(), Config{Endpoint: server.URL, ModelDir: empty}); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
}

func TestSeq2SeqTranslateInferenceErrors(t *testing.T) {
	t.Parallel()

	server := newSeq2SeqServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req seq2seqRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Text == "boom" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"cuda out of memory"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"translation": "  "})
	})

	b, err := LoadSeq2Seq(context.Background(), Config{Endpoint: server.URL, MaxInputRunes: 8})
	if err != nil {
		t.Fatalf("load seq2seq: %v", err)
	}

	tests := []struct {
		name string
		text string
		lang string
		want string
	}{
		{name: "runtime error", text: "boom", lang: "de", want: "cuda out of memory"},
		{name: "empty output", text: "Katze", lang: "de", want: "empty"},
		{name: "too long", text: strings.Repeat("猫", 9), lang: "ja", want: "limit"},
		{name: "unsupported language", text: "kot", lang: "be", want: "does not support"},
	}
	for _, tc := range tests {
		_, err := b.Translate(context.Background(), tc.text, tc.lang, "en")
		if !errors.Is(err, ErrInference) {
			t.Fatalf("%s: expected ErrInference, got %v", tc.name, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: unexpected error text: %v", tc.name, err)
		}
	}
}

func TestSeq2SeqTranslateRuntimeGone(t *testing.T) {
	t.Parallel()

	server := newSeq2SeqServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	b, err := LoadSeq2Seq(context.Background(), Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("load seq2seq: %v", err)
	}
	if _, err := b.Translate(context.Background(), "猫", "ja", "en"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		path string
		want string
	}{
		{raw: "", path: "", want: DefaultFastEndpoint},
		{raw: "127.0.0.1:9000/", path: "", want: "http://127.0.0.1:9000"},
		{raw: "http://localhost:8845", path: "/v1", want: "http://localhost:8845/v1"},
		{raw: "http://localhost:8845/v1/", path: "/v1", want: "http://localhost:8845/v1"},
	}
	for _, tc := range tests {
		got, err := normalizeBaseURL(tc.raw, DefaultFastEndpoint, tc.path)
		if err != nil {
			t.Fatalf("normalize %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("unexpected base url for %q: got %q want %q", tc.raw, got, tc.want)
		}
	}
}
