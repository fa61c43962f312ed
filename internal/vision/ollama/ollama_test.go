package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

var front = domain.Image{Data: []byte{0xFF, 0xD8, 0xFF, 0xE0}, MimeType: "image/jpeg"}

func TestOllamaExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llava", req.Model)
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)
		assert.Len(t, req.Images, 1)

		resp := map[string]any{
			"model":    req.Model,
			"response": `{"fullName":"Ann Lee","company":"Acme","phone":"+1 555 0100"}`,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	ext := NewOllamaExtractor(server.URL+"/", "llava")
	fields, err := ext.Extract(context.Background(), front, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.CardFields{FullName: "Ann Lee", Company: "Acme", Phone: "+1 555 0100"}, fields)
	assert.Equal(t, "llava", ext.Model())
}

func TestOllamaExtractSendsBothSides(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Len(t, req.Images, 2)
		_, _ = w.Write([]byte(`{"response":"{\"fullName\":\"Bo\"}"}`))
	}))
	defer server.Close()

	back := domain.Image{Data: []byte{0x89}, MimeType: "image/png"}
	fields, err := NewOllamaExtractor(server.URL, "llava").Extract(context.Background(), front, &back)
	require.NoError(t, err)
	assert.Equal(t, "Bo", fields.FullName)
}

func TestOllamaExtractNetworkError(t *testing.T) {
	ext := NewOllamaExtractor("http://localhost:99999", "llava")

	_, err := ext.Extract(context.Background(), front, nil)
	assert.Error(t, err)
}

func TestOllamaExtractInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewOllamaExtractor(server.URL, "llava").Extract(context.Background(), front, nil)
	assert.Error(t, err)
}

func TestOllamaChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "you know my contacts", req.System)
		assert.Equal(t, "who works at Acme?", req.Prompt)
		assert.Empty(t, req.Format)
		_, _ = w.Write([]byte(`{"response":"Ann Lee works at Acme."}`))
	}))
	defer server.Close()

	reply, err := NewOllamaExtractor(server.URL, "llama3").Chat(context.Background(), "you know my contacts", "who works at Acme?")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee works at Acme.", reply)
}
