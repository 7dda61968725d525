package replicate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	replicateapi "github.com/replicate/replicate-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-image-editor-backend/internal/generation"
	"ai-image-editor-backend/internal/logging"
	"ai-image-editor-backend/internal/replicate"
)

func TestNewClientValidation(t *testing.T) {
	_, err := replicate.NewClient("", "owner/model", logging.Nop())
	assert.EqualError(t, err, "REPLICATE_API_TOKEN is not set")

	_, err = replicate.NewClient("r8_token", "", logging.Nop())
	assert.EqualError(t, err, "REPLICATE_MODEL is not set")

	client, err := replicate.NewClient("r8_token", "owner/model", logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, "replicate", client.Name())

	_, err = replicate.NewClient("r8_token", "owner/model:abc123", logging.Nop())
	require.NoError(t, err)
}

func TestNewClientRejectsInvalidModel(t *testing.T) {
	for _, model := range []string{"just-a-name", "owner/", "/name", "a/b/c", "owner/name:"} {
		_, err := replicate.NewClient("r8_token", model, logging.Nop())
		require.Error(t, err, model)
		assert.Contains(t, err.Error(), "invalid REPLICATE_MODEL")
	}
}

type recordedCall struct {
	method string
	path   string
	body   map[string]any
}

type callLog struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (l *callLog) add(c recordedCall) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

func (l *callLog) all() []recordedCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedCall(nil), l.calls...)
}

func newPredictionServer(t *testing.T, create, poll map[string]any) (*httptest.Server, *callLog) {
	t.Helper()
	log := &callLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{method: r.Method, path: r.URL.Path}
		if r.Method == http.MethodPost {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&call.body))
		}
		assert.Equal(t, "Bearer r8_token", r.Header.Get("Authorization"))
		log.add(call)

		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(create)
			return
		}
		_ = json.NewEncoder(w).Encode(poll)
	}))
	t.Cleanup(server.Close)
	return server, log
}

func newTestClient(t *testing.T, model string, server *httptest.Server) *replicate.Client {
	t.Helper()
	client, err := replicate.NewClient("r8_token", model, logging.Nop(),
		replicate.WithAPIOptions(replicateapi.WithBaseURL(server.URL)),
		replicate.WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	return client
}

func editRequest() generation.Request {
	return generation.Request{
		Prompt:   "make it sunny",
		ImageURL: "https://storage/in.png",
		Input:    map[string]any{"prompt": "make it sunny", "image": "https://storage/in.png"},
	}
}

func TestGenerateVersionedModel(t *testing.T) {
	server, calls := newPredictionServer(t, map[string]any{
		"id":     "pred-1",
		"status": "succeeded",
		"output": "https://replicate.delivery/out.png",
	}, nil)
	client := newTestClient(t, "owner/editor:v123", server)

	output, err := client.Generate(context.Background(), editRequest())
	require.NoError(t, err)

	recorded := calls.all()
	require.Len(t, recorded, 1)
	call := recorded[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/predictions", call.path)
	assert.Equal(t, "v123", call.body["version"])
	assert.Equal(t, map[string]any{"prompt": "make it sunny", "image": "https://storage/in.png"}, call.body["input"])

	resolved, err := generation.ResolveOutput(output)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "https://replicate.delivery/out.png", resolved.URL)
}

func TestGenerateVersionlessModel(t *testing.T) {
	server, calls := newPredictionServer(t, map[string]any{
		"id":     "pred-2",
		"status": "succeeded",
		"output": []string{"https://replicate.delivery/first.webp"},
	}, nil)
	client := newTestClient(t, "black-forest-labs/flux-kontext-pro", server)

	output, err := client.Generate(context.Background(), editRequest())
	require.NoError(t, err)

	recorded := calls.all()
	require.Len(t, recorded, 1)
	call := recorded[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/models/black-forest-labs/flux-kontext-pro/predictions", call.path)
	assert.NotContains(t, call.body, "version")
	assert.Equal(t, "make it sunny", call.body["input"].(map[string]any)["prompt"])

	resolved, err := generation.ResolveOutput(output)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, generation.OutputURL, resolved.Kind)
	assert.Equal(t, "https://replicate.delivery/first.webp", resolved.URL)
}

func TestGenerateWaitsForRunningPrediction(t *testing.T) {
	server, calls := newPredictionServer(t,
		map[string]any{"id": "pred-3", "status": "starting"},
		map[string]any{"id": "pred-3", "status": "succeeded", "output": "https://replicate.delivery/done.png"},
	)
	client := newTestClient(t, "owner/editor", server)

	output, err := client.Generate(context.Background(), editRequest())
	require.NoError(t, err)

	recorded := calls.all()
	require.Len(t, recorded, 2)
	assert.Equal(t, "/models/owner/editor/predictions", recorded[0].path)
	assert.Equal(t, http.MethodGet, recorded[1].method)
	assert.Equal(t, "/predictions/pred-3", recorded[1].path)

	resolved, err := generation.ResolveOutput(output)
	require.NoError(t, err)
	assert.Equal(t, "https://replicate.delivery/done.png", resolved.URL)
}

func TestGenerateFailedPrediction(t *testing.T) {
	server, _ := newPredictionServer(t,
		map[string]any{"id": "pred-4", "status": "processing"},
		map[string]any{"id": "pred-4", "status": "failed", "error": "NSFW content detected"},
	)
	client := newTestClient(t, "owner/editor", server)

	output, err := client.Generate(context.Background(), editRequest())
	assert.Nil(t, output)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pred-4 failed")
	assert.Contains(t, err.Error(), "NSFW content detected")
}

func TestGenerateAPIError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"title":"Invalid input","detail":"image is required","status":422}`))
	}))
	defer server.Close()
	client := newTestClient(t, "owner/editor", server)

	_, err := client.Generate(context.Background(), editRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replicate run owner/editor")
	assert.Equal(t, int32(1), hits.Load())
}
