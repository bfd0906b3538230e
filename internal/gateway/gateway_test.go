package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/timeless/internal/logging"
)

// stubGenerator returns canned values or a fixed error.
type stubGenerator struct {
	text, image, song string
	err               error
	lastPrompt        string
	lastMessage       string
}

func (s *stubGenerator) GenerateMessage(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	return s.text, s.err
}

func (s *stubGenerator) GenerateCoverImage(_ context.Context, message string) (string, error) {
	s.lastMessage = message
	return s.image, s.err
}

func (s *stubGenerator) GenerateWelcomeSong(context.Context) (string, error) {
	return s.song, s.err
}

func newProxyServer(t *testing.T, gen Generator) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(NewProxy(gen, logging.Discard()))
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, 5*time.Second, logging.Discard())
}

func TestClientProxy_RoundTrip(t *testing.T) {
	stub := &stubGenerator{text: "Dear future me", image: "https://img/1.png", song: "UklGRg=="}
	_, client := newProxyServer(t, stub)
	ctx := context.Background()

	text, err := client.GenerateMessage(ctx, "birthday note")
	require.NoError(t, err)
	assert.Equal(t, "Dear future me", text)
	assert.Equal(t, "birthday note", stub.lastPrompt)

	url, err := client.GenerateCoverImage(ctx, "a summer day")
	require.NoError(t, err)
	assert.Equal(t, "https://img/1.png", url)
	assert.Equal(t, "a summer day", stub.lastMessage)

	song, err := client.GenerateWelcomeSong(ctx)
	require.NoError(t, err)
	assert.Equal(t, "UklGRg==", song)
}

func TestClientProxy_ErrorCarriesMessage(t *testing.T) {
	_, client := newProxyServer(t, &stubGenerator{err: errors.New("quota exhausted")})

	_, err := client.GenerateMessage(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exhausted")
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).GenerateCoverImage(context.Background(), "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_WireFormat(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"imageUrl":"u"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).GenerateCoverImage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, ActionGenerateImage, got.Action)
	assert.Equal(t, "hello", got.Payload["message"])
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, 50*time.Millisecond, nil).GenerateMessage(context.Background(), "x")
	assert.Error(t, err)
}

func TestProxy_BadRequests(t *testing.T) {
	srv, _ := newProxyServer(t, &stubGenerator{})

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL, "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL, "application/json", strings.NewReader(`{"action":"dance","payload":{}}`))
	require.NoError(t, err)
	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown action: dance", body.Error)
}

func TestFallbacks(t *testing.T) {
	ctx := context.Background()
	failing := &stubGenerator{err: errors.New("down")}
	log := logging.Discard()

	assert.Equal(t, MessageFallback, MessageOrFallback(ctx, failing, "p", log))
	assert.Equal(t, "placeholder", CoverOrPlaceholder(ctx, failing, "m", "placeholder", log))
	assert.Equal(t, "", SongOrNone(ctx, failing, log))

	ok := &stubGenerator{text: "hi", image: "img", song: "aud"}
	assert.Equal(t, "hi", MessageOrFallback(ctx, ok, "p", log))
	assert.Equal(t, "img", CoverOrPlaceholder(ctx, ok, "m", "placeholder", log))
	assert.Equal(t, "aud", SongOrNone(ctx, ok, log))

	// Empty success is treated as failure
	empty := &stubGenerator{}
	assert.Equal(t, "placeholder", CoverOrPlaceholder(ctx, empty, "m", "placeholder", nil))
	assert.Equal(t, MessageFallback, MessageOrFallback(ctx, empty, "p", nil))
}

func TestUnavailable(t *testing.T) {
	var g Generator = Unavailable{}
	_, err := g.GenerateMessage(context.Background(), "p")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "", SongOrNone(context.Background(), g, nil))
}
