package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// maxRequestBytes bounds an incoming gateway request.
const maxRequestBytes = 1 << 20

// Proxy serves the gateway wire contract on top of a Generator, keeping
// provider credentials on the server side.
type Proxy struct {
	gen    Generator
	logger *slog.Logger
}

// NewProxy wraps gen as an http.Handler.
func NewProxy(gen Generator, logger *slog.Logger) *Proxy {
	return &Proxy{gen: gen, logger: loggerOrDefault(logger)}
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeResponse(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	ctx := r.Context()
	var (
		resp Response
		err  error
	)
	switch req.Action {
	case ActionGenerateMessage:
		resp.Text, err = p.gen.GenerateMessage(ctx, payloadString(req.Payload, "prompt"))
	case ActionGenerateImage:
		resp.ImageURL, err = p.gen.GenerateCoverImage(ctx, payloadString(req.Payload, "message"))
	case ActionGenerateSong:
		resp.Base64Audio, err = p.gen.GenerateWelcomeSong(ctx)
	default:
		writeResponse(w, http.StatusBadRequest, Response{Error: "unknown action: " + req.Action})
		return
	}

	if err != nil {
		p.logger.Error("gateway action failed", "action", req.Action, "error", err)
		writeResponse(w, http.StatusBadGateway, Response{Error: err.Error()})
		return
	}
	writeResponse(w, http.StatusOK, resp)
}

func payloadString(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
