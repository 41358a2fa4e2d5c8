package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/howard-nolan/geminiproxy/internal/anthropicapi"
	"github.com/howard-nolan/geminiproxy/internal/geminiapi"
	"github.com/howard-nolan/geminiproxy/internal/translate"
)

// maxRequestBodyBytes is the 50 MiB request body cap SPEC_FULL.md §6
// requires, large enough to accommodate base64-encoded images.
const maxRequestBodyBytes = 50 * 1024 * 1024

// pingInterval is how long the SSE writer waits without a real event before
// sending a keep-alive ping, per SPEC_FULL.md §4.K.
const pingInterval = 15 * time.Second

// handleMessages implements POST /v1/messages: decode, optionally consult
// the Context Cache Manager, translate via H, then dispatch to the unary or
// streaming path depending on the client's stream field.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	var req anthropicapi.MessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, translate.NewError(translate.KindInvalidRequest, "invalid request body: %v", err))
		return
	}

	upstreamModel, err := translate.MapModel(req.Model)
	if err != nil {
		writeError(w, translate.NewError(translate.KindInvalidRequest, "%v", err))
		return
	}

	s.sigStore.GC(liveToolUseIDs(req.Messages))

	reqCfg := translate.RequestConfig{
		EnableUltrathinkKeyword: s.cfg.Translation.EnableUltrathinkKeyword,
		InjectSystemBridgeText:  s.cfg.Translation.InjectSystemBridgeText,
	}
	cachedContentRef := s.lookupOrWarmCache(req, upstreamModel, reqCfg)

	upstreamReq, err := translate.TranslateRequest(req, s.sigStore, reqCfg, cachedContentRef)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Stream {
		s.handleStreamingMessage(w, r, req.Model, upstreamModel, upstreamReq)
		return
	}
	s.handleUnaryMessage(w, r, req.Model, upstreamModel, upstreamReq)
}

// handleUnaryMessage drives F.Generate then I (TranslateResponse) and
// writes the result as a single JSON body.
func (s *Server) handleUnaryMessage(w http.ResponseWriter, r *http.Request, clientModel, upstreamModel string, upstreamReq geminiapi.GenerateContentRequest) {
	resp, err := s.upstream.Generate(r.Context(), upstreamModel, upstreamReq)
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := translate.TranslateResponse(clientModel, resp)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	encodeJSON(w, out)
}

// handleStreamingMessage drives F.StreamGenerate and J (the Stream
// Translator), writing each emitted AnthropicEvent to the HTTP body as it
// is produced. A 15s inactivity timer emits a ping between real events; on
// a mid-stream translation or upstream error an Error event is emitted and
// the stream closes.
func (s *Server) handleStreamingMessage(w http.ResponseWriter, r *http.Request, clientModel, upstreamModel string, upstreamReq geminiapi.GenerateContentRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, translate.NewError(translate.KindInternal, "streaming unsupported by response writer"))
		return
	}

	events, err := s.upstream.StreamGenerate(r.Context(), upstreamModel, upstreamReq)
	if err != nil {
		writeError(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	translator := translate.NewStreamTranslator(clientModel, s.sigStore)
	timer := time.NewTimer(pingInterval)
	defer timer.Stop()

	for {
		select {
		case evt, open := <-events:
			if !open {
				return
			}
			timer.Reset(pingInterval)

			if evt.Err != nil {
				s.writeSSEEvent(w, flusher, anthropicapi.ErrorEvent{
					Error: anthropicapi.ErrorData{Type: translate.KindUpstream.WireType(), Message: evt.Err.Error()},
				})
				return
			}

			anthropicEvents, terminated := translator.ProcessEvent(evt.Response)
			for _, ae := range anthropicEvents {
				s.writeSSEEvent(w, flusher, ae)
			}
			if terminated {
				return
			}

		case <-timer.C:
			s.writeSSEEvent(w, flusher, anthropicapi.PingEvent{})
			timer.Reset(pingInterval)

		case <-r.Context().Done():
			return
		}
	}
}

// liveToolUseIDs collects every tool_use block id appearing in the
// request's message history, the bound the Signature Store (B) is
// garbage-collected against per request, per SPEC_FULL.md §9's Open
// Question decision: no hard cap, just a GC keyed on what the current
// request actually references.
func liveToolUseIDs(messages []anthropicapi.Message) map[string]bool {
	live := make(map[string]bool)
	for _, m := range messages {
		for _, b := range m.Content.AsBlocks() {
			if b.Type == "tool_use" {
				live[b.ID] = true
			}
		}
	}
	return live
}

func (s *Server) writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, evt anthropicapi.Event) {
	payload, err := anthropicapi.ToSSE(evt)
	if err != nil {
		s.log.Warn("failed to render SSE event", zap.Error(err))
		return
	}
	if _, err := w.Write([]byte(payload)); err != nil {
		s.log.Debug("client disconnected mid-stream", zap.Error(err))
		return
	}
	flusher.Flush()
}

