package server

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/howard-nolan/geminiproxy/internal/anthropicapi"
	"github.com/howard-nolan/geminiproxy/internal/cache"
	"github.com/howard-nolan/geminiproxy/internal/translate"
)

// cacheWarmTimeout bounds the background CreateCache call kicked off by a
// cache miss. It deliberately outlives any single client request.
const cacheWarmTimeout = 30 * time.Second

// cachePrefixTurns is how many leading messages participate in the cache
// key's prefix, per SPEC_FULL.md §4.O: only the stable system prompt plus
// a handful of leading turns are worth keying on, since anything later
// tends to vary request to request.
const cachePrefixTurns = 4

// lookupOrWarmCache consults the Context Cache Manager for a previously
// resolved cached_content reference. On a miss, when caching is enabled,
// it kicks off a best-effort background CreateCache call and returns
// immediately without waiting on it: the current request never blocks on,
// nor benefits from, its own cache warm.
func (s *Server) lookupOrWarmCache(req anthropicapi.MessagesRequest, upstreamModel string, reqCfg translate.RequestConfig) string {
	if s.cacheMgr == nil {
		return ""
	}

	key := cacheKeyFor(req, upstreamModel)

	if ref, ok := s.cacheMgr.Lookup(key); ok {
		return ref
	}
	if !s.cfg.Cache.Enabled {
		return ""
	}

	go s.warmCache(key, req, upstreamModel, reqCfg)
	return ""
}

// warmCache translates req a second time purely to obtain the Contents and
// SystemInstruction CreateCache needs, then stores the resolved reference
// for future requests sharing the same prefix. It runs detached from the
// originating request's context, which is cancelled as soon as the HTTP
// response completes.
func (s *Server) warmCache(key string, req anthropicapi.MessagesRequest, upstreamModel string, reqCfg translate.RequestConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheWarmTimeout)
	defer cancel()

	warmed, err := translate.TranslateRequest(req, s.sigStore, reqCfg, "")
	if err != nil {
		return
	}

	ref, err := s.upstream.CreateCache(ctx, upstreamModel, warmed.SystemInstruction, warmed.Contents)
	if err != nil {
		s.log.Debug("cache warm failed", zap.String("model", upstreamModel), zap.Error(err))
		return
	}
	s.cacheMgr.Store(key, ref)
}

// cacheKeyFor computes the Context Cache Manager key for req against
// upstreamModel, combining the system prompt text with a stable prefix of
// the leading message turns.
func cacheKeyFor(req anthropicapi.MessagesRequest, upstreamModel string) string {
	return cache.Key(upstreamModel, req.System.ToText(), cachePrefixText(req))
}

// cachePrefixText builds a stable textual summary of the leading message
// turns to fold into the cache key, so that conversations sharing a long
// common prefix (the common case in multi-turn chat) hash to the same key
// even as later turns diverge.
func cachePrefixText(req anthropicapi.MessagesRequest) string {
	var b strings.Builder
	n := len(req.Messages)
	if n > cachePrefixTurns {
		n = cachePrefixTurns
	}
	for _, m := range req.Messages[:n] {
		b.WriteString(m.Role)
		b.WriteByte(':')
		for _, blk := range m.Content.AsBlocks() {
			if blk.Type == "text" {
				b.WriteString(blk.Text)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
