// Package handlers serves the HTML pages and the JSON API.
package handlers

import (
	"lawdesk/internal/ai"
	"lawdesk/internal/cache"
	"lawdesk/internal/config"
	"lawdesk/internal/database"
	"lawdesk/internal/extract"
	"lawdesk/internal/payments"
	"lawdesk/internal/realtime"
	"lawdesk/internal/storage"
	"lawdesk/internal/translate"
)

// Deps are the collaborators every handler may use. Cache, Sessions and
// Limiter accept a nil Redis client; Payments is nil when billing through
// the processor is disabled.
type Deps struct {
	Config     *config.Config
	Store      *database.Store
	Cache      *cache.Cache
	Sessions   *cache.SessionMirror
	Limiter    *cache.RateLimiter
	Files      storage.ObjectStore
	Extractor  *extract.Extractor
	Assistant  *ai.Assistant
	Translator *translate.Translator
	Payments   payments.Provider
	Hub        *realtime.Hub
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Hub == nil {
		d.Hub = realtime.NewHub(0)
	}
	if d.Assistant == nil {
		d.Assistant = ai.NewAssistant(nil, false)
	}
	return &Handler{Deps: d}
}
