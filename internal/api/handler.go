package api

import (
	"github.com/1804crypto/protect-the-streams-sub000/internal/channel"
	"github.com/1804crypto/protect-the-streams-sub000/internal/config"
	"github.com/1804crypto/protect-the-streams-sub000/internal/engine"
	"github.com/1804crypto/protect-the-streams-sub000/internal/service"
	"github.com/1804crypto/protect-the-streams-sub000/internal/storage"
)

// Handler groups all HTTP handlers and their shared collaborators.
type Handler struct {
	repo storage.Repository
	cfg  *config.LoadedConfig
	hub  *channel.Hub
	inv  *service.MemoryInventory
	rng  engine.RNG
}

// NewHandler creates a Handler wired to the given repository, loaded
// configuration and realtime hub.
func NewHandler(repo storage.Repository, cfg *config.LoadedConfig, hub *channel.Hub, inv *service.MemoryInventory) *Handler {
	return &Handler{repo: repo, cfg: cfg, hub: hub, inv: inv, rng: engine.DefaultRNG()}
}
