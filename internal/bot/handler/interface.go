package handler

import (
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/config"
)

// Service is the interface every command handler service implements.
// Handlers that need extra collaborators (resolver, sync engine) widen
// Init with additional parameters and embed this interface.
type Service interface {
	// Init registers the handler's commands on the registry.
	Init(reg *Registry, cfg *config.Config, db *gorm.DB) error
}
