// Package handlers is the REST surface of the API. Handlers bind requests, call the
// core services and render their results; visibility and ownership rules live in
// the services.
package handlers

import (
	"github.com/zfogg/vlogbook/backend/internal/auth"
	"github.com/zfogg/vlogbook/backend/internal/content"
	"github.com/zfogg/vlogbook/backend/internal/engagement"
	"github.com/zfogg/vlogbook/backend/internal/events"
	"github.com/zfogg/vlogbook/backend/internal/media"
	"github.com/zfogg/vlogbook/backend/internal/profile"
	"github.com/zfogg/vlogbook/backend/internal/repository"
	"github.com/zfogg/vlogbook/backend/internal/visibility"
)

// Deps are the services the handlers depend on
type Deps struct {
	Auth      *auth.Service
	Users     repository.UserRepository
	Relations repository.RelationshipRepository
	Filter    *visibility.Filter
	Ledger    *engagement.Ledger
	Content   *content.Store
	Profiles  *profile.Aggregator
	Media     *media.Pipeline
	Bus       *events.Bus
	// UploadDir holds video uploads while they are probed
	UploadDir string
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth      *auth.Service
	users     repository.UserRepository
	relations repository.RelationshipRepository
	filter    *visibility.Filter
	ledger    *engagement.Ledger
	content   *content.Store
	profiles  *profile.Aggregator
	media     *media.Pipeline
	bus       *events.Bus
	uploadDir string
}

// NewHandlers creates a new handlers instance
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		auth:      d.Auth,
		users:     d.Users,
		relations: d.Relations,
		filter:    d.Filter,
		ledger:    d.Ledger,
		content:   d.Content,
		profiles:  d.Profiles,
		media:     d.Media,
		bus:       d.Bus,
		uploadDir: d.UploadDir,
	}
}
