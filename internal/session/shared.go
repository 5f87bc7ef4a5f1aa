// ABOUTME: SharedService: process-wide catalog cache shared across tabs
// ABOUTME: Templates, models, and agents change rarely; fetch once and reuse

package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/parley/internal/model"
	"github.com/2389/parley/internal/provider"
)

// SharedService caches the backend's templates, models, and agents. One
// instance serves every tab.
type SharedService struct {
	provider provider.ConversationProvider
	catalog  *model.Catalog
	logger   *slog.Logger

	mu        sync.Mutex
	templates []provider.Template
	agents    []provider.Agent
}

// NewSharedService creates the cache. Fetched models are published into the
// catalog so quota fallback sees them.
func NewSharedService(p provider.ConversationProvider, catalog *model.Catalog, logger *slog.Logger) *SharedService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SharedService{
		provider: p,
		catalog:  catalog,
		logger:   logger.With("component", "shared"),
	}
}

// Templates returns the slash-command templates, fetching on first use.
func (s *SharedService) Templates(ctx context.Context) ([]provider.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.templates != nil {
		return s.templates, nil
	}
	templates, err := s.provider.Templates(ctx)
	if err != nil {
		return nil, err
	}
	s.templates = templates
	return templates, nil
}

// Models fetches the model catalog and records it for fallback lookup.
func (s *SharedService) Models(ctx context.Context) ([]model.Model, error) {
	models, err := s.provider.Models(ctx)
	if err != nil {
		return nil, err
	}
	s.catalog.SetModels(models)
	return models, nil
}

// Agents returns the addressable backend agents, fetching on first use.
func (s *SharedService) Agents(ctx context.Context) ([]provider.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agents != nil {
		return s.agents, nil
	}
	agents, err := s.provider.Agents(ctx)
	if err != nil {
		return nil, err
	}
	s.agents = agents
	return agents, nil
}
