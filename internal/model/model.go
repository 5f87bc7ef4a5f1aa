// ABOUTME: Language model catalog with scope-aware fallback selection
// ABOUTME: Tracks the active model and supports switching to a free fallback after quota errors

package model

import "sync"

// Scope distinguishes which panel a model may serve.
type Scope string

const (
	ScopeChat  Scope = "chat-panel"
	ScopeAgent Scope = "agent-panel"
)

// Billing describes how usage of a model is metered.
type Billing struct {
	IsPremium  bool    `json:"isPremium"`
	Multiplier float64 `json:"multiplier"`
}

// Model is one entry in the backend's model catalog.
type Model struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ProviderName string  `json:"providerName,omitempty"`
	Scopes       []Scope `json:"scopes"`
	Billing      Billing `json:"billing"`
}

// SupportsScope reports whether the model may serve the given panel.
func (m Model) SupportsScope(scope Scope) bool {
	for _, s := range m.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Catalog holds the known models and which one is selected. Safe for
// concurrent use.
type Catalog struct {
	mu            sync.Mutex
	models        []Model
	selectedID    string
	usingFallback bool
}

// NewCatalog creates a catalog seeded with models (may be empty; SetModels
// refreshes it once the backend answers).
func NewCatalog(models []Model) *Catalog {
	return &Catalog{models: append([]Model(nil), models...)}
}

// SetModels replaces the catalog contents.
func (c *Catalog) SetModels(models []Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = append([]Model(nil), models...)
}

// Models returns a copy of the catalog contents.
func (c *Catalog) Models() []Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Model(nil), c.models...)
}

// Select marks a model id as the user's active choice.
func (c *Catalog) Select(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedID = id
	c.usingFallback = false
}

// Selected returns the active model id, or empty when the backend default
// applies.
func (c *Catalog) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// GetFallbackModel returns the first non-premium model serving the given
// scope. Premium models are the ones a quota error just disqualified.
func (c *Catalog) GetFallbackModel(scope Scope) (Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.models {
		if !m.Billing.IsPremium && m.SupportsScope(scope) {
			return m, true
		}
	}
	return Model{}, false
}

// SwitchToFallback pins future default selection to the chat-scope fallback
// model. No-op when no fallback exists.
func (c *Catalog) SwitchToFallback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.models {
		if !m.Billing.IsPremium && m.SupportsScope(ScopeChat) {
			c.selectedID = m.ID
			c.usingFallback = true
			return
		}
	}
}

// UsingFallback reports whether the active selection came from a quota
// fallback rather than a user choice.
func (c *Catalog) UsingFallback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usingFallback
}
