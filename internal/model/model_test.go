// ABOUTME: Tests for the model catalog
// ABOUTME: Verifies scope filtering and fallback selection

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModels() []Model {
	return []Model{
		{ID: "premium-large", Scopes: []Scope{ScopeChat, ScopeAgent}, Billing: Billing{IsPremium: true, Multiplier: 1}},
		{ID: "base-chat", Scopes: []Scope{ScopeChat}, Billing: Billing{Multiplier: 0}},
		{ID: "base-agent", Scopes: []Scope{ScopeAgent}, Billing: Billing{Multiplier: 0}},
	}
}

func TestCatalog_GetFallbackModel(t *testing.T) {
	c := NewCatalog(testModels())

	chatFallback, ok := c.GetFallbackModel(ScopeChat)
	require.True(t, ok)
	assert.Equal(t, "base-chat", chatFallback.ID)

	agentFallback, ok := c.GetFallbackModel(ScopeAgent)
	require.True(t, ok)
	assert.Equal(t, "base-agent", agentFallback.ID)
}

func TestCatalog_GetFallbackModel_NoneAvailable(t *testing.T) {
	c := NewCatalog([]Model{
		{ID: "premium-only", Scopes: []Scope{ScopeChat}, Billing: Billing{IsPremium: true}},
	})

	_, ok := c.GetFallbackModel(ScopeChat)
	assert.False(t, ok)
}

func TestCatalog_SwitchToFallback(t *testing.T) {
	c := NewCatalog(testModels())
	c.Select("premium-large")
	require.False(t, c.UsingFallback())

	c.SwitchToFallback()
	assert.True(t, c.UsingFallback())
	assert.Equal(t, "base-chat", c.Selected())

	c.Select("premium-large")
	assert.False(t, c.UsingFallback())
}

func TestCatalog_SetModelsReplaces(t *testing.T) {
	c := NewCatalog(nil)
	assert.Empty(t, c.Models())

	c.SetModels(testModels())
	assert.Len(t, c.Models(), 3)
}
