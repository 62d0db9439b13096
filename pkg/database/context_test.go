package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeContext(t *testing.T) {
	_, ok := GetScope(context.Background())
	assert.False(t, ok)

	var nilScope *Scope
	_, ok = GetScope(SetScope(context.Background(), nilScope))
	assert.False(t, ok, "a nil scope is not a scope")

	scope := &Scope{}
	got, ok := GetScope(SetScope(context.Background(), scope))
	assert.True(t, ok)
	assert.Same(t, scope, got)
}

func TestScope_CloseWithoutConnection(t *testing.T) {
	assert.NotPanics(t, func() { (&Scope{}).Close() })
}

func TestNewConnection_InvalidURL(t *testing.T) {
	_, err := NewConnection(context.Background(), &Config{URL: "postgres://%zz"})
	assert.ErrorContains(t, err, "failed to parse database URL")
}
