package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) InvalidateAll() { c.calls++ }

func TestFirstRunInvalidates(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "version.json")
	guard := NewVersionGuard(statePath, nil)
	inv := &countingInvalidator{}

	invalidated, err := guard.Ensure("v1.0.0", "You are a helpful assistant.", inv)
	require.NoError(t, err)
	require.True(t, invalidated, "no persisted state means no proof the cache is valid")
	require.Equal(t, 1, inv.calls)
}

func TestUnchangedContractKeepsCache(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "version.json")
	inv := &countingInvalidator{}

	guard := NewVersionGuard(statePath, nil)
	_, err := guard.Ensure("v1.0.0", "prompt", inv)
	require.NoError(t, err)

	// Simulated restart with identical build constants.
	guard2 := NewVersionGuard(statePath, nil)
	invalidated, err := guard2.Ensure("v1.0.0", "prompt", inv)
	require.NoError(t, err)
	require.False(t, invalidated)
	require.Equal(t, 1, inv.calls, "only the first run invalidates")
}

func TestVersionBumpInvalidates(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "version.json")
	inv := &countingInvalidator{}

	guard := NewVersionGuard(statePath, nil)
	_, err := guard.Ensure("v1.0.0", "prompt", inv)
	require.NoError(t, err)

	guard2 := NewVersionGuard(statePath, nil)
	invalidated, err := guard2.Ensure("v1.1.0", "prompt", inv)
	require.NoError(t, err)
	require.True(t, invalidated)
	require.Equal(t, 2, inv.calls)
}

func TestPromptChangeInvalidates(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "version.json")
	inv := &countingInvalidator{}

	guard := NewVersionGuard(statePath, nil)
	_, err := guard.Ensure("v1.0.0", "old prompt", inv)
	require.NoError(t, err)

	guard2 := NewVersionGuard(statePath, nil)
	invalidated, err := guard2.Ensure("v1.0.0", "new prompt", inv)
	require.NoError(t, err)
	require.True(t, invalidated)
	require.Equal(t, 2, inv.calls)
}

func TestGuardWithRealCache(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "version.json")
	respCache, err := NewResponseCache(time.Hour)
	require.NoError(t, err)
	t.Cleanup(respCache.Close)

	respCache.Set("alice", "question", "stale answer")

	guard := NewVersionGuard(statePath, nil)
	_, err = guard.Ensure("v2.0.0", "rewritten prompt", respCache)
	require.NoError(t, err)

	_, ok := respCache.Get("alice", "question")
	require.False(t, ok, "completions cached under an old contract must not survive")
}

func TestStateAccessor(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "version.json")
	guard := NewVersionGuard(statePath, nil)

	_, err := guard.Ensure("v1.2.3", "prompt", nil)
	require.NoError(t, err)

	state := guard.State()
	require.Equal(t, "v1.2.3", state.Version)
	require.Equal(t, HashPrompt("prompt"), state.SystemPromptHash)
}
