package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// VersionState is what the guard persists between runs: the release version
// and a hash of the active system prompt.
type VersionState struct {
	Version          string `json:"version"`
	SystemPromptHash string `json:"system_prompt_hash"`
}

// Invalidator is the slice of ResponseCache the guard needs.
type Invalidator interface {
	InvalidateAll()
}

// VersionGuard compares the persisted prompt-contract state against the
// running build at startup and bulk-invalidates the response cache on any
// mismatch. Read-mostly after startup.
type VersionGuard struct {
	statePath string
	logger    *log.Logger

	mu    sync.RWMutex
	state VersionState
}

// NewVersionGuard creates a guard persisting its state at statePath.
func NewVersionGuard(statePath string, logger *log.Logger) *VersionGuard {
	if logger == nil {
		logger = log.Default().WithPrefix("versionguard")
	}
	return &VersionGuard{statePath: statePath, logger: logger}
}

// Ensure reconciles the persisted state with the running version and system
// prompt. On mismatch it invalidates the response cache and persists the
// new state; the returned bool reports whether invalidation happened.
//
// A missing state file counts as a mismatch: on a first run there is no
// proof the cache was built under this contract.
func (g *VersionGuard) Ensure(version, systemPrompt string, cache Invalidator) (bool, error) {
	current := VersionState{
		Version:          version,
		SystemPromptHash: HashPrompt(systemPrompt),
	}

	persisted, err := g.load()
	if err != nil {
		return false, err
	}

	g.mu.Lock()
	g.state = current
	g.mu.Unlock()

	if persisted != nil && *persisted == current {
		return false, nil
	}

	if persisted == nil {
		g.logger.Info("no persisted prompt-contract state, invalidating response cache")
	} else {
		g.logger.Warn("prompt contract changed, invalidating response cache",
			"old_version", persisted.Version, "new_version", current.Version)
	}
	if cache != nil {
		cache.InvalidateAll()
	}

	if err := g.persist(current); err != nil {
		return true, err
	}
	return true, nil
}

// State returns the active contract state.
func (g *VersionGuard) State() VersionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// HashPrompt returns the canonical hash of a system prompt.
func HashPrompt(systemPrompt string) string {
	sum := sha256.Sum256([]byte(systemPrompt))
	return hex.EncodeToString(sum[:])
}

func (g *VersionGuard) load() (*VersionState, error) {
	data, err := os.ReadFile(g.statePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read version state: %w", err)
	}
	var state VersionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse version state: %w", err)
	}
	return &state, nil
}

// persist writes atomically via rename so a crash never leaves a torn
// state file.
func (g *VersionGuard) persist(state VersionState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := g.statePath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(g.statePath), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write version state: %w", err)
	}
	if err := os.Rename(tmp, g.statePath); err != nil {
		return fmt.Errorf("commit version state: %w", err)
	}
	return nil
}
