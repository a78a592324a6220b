// Package cache holds the response-completion cache and the version guard
// that invalidates it. The cache is unrelated to the memory tiers; it keeps
// formatted completions keyed by (owner, content hash). The guard exists
// for one invariant: never serve a completion that was cached under a
// different system-prompt contract.
package cache
