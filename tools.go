//go:build tools
// +build tools

// Package tools tracks Go-based tools invoked via `go generate` (mockgen)
// as explicit module dependencies, so a fresh checkout can regenerate mocks
// without touching go.mod.
package presence_chat

import (
	_ "go.uber.org/mock/mockgen"
)
