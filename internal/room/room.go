// Package room derives human-presentable join codes and the namespaced
// rendezvous addresses behind them.
package room

import (
	"fmt"
	"math/rand"
	"strings"
)

// addressPrefix keeps our identities from colliding with unrelated
// applications sharing the same rendezvous service.
const addressPrefix = "exam-arena-2025-"

// NewCode returns a fresh 6-digit room code.
func NewCode(rnd *rand.Rand) string {
	return fmt.Sprintf("%06d", 100000+rnd.Intn(900000))
}

// Address expands a room code into the full rendezvous address.
func Address(code string) string {
	return addressPrefix + code
}

// NormalizeCode trims operator-entered whitespace from a code.
func NormalizeCode(raw string) string {
	return strings.TrimSpace(raw)
}
