package natsutil

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// hashedTokenPrefix marks tokens derived from a hash instead of the entity itself.
const hashedTokenPrefix = "_h"

// SubjectToken maps an entity identifier to a single NATS subject token.
//
// Identifiers that are already valid tokens are returned unchanged so subjects stay
// readable. Anything containing '.', '*', '>' or whitespace, or the empty string, is
// replaced by a stable "_h<16 hex digits>" token derived from its xxh3 hash.
//
// Parameters:
//   - entity: Entity identifier
//
// Returns:
//   - string: A token safe to embed in a subject
func SubjectToken(entity string) string {
	if isValidToken(entity) && !strings.HasPrefix(entity, hashedTokenPrefix) {
		return entity
	}

	return fmt.Sprintf("%s%016x", hashedTokenPrefix, xxh3.HashString(entity))
}

// Subject joins prefix and the token of entity.
//
// Example:
//
//	natsutil.Subject("telemetry", "sat-1")          // "telemetry.sat-1"
//	natsutil.Subject("telemetry", "sat-1.battery")  // "telemetry._h9c0d..."
func Subject(prefix, entity string) string {
	return prefix + "." + SubjectToken(entity)
}

func isValidToken(s string) bool {
	if s == "" {
		return false
	}

	return !strings.ContainsAny(s, ".*> \t\r\n")
}
