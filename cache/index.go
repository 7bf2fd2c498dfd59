// Package cache maps normalized prompts to previously generated artifact
// paths. Caching is a best-effort optimization: persistence failures are
// logged and never fail the generation request.
package cache

import (
	"context"
	"strings"
)

// Normalize collapses whitespace runs to single spaces and lowercases the
// prompt. Idempotent: Normalize(Normalize(p)) == Normalize(p).
func Normalize(prompt string) string {
	return strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
}

// Index is a prompt-keyed artifact cache. Get returns a hit only while the
// referenced artifact still exists on disk; a mapping whose file has been
// deleted reads as a miss but is left in place.
type Index interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, path string) error
}
