package anthropic

// CachedSystem returns the system prompt as a single block with an
// ephemeral cache breakpoint. The extraction prompts are long and identical
// across calls for the same document kind.
func CachedSystem(text, ttl string) []SystemBlock {
	return []SystemBlock{{
		Text:         text,
		CacheControl: &CacheControl{TTL: ttl},
	}}
}
