package config

import (
	"path"
	"strings"
)

// Normalize trims exclude patterns and removes empty values.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.ExcludeProducts = normalizePatterns(c.ExcludeProducts)
}

// IsProductExcluded reports whether a product id matches any exclude
// pattern. Patterns are shell globs matched case-insensitively, so
// `test-*` keeps seeded demo products out of scoring and ingestion.
func (c *Config) IsProductExcluded(productID string) bool {
	if c == nil || len(c.ExcludeProducts) == 0 {
		return false
	}

	value := normalizePattern(productID)
	if value == "" {
		return false
	}

	for _, pattern := range c.ExcludeProducts {
		if patternMatches(pattern, value) {
			return true
		}
	}

	return false
}

func patternMatches(pattern, value string) bool {
	if pattern == "" {
		return false
	}
	if matched, err := path.Match(pattern, value); err == nil && matched {
		return true
	}
	return pattern == value
}

func normalizePatterns(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		value := normalizePattern(pattern)
		if value == "" {
			continue
		}
		normalized = append(normalized, value)
	}
	return normalized
}

func normalizePattern(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
