// Package keywords classifies free text about a subagent's work into a
// flat set of tags. Matching is case-insensitive and whole-word against a
// fixed category table; every hit contributes both the keyword itself and
// a "category:<name>" meta-tag. This is a pure classification step with no
// side effects.
package keywords

import (
	"regexp"
	"sort"
	"strings"
)

// categories maps a category name to the keywords that signal it.
var categories = map[string][]string{
	"frameworks":       {"react", "vue", "angular", "svelte", "nextjs", "django", "rails", "spring", "express", "fastapi"},
	"databases":        {"postgres", "postgresql", "mysql", "sqlite", "mongodb", "redis", "database", "migration", "schema"},
	"auth":             {"auth", "oauth", "jwt", "login", "session", "password", "authentication", "authorization"},
	"testing":          {"test", "tests", "jest", "pytest", "vitest", "coverage", "mock", "assertion", "e2e"},
	"api":              {"api", "rest", "graphql", "endpoint", "webhook", "grpc", "http"},
	"devops":           {"docker", "kubernetes", "terraform", "deploy", "deployment", "pipeline", "ci", "cd"},
	"frontend":         {"css", "html", "component", "styling", "responsive", "layout", "ui", "ux"},
	"state-management": {"redux", "zustand", "mobx", "store", "reducer", "state"},
	"typing":           {"typescript", "types", "interface", "generic", "typing"},
	"performance":      {"performance", "optimize", "cache", "caching", "latency", "profiling", "benchmark"},
	"security":         {"security", "vulnerability", "sanitize", "xss", "csrf", "injection", "encryption"},
	"file-ops":         {"refactor", "rename", "move", "delete", "create", "restructure"},
}

// agentRolePrefixes are stripped from an agent-type label before it is
// normalized into an agent tag.
var agentRolePrefixes = []string{"agent-", "subagent-"}

var wordSplitRe = regexp.MustCompile(`[^a-z0-9]+`)

// Extract classifies the given texts, returning the sorted, deduplicated
// union of matched keywords and category meta-tags. Empty input produces
// an empty (non-nil) result.
func Extract(texts ...string) []string {
	found := make(map[string]struct{})

	for _, text := range texts {
		if text == "" {
			continue
		}
		words := wordSet(text)
		for category, kws := range categories {
			for _, kw := range kws {
				if _, ok := words[kw]; ok {
					found[kw] = struct{}{}
					found["category:"+category] = struct{}{}
				}
			}
		}
	}

	return sorted(found)
}

// ExtractWithAgentType classifies texts and additionally tags the agent's
// normalized role, e.g. "backend-engineer" contributes
// "agent:backend engineer".
func ExtractWithAgentType(agentType string, texts ...string) []string {
	found := make(map[string]struct{})
	for _, tag := range Extract(append(texts, agentType)...) {
		found[tag] = struct{}{}
	}

	if normalized := NormalizeAgentType(agentType); normalized != "" {
		found["agent:"+normalized] = struct{}{}
	}

	return sorted(found)
}

// NormalizeAgentType strips role prefixes and turns separators into
// spaces: "subagent-backend_engineer" becomes "backend engineer".
func NormalizeAgentType(agentType string) string {
	normalized := strings.ToLower(strings.TrimSpace(agentType))
	for _, prefix := range agentRolePrefixes {
		normalized = strings.TrimPrefix(normalized, prefix)
	}
	normalized = strings.ReplaceAll(normalized, "-", " ")
	normalized = strings.ReplaceAll(normalized, "_", " ")
	return strings.Join(strings.Fields(normalized), " ")
}

// wordSet splits text into lowercase words for whole-word matching.
func wordSet(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, word := range wordSplitRe.Split(strings.ToLower(text), -1) {
		if word != "" {
			words[word] = struct{}{}
		}
	}
	return words
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
