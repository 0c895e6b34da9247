package ratelimit

import "strings"

// MatchEndpoint returns the first rule for method whose pattern matches path, or nil.
// Pattern segments of "*" match any single path segment; a trailing "/" matches any deeper path.
// GET /health always matches an unlimited rule.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == "GET" {
		return &EndpointConfig{Pattern: "/health", Method: method}
	}
	for i := range configs {
		if configs[i].Method == method && matchPattern(configs[i].Pattern, path) {
			return &configs[i]
		}
	}
	return nil
}

func matchPattern(pattern, path string) bool {
	if pattern == path {
		return true
	}
	if strings.HasSuffix(pattern, "/") && !strings.Contains(pattern, "*") {
		return strings.HasPrefix(path, pattern)
	}

	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != "*" && want[i] != got[i] {
			return false
		}
	}
	return true
}
