package bus

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled match pattern in the browser-extension form
// <scheme>://<host>/<path>, e.g. *://*.amazon.com/*
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// CompilePattern parses a match pattern. A '*' scheme means http or https,
// a '*.' host prefix also matches the bare domain, '*' in the path matches
// anything.
func CompilePattern(pattern string) (*Pattern, error) {
	scheme, rest, ok := strings.Cut(pattern, "://")
	if !ok {
		return nil, fmt.Errorf("invalid match pattern %q: missing scheme separator", pattern)
	}
	host, path := rest, "/"
	if i := strings.Index(rest, "/"); i >= 0 {
		host, path = rest[:i], rest[i:]
	}
	if host == "" {
		return nil, fmt.Errorf("invalid match pattern %q: missing host", pattern)
	}

	var b strings.Builder
	b.WriteString("^")
	switch scheme {
	case "*":
		b.WriteString("https?")
	case "http", "https":
		b.WriteString(scheme)
	default:
		return nil, fmt.Errorf("invalid match pattern %q: unsupported scheme %q", pattern, scheme)
	}
	b.WriteString("://")

	switch {
	case host == "*":
		b.WriteString(`[^/:]+`)
	case strings.HasPrefix(host, "*."):
		b.WriteString(`([^/:]+\.)?`)
		b.WriteString(regexp.QuoteMeta(host[2:]))
	case strings.Contains(host, "*"):
		return nil, fmt.Errorf("invalid match pattern %q: '*' must lead the host", pattern)
	default:
		b.WriteString(regexp.QuoteMeta(host))
	}
	b.WriteString(`(:\d+)?`)

	for i, part := range strings.Split(path, "*") {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid match pattern %q: %w", pattern, err)
	}
	return &Pattern{raw: pattern, re: re}, nil
}

// Match reports whether pageURL (fragment ignored) fits the pattern
func (p *Pattern) Match(pageURL string) bool {
	if i := strings.IndexByte(pageURL, '#'); i >= 0 {
		pageURL = pageURL[:i]
	}
	end := schemeHostEnd(pageURL)
	path := pageURL[end:]
	if path == "" {
		path = "/"
	}
	return p.re.MatchString(strings.ToLower(pageURL[:end]) + path)
}

// String returns the pattern as written
func (p *Pattern) String() string {
	return p.raw
}

// schemeHostEnd is the index where the path starts, so scheme and host can be
// matched case-insensitively
func schemeHostEnd(u string) int {
	start := strings.Index(u, "://")
	if start < 0 {
		return 0
	}
	start += 3
	if i := strings.IndexByte(u[start:], '/'); i >= 0 {
		return start + i
	}
	return len(u)
}
