// Package uri implements the RFC-3986 URI type:
// a normalized, immutable representation with scheme/userinfo/host/port/
// path/query/fragment parts, percent-encoding normalization, dot-segment
// removal, and §5.2/§5.4 reference resolution.
package uri

import (
	"strconv"
	"strings"
)

// URI is an immutable, normalized RFC-3986 URI reference.
type URI struct {
	scheme   string
	userinfo string
	host     string
	port     string
	path     string
	query    string
	fragment string

	hasAuthority bool
	hasQuery     bool
	hasFragment  bool
}

// Scheme returns the lowercased scheme, or "" if this is a relative reference.
func (u URI) Scheme() string { return u.scheme }

// Userinfo returns the userinfo component, without the trailing '@'.
func (u URI) Userinfo() string { return u.userinfo }

// Host returns the lowercased host.
func (u URI) Host() string { return u.host }

// Port returns the port component, without the leading ':'.
func (u URI) Port() string { return u.port }

// Path returns the path component.
func (u URI) Path() string { return u.path }

// Query returns the query component, without the leading '?'.
func (u URI) Query() string { return u.query }

// Fragment returns the fragment component, without the leading '#'.
func (u URI) Fragment() string { return u.fragment }

// HasAuthority reports whether this URI has an authority component
// (i.e. began with "//").
func (u URI) HasAuthority() bool { return u.hasAuthority }

// HasQuery reports whether a query component (even empty) was present.
func (u URI) HasQuery() bool { return u.hasQuery }

// HasFragment reports whether a fragment component (even empty) was present.
func (u URI) HasFragment() bool { return u.hasFragment }

// Parse parses s into a normalized URI reference: lowercases scheme and
// host, percent-unescapes unreserved octets, percent-escapes reserved
// octets only where required (in uppercase hex), and removes dot-segments
// from the path when a scheme is present.
func Parse(s string) (URI, error) {
	var u URI

	rest := s

	// scheme
	if idx := strings.IndexByte(rest, ':'); idx > 0 && isValidScheme(rest[:idx]) {
		u.scheme = strings.ToLower(rest[:idx])
		rest = rest[idx+1:]
	}

	// fragment
	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		u.hasFragment = true
		u.fragment = normalizeComponent(rest[idx+1:], classFragment)
		rest = rest[:idx]
	}

	// query
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		u.hasQuery = true
		u.query = normalizeComponent(rest[idx+1:], classQuery)
		rest = rest[:idx]
	}

	// authority
	if strings.HasPrefix(rest, "//") {
		u.hasAuthority = true
		rest = rest[2:]
		authEnd := len(rest)
		for i, c := range rest {
			if c == '/' || c == '?' || c == '#' {
				authEnd = i
				break
			}
		}
		authority := rest[:authEnd]
		rest = rest[authEnd:]

		if idx := strings.LastIndexByte(authority, '@'); idx >= 0 {
			u.userinfo = normalizeComponent(authority[:idx], classUserinfo)
			authority = authority[idx+1:]
		}
		if idx := strings.LastIndexByte(authority, ':'); idx >= 0 && isPort(authority[idx+1:]) {
			u.port = authority[idx+1:]
			authority = authority[:idx]
		}
		u.host = strings.ToLower(normalizeComponent(authority, classHost))
	}

	u.path = normalizeComponent(rest, classPath)
	if u.scheme != "" {
		u.path = removeDotSegments(u.path)
	}

	return u, nil
}

// MustParse parses s and panics on error; intended for constant/test URIs.
func MustParse(s string) URI {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String reassembles the normalized form, per RFC-3986 §5.3.
func (u URI) String() string {
	var b strings.Builder
	if u.scheme != "" {
		b.WriteString(u.scheme)
		b.WriteByte(':')
	}
	if u.hasAuthority {
		b.WriteString("//")
		if u.userinfo != "" {
			b.WriteString(u.userinfo)
			b.WriteByte('@')
		}
		b.WriteString(u.host)
		if u.port != "" {
			b.WriteByte(':')
			b.WriteString(u.port)
		}
	}
	b.WriteString(u.path)
	if u.hasQuery {
		b.WriteByte('?')
		b.WriteString(u.query)
	}
	if u.hasFragment {
		b.WriteByte('#')
		b.WriteString(u.fragment)
	}
	return b.String()
}

// Equal reports byte-exact equality on the normalized form.
func (u URI) Equal(o URI) bool { return u.String() == o.String() }

// IsAbsolute reports whether u has a non-empty scheme.
func (u URI) IsAbsolute() bool { return u.scheme != "" }

// GetFilePath percent-decodes the path into a plain string. It does not
// validate UTF-8.
func (u URI) GetFilePath() string {
	return percentDecodeAll(u.path)
}

// FromFilePath constructs a URI from a local filesystem path: absolute
// paths (beginning with '/') produce a "file://" URI; anything else
// produces a relative reference.
func FromFilePath(s string) URI {
	if strings.HasPrefix(s, "/") {
		encoded := normalizeComponent(s, classPath)
		u, _ := Parse("file://" + encoded)
		return u
	}
	u, _ := Parse(normalizeComponent(s, classPath))
	return u
}

// Extension returns the lowercased file extension (without the dot) of the
// URI's path, used by the input registry  to dispatch to a
// demuxer factory.
func (u URI) Extension() string {
	base := u.path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

func isValidScheme(s string) bool {
	if s == "" || !isAlpha(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isAlpha(c) && !isDigit(c) && c != '+' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// ParsePort returns the numeric port, or -1 if none/invalid.
func (u URI) ParsePort() int {
	if u.port == "" {
		return -1
	}
	n, err := strconv.Atoi(u.port)
	if err != nil {
		return -1
	}
	return n
}
