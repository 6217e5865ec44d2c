package uri

// Resolve implements RFC-3986 §5.2.2: resolving u as a reference against
// base. u is typically a relative reference (no scheme); base is typically
// absolute.
func (u URI) Resolve(base URI) URI {
	var t URI

	switch {
	case u.scheme != "":
		t.scheme = u.scheme
		t.hasAuthority = u.hasAuthority
		t.userinfo = u.userinfo
		t.host = u.host
		t.port = u.port
		t.path = removeDotSegments(u.path)
		t.hasQuery = u.hasQuery
		t.query = u.query

	case u.hasAuthority:
		t.scheme = base.scheme
		t.hasAuthority = true
		t.userinfo = u.userinfo
		t.host = u.host
		t.port = u.port
		t.path = removeDotSegments(u.path)
		t.hasQuery = u.hasQuery
		t.query = u.query

	case u.path == "":
		t.scheme = base.scheme
		t.hasAuthority = base.hasAuthority
		t.userinfo = base.userinfo
		t.host = base.host
		t.port = base.port
		t.path = base.path
		if u.hasQuery {
			t.hasQuery = true
			t.query = u.query
		} else {
			t.hasQuery = base.hasQuery
			t.query = base.query
		}

	default:
		t.scheme = base.scheme
		t.hasAuthority = base.hasAuthority
		t.userinfo = base.userinfo
		t.host = base.host
		t.port = base.port
		if len(u.path) > 0 && u.path[0] == '/' {
			t.path = removeDotSegments(u.path)
		} else {
			t.path = removeDotSegments(mergePath(base, u.path))
		}
		t.hasQuery = u.hasQuery
		t.query = u.query
	}

	t.hasFragment = u.hasFragment
	t.fragment = u.fragment

	return t
}

// mergePath implements RFC-3986 §5.3 merge: if base has authority and an
// empty path, the merged path is "/" + ref; otherwise it's base's path up
// to and including the last '/', followed by ref.
func mergePath(base URI, ref string) string {
	if base.hasAuthority && base.path == "" {
		return "/" + ref
	}
	idx := lastSlash(base.path)
	if idx < 0 {
		return ref
	}
	return base.path[:idx+1] + ref
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}
