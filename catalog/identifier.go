package catalog

import (
	"net/url"
	"strings"
)

// ParseIdentifier extracts a channel identifier from user input.
//
// Accepted forms:
//
//	UCxxxxxxxx                              bare channel ID
//	@handle                                 handle
//	https://www.youtube.com/channel/UCxxxx  channel URL
//	https://www.youtube.com/@handle         handle URL
//
// Empty input, and URLs that point at neither a channel nor a handle, yield
// ok == false; the caller must not query the catalog then.
func ParseIdentifier(raw string) (id string, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.ContainsAny(s, " \t/?#") || s == "@" {
			return "", false
		}
		return s, true
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(segments) >= 2 && segments[0] == "channel" && segments[1] != "":
		return segments[1], true
	case len(segments) >= 1 && strings.HasPrefix(segments[0], "@") && len(segments[0]) > 1:
		return segments[0], true
	}
	return "", false
}

// IsHandle reports whether id is an @handle rather than a channel ID.
func IsHandle(id string) bool {
	return strings.HasPrefix(id, "@")
}
