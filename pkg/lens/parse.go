package lens

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePath parses a path expression such as `john.house[0].color` or
// `a["dotted.key"]`. The empty string and "$" parse to the root lens.
// Bracketed integers become Index segments, everything else becomes Key segments.
func ParsePath(expr string) (Lens, error) {
	l := Root()
	s := strings.TrimPrefix(strings.TrimSpace(expr), "$")
	for len(s) > 0 {
		switch s[0] {
		case '.':
			s = s[1:]
			if s == "" || s[0] == '.' || s[0] == '[' {
				return Lens{}, fmt.Errorf("%w: empty key in %q", ErrBadPath, expr)
			}
		case '[':
			end := closing(s)
			if end < 0 {
				return Lens{}, fmt.Errorf("%w: unterminated bracket in %q", ErrBadPath, expr)
			}
			inner := s[1:end]
			s = s[end+1:]
			if strings.HasPrefix(inner, `"`) {
				name, err := strconv.Unquote(inner)
				if err != nil {
					return Lens{}, fmt.Errorf("%w: %v in %q", ErrBadPath, err, expr)
				}
				l = l.Chain(Key(name))
				continue
			}
			i, err := strconv.Atoi(inner)
			if err != nil || i < 0 {
				return Lens{}, fmt.Errorf("%w: bad index %q in %q", ErrBadPath, inner, expr)
			}
			l = l.Chain(Index(i))
			continue
		}
		n := strings.IndexAny(s, ".[")
		if n < 0 {
			n = len(s)
		}
		l = l.Chain(Key(s[:n]))
		s = s[n:]
	}
	return l, nil
}

// closing returns the index of the ']' matching the '[' at s[0], honouring quotes.
func closing(s string) int {
	quoted := false
	for i := 1; i < len(s); i++ {
		switch {
		case quoted && s[i] == '\\':
			i++
		case s[i] == '"':
			quoted = !quoted
		case !quoted && s[i] == ']':
			return i
		}
	}
	return -1
}
