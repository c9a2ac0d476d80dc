package sshconfig

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// globMatch reports whether the file name s matches the glob pattern. Patterns
// are matched one path component at a time so '/' never needs to be crossed.
func globMatch(pattern, s string) (bool, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return false, err
	}

	return g.Match(s), nil
}

// hasGlobMeta reports whether p contains any glob(3) wildcard.
func hasGlobMeta(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

// canonicalizeKey returns the lookup form of a directive key.
// "Keywords are case-insensitive and arguments are case-sensitive." (ssh_config(5)).
func canonicalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

func trim(s []string) {
	for i, e := range s {
		s[i] = strings.TrimSpace(e)
	}
}

// splitValueComment separates the value part of a line from any trailing
// whitespace and comment. A '#' only starts a comment when it begins a new
// token outside of double quotes, so values like `id#1` survive. The returned
// trail is the verbatim remainder after the value. unterminated is true if a
// double quote was opened but never closed.
func splitValueComment(rest string) (value, trail string, unterminated bool) { //nolint:nonamedreturns
	inQuotes := false
	for i := 0; i < len(rest); i++ {
		switch c := rest[i]; {
		case c == '"':
			inQuotes = !inQuotes
		case c == '#' && !inQuotes && (i == 0 || isSpace(rest[i-1])):
			value = strings.TrimRight(rest[:i], " \t")

			return value, rest[len(value):], false
		}
	}

	value = strings.TrimRight(rest, " \t")

	return value, rest[len(value):], inQuotes
}

// splitValues tokenizes a raw value into its whitespace separated arguments.
// Double quoted runs are kept together and the quotes are removed. ok is false
// if a quote is left open; values is nil in that case.
func splitValues(raw string) (values []string, ok bool) { //nolint:nonamedreturns
	var cur strings.Builder
	inQuotes := false
	inToken := false

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			inToken = true
		case isSpace(c) && !inQuotes:
			if inToken {
				values = append(values, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}

	if inQuotes {
		return nil, false
	}
	if inToken {
		values = append(values, cur.String())
	}

	return values, true
}

// quoteValue wraps a single argument in double quotes if it would otherwise be
// split into several arguments.
func quoteValue(v string) string {
	if v == "" || strings.ContainsAny(v, " \t") {
		return `"` + v + `"`
	}

	return v
}

// joinPatterns formats host patterns or match criteria for a header line.
func joinPatterns(patterns []string) string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, quoteValue(p))
	}

	return strings.Join(out, " ")
}

// expandHome replaces a leading "~" or "~/" with the given home directory.
// Other user references ("~bob/") are not supported and returned unchanged.
func expandHome(p, home string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	if home == "" {
		return "", fmt.Errorf("can not expand %q: %w", p, ErrNoHome)
	}

	return filepath.Join(home, strings.TrimPrefix(p[1:], "/")), nil
}
