package sshconfig

import (
	"fmt"
	"io"
	"strings"

	"github.com/gopasspw/gopass/pkg/debug"
)

// parseDocument reads one config file and turns every line into exactly one
// Node. It only fails if the reader fails; malformed lines are kept as
// directives with an anomaly so they round-trip unchanged.
func parseDocument(path string, r io.Reader) (*Document, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	d := &Document{
		path:    path,
		newline: detectNewline(string(buf)),
		exists:  true,
	}
	d.nodes = parseLines(string(buf))
	d.renumber()

	for _, n := range d.nodes {
		if n.anomaly != "" {
			debug.V(1).Log("%s:%d: %s: %q", path, n.Span.Start+1, n.anomaly, n.raw)
		}
	}

	debug.V(3).Log("parsed %s: %d lines", path, len(d.nodes))

	return d, nil
}

// Parse parses config text that is not backed by a file. The returned
// Document can be inspected and serialized but not saved.
func Parse(r io.Reader) (*Document, error) {
	return parseDocument("", r)
}

// parseLines splits the input into lines, keeping each line terminator with
// its line, and parses each of them.
func parseLines(in string) []*Node {
	nodes := make([]*Node, 0, strings.Count(in, "\n")+1)

	for len(in) > 0 {
		line := in
		eol := ""
		if i := strings.IndexByte(in, '\n'); i >= 0 {
			line = in[:i]
			eol = "\n"
			in = in[i+1:]
			if strings.HasSuffix(line, "\r") {
				line = line[:len(line)-1]
				eol = "\r\n"
			}
		} else {
			in = ""
		}

		n := parseLine(line)
		n.eol = eol
		nodes = append(nodes, n)
	}

	return nodes
}

// parseLine classifies one line without its terminator.
// Reference: ssh_config(5), "Configuration options may be separated by
// whitespace or optional whitespace and exactly one '='".
func parseLine(line string) *Node {
	n := &Node{raw: line}

	body := strings.TrimLeft(line, " \t")
	n.indent = line[:len(line)-len(body)]

	if strings.TrimSpace(body) == "" {
		n.Kind = KindBlank

		return n
	}
	if strings.HasPrefix(body, "#") {
		n.Kind = KindComment

		return n
	}

	k := strings.IndexAny(body, " \t=")
	if k < 0 {
		k = len(body)
	}
	n.key = body[:k]
	rest := body[k:]

	// separator: whitespace, at most one '=', whitespace
	s := 0
	for s < len(rest) && isSpace(rest[s]) {
		s++
	}
	if s < len(rest) && rest[s] == '=' {
		s++
		for s < len(rest) && isSpace(rest[s]) {
			s++
		}
	}
	n.sep = rest[:s]

	value, trail, unterminated := splitValueComment(rest[s:])
	n.value = value
	n.trail = trail

	switch canonicalizeKey(n.key) {
	case "host":
		n.Kind = KindHost
	case "match":
		n.Kind = KindMatch
	case "include":
		n.Kind = KindInclude
	default:
		n.Kind = KindDirective
	}

	switch {
	case value == "":
		n.anomaly = "missing value"
	case unterminated:
		n.anomaly = "unterminated quote"
		n.values = []string{value}
	default:
		n.values, _ = splitValues(value)
	}

	return n
}

// detectNewline returns the terminator of the first line, falling back to
// the platform default for files without any line break.
func detectNewline(in string) string {
	i := strings.IndexByte(in, '\n')
	if i < 0 {
		return nativeNewline
	}
	if i > 0 && in[i-1] == '\r' {
		return "\r\n"
	}

	return "\n"
}
