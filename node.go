package sshconfig

import (
	"fmt"
	"strings"
)

// Span is a half-open range of line indices [Start, End) inside one Document.
type Span struct {
	Start int
	End   int
}

// Len returns the number of lines covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// NodeKind is the syntactic category of a parsed line.
type NodeKind int

// Node kinds.
const (
	KindBlank NodeKind = iota
	KindComment
	KindDirective
	KindHost
	KindMatch
	KindInclude
)

func (k NodeKind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindComment:
		return "comment"
	case KindDirective:
		return "directive"
	case KindHost:
		return "host"
	case KindMatch:
		return "match"
	case KindInclude:
		return "include"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// isHeader reports whether the kind opens a block.
func (k NodeKind) isHeader() bool {
	return k == KindHost || k == KindMatch
}

// Node is one parsed line. Nodes are owned by their Document.
//
// The verbatim line content is kept in raw (without the line terminator) and
// emitted unchanged until the node is edited. An edited node is rendered from
// its parts: indent, key, sep, value and trail.
type Node struct {
	Kind NodeKind
	Span Span

	indent string // leading whitespace
	key    string // key as written
	sep    string // separator as written, e.g. " ", " = " or "="
	value  string // raw value text, quotes included
	trail  string // trailing whitespace and comment
	values []string

	raw     string // original line content
	eol     string // "\n", "\r\n" or "" for an unterminated last line
	edited  bool
	anomaly string

	diags []IncludeDiagnostic
}

// Key returns the key as written in the file.
func (n *Node) Key() string {
	return n.key
}

// RawValue returns the unparsed value text.
func (n *Node) RawValue() string {
	return n.value
}

// Values returns the parsed arguments of the node.
func (n *Node) Values() []string {
	return append([]string(nil), n.values...)
}

// Comment returns the trailing comment including the leading '#', if any.
func (n *Node) Comment() string {
	if n.Kind == KindComment {
		return strings.TrimSpace(n.raw)
	}

	return strings.TrimSpace(n.trail)
}

// Anomaly describes a recovered parse problem on this line, if any.
func (n *Node) Anomaly() string {
	return n.anomaly
}

// Diagnostics returns the include failures attached to an Include node.
func (n *Node) Diagnostics() []IncludeDiagnostic {
	return append([]IncludeDiagnostic(nil), n.diags...)
}

// text returns the exact bytes this node contributes to its document.
func (n *Node) text() string {
	if !n.edited {
		return n.raw + n.eol
	}

	return n.format() + n.eol
}

func (n *Node) format() string {
	line := n.indent + n.key
	if n.value != "" {
		line += n.sep + n.value
	}
	// a comment only starts at a token boundary
	if strings.HasPrefix(n.trail, "#") && line != "" && !isSpace(line[len(line)-1]) {
		line += " "
	}

	return line + n.trail
}

// setValue replaces the raw value text and re-tokenizes it.
func (n *Node) setValue(raw string) {
	n.value = raw
	vs, ok := splitValues(raw)
	if !ok {
		vs = []string{raw}
	}
	n.values = vs
	n.anomaly = ""
	n.edited = true
}

// commit makes the current rendering the new verbatim baseline.
func (n *Node) commit() {
	if n.edited {
		n.raw = n.format()
		n.edited = false
	}
}

// newDirectiveNode creates an edited directive node in the given style.
func newDirectiveNode(indent, key, sep, value, eol string) *Node {
	n := &Node{
		Kind:   KindDirective,
		indent: indent,
		key:    key,
		sep:    sep,
		eol:    eol,
	}
	n.setValue(value)

	return n
}

// newHeaderNode creates an edited "Host" header node.
func newHeaderNode(patterns []string, eol string) *Node {
	n := &Node{
		Kind: KindHost,
		key:  "Host",
		sep:  " ",
		eol:  eol,
	}
	n.setValue(joinPatterns(patterns))

	return n
}

func newBlankNode(eol string) *Node {
	return &Node{
		Kind: KindBlank,
		eol:  eol,
	}
}
