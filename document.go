package sshconfig

import (
	"os"
	"runtime"
	"slices"
	"strings"
)

var nativeNewline = func() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}

	return "\n"
}()

// Document represents one physical ssh config file.
//
// A Document keeps every line of the file as a Node so that it can be written
// back byte-identical apart from the lines that were edited. Documents are
// owned by the Graph; the Editor never hands them out for modification.
//
// Fields:
// - path: canonical absolute path, empty for parsed in-memory text
// - nodes: one Node per line, in file order
// - newline: line terminator used for new lines ("\n" or "\r\n")
// - dirty: set by mutations, cleared by a successful save
// - exists: false for a default root that was not found on disk yet
// - mode: permission bits of the file on disk, reused on save
type Document struct {
	path    string
	nodes   []*Node
	newline string
	dirty   bool
	exists  bool
	mode    os.FileMode
}

// Path returns the canonical path of the document.
func (d *Document) Path() string {
	return d.path
}

// Dirty reports whether the document has unsaved changes.
func (d *Document) Dirty() bool {
	return d.dirty
}

// Newline returns the line terminator used by this document.
func (d *Document) Newline() string {
	return d.newline
}

// Len returns the number of lines.
func (d *Document) Len() int {
	return len(d.nodes)
}

// Node returns the node at line index i.
func (d *Document) Node(i int) *Node {
	if i < 0 || i >= len(d.nodes) {
		return nil
	}

	return d.nodes[i]
}

// String renders the document: unedited lines verbatim, edited lines freshly
// formatted.
func (d *Document) String() string {
	var sb strings.Builder
	for _, n := range d.nodes {
		sb.WriteString(n.text())
	}

	return sb.String()
}

// Bytes is like String but returns a byte slice suitable for writing.
func (d *Document) Bytes() []byte {
	return []byte(d.String())
}

func (d *Document) renumber() {
	for i, n := range d.nodes {
		n.Span = Span{Start: i, End: i + 1}
	}
}

// insert places nodes before line index at. If the nodes are appended after
// an unterminated last line that line gets a terminator first.
func (d *Document) insert(at int, nodes ...*Node) {
	if at > 0 && at == len(d.nodes) && d.nodes[at-1].eol == "" {
		d.nodes[at-1].eol = d.newline
	}
	for _, n := range nodes {
		if n.eol == "" {
			n.eol = d.newline
		}
	}

	d.nodes = slices.Insert(d.nodes, at, nodes...)
	d.renumber()
}

// remove deletes the lines covered by s and returns them.
func (d *Document) remove(s Span) []*Node {
	removed := append([]*Node(nil), d.nodes[s.Start:s.End]...)
	d.nodes = slices.Delete(d.nodes, s.Start, s.End)
	d.renumber()

	return removed
}

// commit turns the current rendering into the new baseline after a save.
func (d *Document) commit() {
	for _, n := range d.nodes {
		n.commit()
	}
	d.dirty = false
	d.exists = true
}

// includes returns the Include nodes in file order.
func (d *Document) includes() []*Node {
	var out []*Node
	for _, n := range d.nodes {
		if n.Kind == KindInclude {
			out = append(out, n)
		}
	}

	return out
}

// lastLineIsBlank reports whether the document is empty or ends in a blank line.
func (d *Document) lastLineIsBlank() bool {
	if len(d.nodes) == 0 {
		return true
	}

	return d.nodes[len(d.nodes)-1].Kind == KindBlank
}
