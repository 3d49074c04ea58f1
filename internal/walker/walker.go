// Package walker streams repeating units out of one Unified Agenda XML file.
// It is deliberately dumb about the domain: it matches elements by local name
// only (vintages disagree on namespaces and prefixes), tolerates the markup
// quirks old files carry, and hands each unit to the caller as a small tree.
// Only one unit is held in memory at a time, so arbitrarily large files walk
// in constant memory.
package walker

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ErrDocumentUnreadable marks an unrecoverable parse failure: the walk found
// no complete unit before the decoder gave up. The caller decides whether to
// skip the document or halt the run.
var ErrDocumentUnreadable = errors.New("document unreadable")

// Node is one element of a unit tree: local name, accumulated text, and
// children in document order.
type Node struct {
	Name     string
	Text     string
	Children []*Node
}

// Pair is one (path, value) leaf produced by Pairs.
type Pair struct {
	Path  string
	Value string
}

// Child returns the first direct child with the given local name, or nil.
func (n *Node) Child(name string) *Node {
	for _, ch := range n.Children {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

// ChildrenNamed returns all direct children with the given local name,
// in document order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, ch := range n.Children {
		if ch.Name == name {
			out = append(out, ch)
		}
	}
	return out
}

// ChildText returns the trimmed text of the first child with the given local
// name, or "" when absent.
func (n *Node) ChildText(name string) string {
	if ch := n.Child(name); ch != nil {
		return strings.TrimSpace(ch.Text)
	}
	return ""
}

// Pairs flattens the subtree into (path, value) leaves, paths joined with "/".
func (n *Node) Pairs() []Pair {
	var out []Pair
	n.appendPairs("", &out)
	return out
}

func (n *Node) appendPairs(prefix string, out *[]Pair) {
	path := n.Name
	if prefix != "" {
		path = prefix + "/" + n.Name
	}
	if len(n.Children) == 0 {
		*out = append(*out, Pair{Path: path, Value: strings.TrimSpace(n.Text)})
		return
	}
	for _, ch := range n.Children {
		ch.appendPairs(path, out)
	}
}

// Report summarizes one walk: how many units were handed to the callback and
// whether the walk ended early on a recoverable defect. A Recovered report is
// a success with partial data; RecoverErr says what stopped the walk.
type Report struct {
	Units      int
	Recovered  bool
	RecoverErr error
}

// Walk streams the reader and invokes fn once per element whose local name
// matches unitName (case-insensitive). Markup defects after at least one
// complete unit end the walk with Recovered set instead of failing; defects
// before any unit yield ErrDocumentUnreadable. An error returned by fn aborts
// the walk and is returned as-is.
func Walk(r io.Reader, unitName string, fn func(*Node) error) (*Report, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charsetReader

	report := &Report{}
	want := strings.ToUpper(unitName)

	// Stack of open elements inside the unit currently being captured.
	// Empty stack means we are between units.
	var stack []*Node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return report, nil
		}
		if err != nil {
			if report.Units > 0 {
				report.Recovered = true
				report.RecoverErr = err
				return report, nil
			}
			return report, fmt.Errorf("%w: %v", ErrDocumentUnreadable, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			if len(stack) == 0 {
				if strings.ToUpper(name) != want {
					continue
				}
				stack = append(stack, &Node{Name: name})
				continue
			}
			child := &Node{Name: name}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, child)
			stack = append(stack, child)

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			done := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				report.Units++
				if err := fn(done); err != nil {
					return report, err
				}
			}

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
}

// WalkFile opens path and walks it. The file is streamed, not slurped.
func WalkFile(path, unitName string, fn func(*Node) error) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document %s: %w", path, err)
	}
	defer f.Close()
	return Walk(f, unitName, fn)
}

// localName strips namespace URIs and any undeclared prefixes so matching
// works identically across vintages.
func localName(n xml.Name) string {
	local := n.Local
	if i := strings.LastIndex(local, ":"); i >= 0 {
		local = local[i+1:]
	}
	return local
}

// charsetReader handles the legacy encodings pre-2000 files declare. Unknown
// charsets pass through untouched rather than failing the walk.
func charsetReader(cs string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(cs)) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "iso8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return input, nil
	}
}
