// Package theme models a storefront theme layout as an ordered list of top-level
// nodes so the tracking snippet can be inserted structurally before the closing
// head tag.
package theme

import (
	"errors"
	"html"
	"strings"
)

// ErrHeadMarkerMissing is returned when a layout has no closing head tag
var ErrHeadMarkerMissing = errors.New("layout has no closing </head> tag")

// NodeKind classifies a layout node
type NodeKind int

const (
	// NodeText is opaque markup passed through untouched
	NodeText NodeKind = iota
	// NodeHeadClose is the first closing head tag
	NodeHeadClose
	// NodeSnippet is a previously injected tracking snippet
	NodeSnippet
)

// Node is one top-level fragment of the layout
type Node struct {
	Kind       NodeKind
	Value      string
	TrackingID string // set for NodeSnippet
}

// Layout is a parsed theme layout. Concatenating the node values yields the
// original source.
type Layout struct {
	Nodes []Node
}

const headClose = "</head>"

// ParseLayout splits source into text, snippet and head-close nodes
func ParseLayout(source string) *Layout {
	l := &Layout{}

	rest := source
	headSeen := false

	for len(rest) > 0 {
		snip := strings.Index(rest, snippetBeginPrefix)
		head := -1
		if !headSeen {
			head = indexHeadClose(rest)
		}

		switch {
		case snip >= 0 && (head < 0 || snip < head):
			if n, ok := parseSnippet(rest[snip:]); ok {
				l.appendText(rest[:snip])
				l.Nodes = append(l.Nodes, n)
				rest = rest[snip+len(n.Value):]
				continue
			}
			// unterminated marker, keep it as text
			cut := snip + len(snippetBeginPrefix)
			l.appendText(rest[:cut])
			rest = rest[cut:]
		case head >= 0:
			l.appendText(rest[:head])
			l.Nodes = append(l.Nodes, Node{Kind: NodeHeadClose, Value: rest[head : head+len(headClose)]})
			rest = rest[head+len(headClose):]
			headSeen = true
		default:
			l.appendText(rest)
			rest = ""
		}
	}

	return l
}

// indexHeadClose finds the closing head tag ignoring ASCII case
func indexHeadClose(s string) int {
	for i := 0; i+len(headClose) <= len(s); i++ {
		if s[i] == '<' && strings.EqualFold(s[i:i+len(headClose)], headClose) {
			return i
		}
	}
	return -1
}

func parseSnippet(s string) (Node, bool) {
	idEnd := strings.Index(s[len(snippetBeginPrefix):], snippetBeginSuffix)
	if idEnd < 0 {
		return Node{}, false
	}
	end := strings.Index(s, snippetEnd)
	if end < 0 {
		return Node{}, false
	}
	length := end + len(snippetEnd)
	if length < len(s) && s[length] == '\n' {
		length++
	}
	id := html.UnescapeString(s[len(snippetBeginPrefix) : len(snippetBeginPrefix)+idEnd])
	return Node{Kind: NodeSnippet, Value: s[:length], TrackingID: id}, true
}

func (l *Layout) appendText(s string) {
	if s == "" {
		return
	}
	if n := len(l.Nodes); n > 0 && l.Nodes[n-1].Kind == NodeText {
		l.Nodes[n-1].Value += s
		return
	}
	l.Nodes = append(l.Nodes, Node{Kind: NodeText, Value: s})
}

// HasHeadClose reports whether the layout contains a closing head tag
func (l *Layout) HasHeadClose() bool {
	return l.headCloseIndex() >= 0
}

// HasSnippet reports whether a snippet for trackingID is already present
func (l *Layout) HasSnippet(trackingID string) bool {
	for _, n := range l.Nodes {
		if n.Kind == NodeSnippet && n.TrackingID == trackingID {
			return true
		}
	}
	return false
}

// InsertBeforeHeadClose inserts a rendered snippet immediately before the closing
// head tag. It reports false without changing anything when a snippet for the same
// tracking id is already present.
func (l *Layout) InsertBeforeHeadClose(trackingID, snippet string) (bool, error) {
	if l.HasSnippet(trackingID) {
		return false, nil
	}
	idx := l.headCloseIndex()
	if idx < 0 {
		return false, ErrHeadMarkerMissing
	}

	node := Node{Kind: NodeSnippet, Value: snippet, TrackingID: trackingID}
	l.Nodes = append(l.Nodes, Node{})
	copy(l.Nodes[idx+1:], l.Nodes[idx:])
	l.Nodes[idx] = node
	return true, nil
}

// String renders the layout back to source
func (l *Layout) String() string {
	var b strings.Builder
	for _, n := range l.Nodes {
		b.WriteString(n.Value)
	}
	return b.String()
}

func (l *Layout) headCloseIndex() int {
	for i, n := range l.Nodes {
		if n.Kind == NodeHeadClose {
			return i
		}
	}
	return -1
}
