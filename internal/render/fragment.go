// Package render projects mirrored entities into HTML fragments whose
// interactive elements carry data-action ids bound to Go handlers, and keeps
// the painted regions those fragments live in.
package render

import (
	"context"
	"maps"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Handler runs one wired interaction. form carries the values of the form the
// gesture submitted, if any.
type Handler func(ctx context.Context, form map[string]string) error

// Fragment is one rendered entity: a node tree plus the handlers its
// data-action attributes refer to. Action ids are derived from the entity id,
// so rendering the same inputs twice yields the same handler set.
type Fragment struct {
	Node     *html.Node
	Handlers map[string]Handler
	Key      string
	// Menu is the action id that opens and closes the fragment's dropdown,
	// or "" when it has none.
	Menu string
}

func newFragment(key string) *Fragment {
	return &Fragment{Key: key, Handlers: make(map[string]Handler)}
}

// ActionID returns the id of verb on the entity rendered under key.
func ActionID(key, verb string) string {
	return key + "/" + verb
}

// ActionIDs returns the fragment's action ids, sorted.
func (f *Fragment) ActionIDs() []string {
	ids := slices.Sorted(maps.Keys(f.Handlers))
	if f.Menu != "" {
		ids = append(ids, f.Menu)
		slices.Sort(ids)
	}
	return ids
}

// HTML renders the fragment.
func (f *Fragment) HTML() string {
	var sb strings.Builder
	_ = html.Render(&sb, f.Node)
	return sb.String()
}

// bind registers h under verb and returns the data-action attribute pointing at it.
func (f *Fragment) bind(verb string, h Handler) html.Attribute {
	id := ActionID(f.Key, verb)
	f.Handlers[id] = h
	return html.Attribute{Key: "data-action", Val: id}
}

// button renders a bound button.
func (f *Fragment) button(class, label, verb string, h Handler) *html.Node {
	return el(atom.Button, append(attrs("class", class, "type", "button"), f.bind(verb, h)), text(label))
}

// dropdown renders the "⋮" menu holding items. Its open state is applied by
// the region when the fragment is painted.
func (f *Fragment) dropdown(items ...*html.Node) *html.Node {
	f.Menu = ActionID(f.Key, "menu")
	return el(atom.Div, attrs("class", "menu", dropdownAttr, f.Key, stateAttr, string(Closed)),
		el(atom.Button, attrs("class", "menu-btn", "type", "button", "data-action", f.Menu), text("⋮")),
		el(atom.Div, attrs("class", "menu-dropdown"), items...),
	)
}

const (
	dropdownAttr = "data-dropdown"
	stateAttr    = "data-state"
)

// el builds an element. nil children are skipped so optional parts can be
// written inline.
func el(tag atom.Atom, attr []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: tag, Data: tag.String(), Attr: attr}
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// attrs builds attributes from key/value pairs.
func attrs(kv ...string) []html.Attribute {
	out := make([]html.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return out
}

func classes(base string, extra ...string) string {
	var sb strings.Builder
	sb.WriteString(base)
	for _, e := range extra {
		if e != "" {
			sb.WriteByte(' ')
			sb.WriteString(e)
		}
	}
	return sb.String()
}

// when returns class if cond holds.
func when(cond bool, class string) string {
	if cond {
		return class
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
