package render

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/flashcardexchange/flashcards/internal/logger"
)

// ErrUnknownAction is returned by Dispatch for an action id no painted
// fragment carries, typically one from a repaint the caller has not seen yet.
var ErrUnknownAction = errors.New("unknown action")

// Patch describes what a Replace changed, by fragment key.
type Patch struct {
	Added   []string
	Changed []string
	Removed []string
	Gen     uint64
}

// Empty reports whether the repaint left the region as it was.
func (p Patch) Empty() bool {
	return len(p.Added) == 0 && len(p.Changed) == 0 && len(p.Removed) == 0
}

type entry struct {
	frag     *Fragment
	dropdown *Dropdown
	html     string
}

// Region is one paint target. Every Replace overwrites its whole content,
// reconciling by key so that a fragment that survives a repaint keeps its
// dropdown state. Replaces carrying an older generation than the last one
// applied are ignored, so the region always shows the latest data.
//
// A Region has a single outside-click handler (the capture step of Dispatch
// and ClickOutside) no matter how often it is repainted.
type Region struct {
	name   string
	logger *slog.Logger

	mu      sync.Mutex
	gen     uint64
	order   []string
	entries map[string]*entry
}

// NewRegion creates an empty region.
func NewRegion(name string, log *slog.Logger) *Region {
	return &Region{
		name:    name,
		logger:  logger.OrDiscard(log),
		entries: make(map[string]*entry),
	}
}

// Name returns the region's name.
func (r *Region) Name() string {
	return r.name
}

// Gen returns the generation of the content currently painted.
func (r *Region) Gen() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// Replace paints frags as the region's entire content. It reports false and
// changes nothing when gen is older than the painted generation. Fragments
// with a key already painted earlier in frags are dropped.
func (r *Region) Replace(gen uint64, frags []*Fragment) (Patch, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen < r.gen {
		staleRepaints.WithLabelValues(r.name).Inc()
		r.logger.Debug("ignoring stale repaint", "region", r.name, "gen", gen, "painted", r.gen)
		return Patch{Gen: r.gen}, false
	}

	patch := Patch{Gen: gen}
	order := make([]string, 0, len(frags))
	entries := make(map[string]*entry, len(frags))

	for _, f := range frags {
		if _, dup := entries[f.Key]; dup {
			continue
		}
		e := &entry{frag: f, html: f.HTML()}
		if prev, ok := r.entries[f.Key]; ok {
			e.dropdown = prev.dropdown
			if prev.html != e.html || !slices.Equal(prev.frag.ActionIDs(), f.ActionIDs()) {
				patch.Changed = append(patch.Changed, f.Key)
			}
		} else {
			patch.Added = append(patch.Added, f.Key)
		}
		if f.Menu == "" {
			e.dropdown = nil
		} else if e.dropdown == nil {
			e.dropdown = &Dropdown{}
		}
		entries[f.Key] = e
		order = append(order, f.Key)
	}

	for _, key := range r.order {
		if _, ok := entries[key]; !ok {
			patch.Removed = append(patch.Removed, key)
		}
	}

	r.gen, r.order, r.entries = gen, order, entries
	repaints.WithLabelValues(r.name).Inc()
	return patch, true
}

// Keys returns the painted fragment keys in paint order.
func (r *Region) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Len returns the number of painted fragments.
func (r *Region) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Fragment returns the painted fragment under key.
func (r *Region) Fragment(key string) (*Fragment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.frag, true
}

// DropdownState returns the state of the dropdown in the fragment under key.
func (r *Region) DropdownState(key string) (DropdownState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok || e.dropdown == nil {
		return Closed, false
	}
	return e.dropdown.State(), true
}

// Dispatch handles a click on actionID. Open dropdowns of other fragments are
// closed first. A menu action toggles its own dropdown; any other action
// closes it and runs the bound handler outside the region lock.
func (r *Region) Dispatch(ctx context.Context, actionID string, form map[string]string) error {
	r.mu.Lock()
	target, h, isMenu := r.lookupLocked(actionID)
	if target == nil {
		r.closeAllLocked("")
		r.mu.Unlock()
		return ErrUnknownAction
	}
	r.closeAllLocked(target.frag.Key)

	if isMenu {
		target.dropdown.Toggle()
		r.mu.Unlock()
		return nil
	}
	if target.dropdown != nil {
		target.dropdown.Close()
	}
	r.mu.Unlock()

	return h(ctx, form)
}

// ClickOutside handles a click that landed on no fragment of the region.
func (r *Region) ClickOutside() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeAllLocked("")
}

func (r *Region) lookupLocked(actionID string) (*entry, Handler, bool) {
	for _, key := range r.order {
		e := r.entries[key]
		if e.frag.Menu != "" && e.frag.Menu == actionID {
			return e, nil, true
		}
		if h, ok := e.frag.Handlers[actionID]; ok {
			return e, h, false
		}
	}
	return nil, nil, false
}

// closeAllLocked closes every open dropdown except the one in fragment keep.
func (r *Region) closeAllLocked(keep string) {
	for key, e := range r.entries {
		if key != keep && e.dropdown != nil {
			e.dropdown.Close()
		}
	}
}

// HTML renders the region with its fragments in paint order and each
// dropdown in its current state.
func (r *Region) HTML() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	section := el(atom.Section, attrs(
		"id", r.name,
		"data-region", r.name,
		"data-gen", strconv.FormatUint(r.gen, 10),
	))
	var sb strings.Builder
	sb.WriteString(openTag(section))
	for _, key := range r.order {
		e := r.entries[key]
		if e.dropdown != nil {
			applyDropdownState(e.frag.Node, key, e.dropdown.State())
		}
		_ = html.Render(&sb, e.frag.Node)
	}
	sb.WriteString("</section>")
	return sb.String()
}

func applyDropdownState(n *html.Node, key string, state DropdownState) {
	if n.Type == html.ElementNode {
		if v, ok := getAttr(n, dropdownAttr); ok && v == key {
			setAttr(n, stateAttr, string(state))
			return
		}
	}
	for c := range n.ChildNodes() {
		applyDropdownState(c, key, state)
	}
}

// openTag renders the start tag of an empty element.
func openTag(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	s := sb.String()
	return strings.TrimSuffix(s, "</"+n.Data+">")
}
