package view

import (
	"sort"
	"sync"
)

// OpKind enumerates the operations a mapping client must support.
type OpKind string

const (
	OpAdd           OpKind = "add"
	OpMove          OpKind = "move"
	OpRemove        OpKind = "remove"
	OpSetVisibility OpKind = "set-visibility"
)

// Op is one instruction for the mapping client. Marker is populated for add
// and move; Visible is meaningful only for set-visibility.
type Op struct {
	Kind    OpKind `json:"kind"`
	ID      string `json:"id"`
	Marker  Marker `json:"marker,omitempty"`
	Visible bool   `json:"visible,omitempty"`
}

// Reconciler tracks the marker set a client has rendered and diffs desired
// states against it. Markers survive visibility toggles; only Apply removes
// them.
type Reconciler struct {
	mu       sync.Mutex
	rendered map[string]Marker
	visible  bool
}

// NewReconciler starts with an empty rendered set, markers visible.
func NewReconciler() *Reconciler {
	return &Reconciler{rendered: make(map[string]Marker), visible: true}
}

// Apply diffs the desired marker set against what is rendered and returns
// the minimal op sequence to converge, ordered by marker ID so repeated
// reconciles of the same state are byte-identical. Unchanged markers emit
// nothing.
func (r *Reconciler) Apply(desired []Marker) []Op {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]Marker, len(desired))
	for _, m := range desired {
		want[m.ID] = m
	}

	var ops []Op
	for id, m := range want {
		prev, ok := r.rendered[id]
		switch {
		case !ok:
			ops = append(ops, Op{Kind: OpAdd, ID: id, Marker: m})
		case prev != m:
			ops = append(ops, Op{Kind: OpMove, ID: id, Marker: m})
		}
	}
	for id := range r.rendered {
		if _, ok := want[id]; !ok {
			ops = append(ops, Op{Kind: OpRemove, ID: id})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].ID != ops[j].ID {
			return ops[i].ID < ops[j].ID
		}
		return ops[i].Kind < ops[j].Kind
	})

	r.rendered = want
	return ops
}

// SetVisible toggles visibility of every rendered marker without touching
// the rendered set. Repeating the current state emits no ops.
func (r *Reconciler) SetVisible(visible bool) []Op {
	r.mu.Lock()
	defer r.mu.Unlock()

	if visible == r.visible {
		return nil
	}
	r.visible = visible

	ids := make([]string, 0, len(r.rendered))
	for id := range r.rendered {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ops := make([]Op, len(ids))
	for i, id := range ids {
		ops[i] = Op{Kind: OpSetVisibility, ID: id, Visible: visible}
	}
	return ops
}

// Visible reports whether markers are currently shown.
func (r *Reconciler) Visible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible
}

// Rendered returns the number of markers the client currently holds.
func (r *Reconciler) Rendered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rendered)
}
