package chart

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/matzehuels/statelayout/pkg/digraph"
	"github.com/matzehuels/statelayout/pkg/errors"
)

// Metadata keys written by [Build].
const (
	MetaType    = "type"    // node: state type, when declared
	MetaInitial = "initial" // node: true on the initial child of its parent
	MetaEvent   = "event"   // edge: triggering event, empty for event-less transitions
	MetaGuard   = "guard"   // edge: guard condition name
	MetaActions = "actions" // edge: []string of transition actions
)

// ErrUnknownTarget is wrapped by [Build] when a transition target cannot be
// resolved to a state.
var ErrUnknownTarget = stderrors.New("unknown transition target")

// Build converts a validated definition into a graph. States become nodes with
// dotted path IDs; transitions become edges owned by their source state.
func Build(def *Definition) (*digraph.Graph, error) {
	g, err := digraph.New(stateNode(def, def.ID))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDefinition, err, "root state")
	}
	if err := addStates(g, def, def.ID); err != nil {
		return nil, err
	}

	r := resolver{g: g, root: def.ID}
	if err := addTransitions(g, &r, def, def.ID); err != nil {
		return nil, err
	}
	return g, nil
}

func stateNode(d *Definition, path string) digraph.Node {
	n := digraph.Node{ID: path, Label: d.Label, Meta: digraph.Metadata{}}
	if d.Label == "" {
		n.Label = d.ID
	}
	if d.Type != "" {
		n.Meta[MetaType] = d.Type
	}
	var details []string
	for _, a := range d.Entry {
		details = append(details, "entry / "+a)
	}
	for _, a := range d.Exit {
		details = append(details, "exit / "+a)
	}
	if len(details) > 0 {
		n.Meta[digraph.MetaDetails] = details
	}
	return n
}

func addStates(g *digraph.Graph, d *Definition, path string) error {
	for i := range d.States {
		child := &d.States[i]
		childPath := path + "." + child.ID
		n := stateNode(child, childPath)
		if child.ID == d.Initial {
			n.Meta[MetaInitial] = true
		}
		if err := g.AddNode(path, n); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidDefinition, err, "state %s", childPath)
		}
		if err := addStates(g, child, childPath); err != nil {
			return err
		}
	}
	return nil
}

func addTransitions(g *digraph.Graph, r *resolver, d *Definition, path string) error {
	for i, t := range d.On {
		target, err := r.resolve(path, t.Target)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidDefinition, err, "%s: transition %d", path, i)
		}
		e := digraph.Edge{
			ID:     fmt.Sprintf("%s:%s:%d", path, t.Event, i),
			Source: path,
			Target: target,
			Owner:  path,
			Label:  transitionLabel(t),
			Meta:   digraph.Metadata{MetaEvent: t.Event},
		}
		if t.Guard != "" {
			e.Meta[MetaGuard] = t.Guard
		}
		if len(t.Actions) > 0 {
			e.Meta[MetaActions] = t.Actions
		}
		if err := g.AddEdge(e); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidDefinition, err, "transition %s", e.ID)
		}
	}
	for i := range d.States {
		if err := addTransitions(g, r, &d.States[i], path+"."+d.States[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// transitionLabel renders "EVENT [guard]". Event-less transitions without a
// guard stay unlabeled so layout can apply its default label.
func transitionLabel(t Transition) string {
	switch {
	case t.Guard == "":
		return t.Event
	case t.Event == "":
		return "[" + t.Guard + "]"
	default:
		return t.Event + " [" + t.Guard + "]"
	}
}

type resolver struct {
	g    *digraph.Graph
	root string
}

func (r *resolver) resolve(source, target string) (string, error) {
	if target == "" {
		return source, nil
	}

	var candidates []string
	switch {
	case strings.HasPrefix(target, "#"):
		abs := strings.TrimPrefix(target, "#")
		candidates = []string{abs, r.root + "." + abs}
	case strings.HasPrefix(target, "."):
		candidates = []string{source + target}
	default:
		if parent, ok := r.g.Parent(source); ok {
			candidates = append(candidates, parent.ID+"."+target)
		}
		candidates = append(candidates, target, r.root+"."+target)
	}

	for _, c := range candidates {
		if _, ok := r.g.Node(c); ok {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownTarget, target)
}
