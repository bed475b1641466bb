package model

import "fmt"

// EventKind tells how the job input is derived from an Event.
type EventKind int

const (
	// RawVariant events are passed to the genotyper as they are.
	RawVariant EventKind = iota
	// PrebuiltGraph events carry a nested "graph" object, which is
	// the only part passed to the genotyper.
	PrebuiltGraph
)

func (k EventKind) String() string {
	switch k {
	case RawVariant:
		return "raw"
	case PrebuiltGraph:
		return "graph"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a single input record. The content is opaque to the harness
// except of the graph related keys.
type Event map[string]any

const (
	keyGraph = "graph"
	keyNodes = "nodes"
	keyEdges = "edges"
)

// Kind returns PrebuiltGraph if the event has a graph key.
func (e Event) Kind() EventKind {
	if _, ok := e[keyGraph]; ok {
		return PrebuiltGraph
	}
	return RawVariant
}

// NeedsGraph reports whether the event neither carries a graph nor is a
// graph description on its own.
func (e Event) NeedsGraph() bool {
	if _, ok := e[keyGraph]; ok {
		return false
	}
	_, nodes := e[keyNodes]
	_, edges := e[keyEdges]
	return !nodes && !edges
}

// Name returns a human readable identifier used in logs.
func (e Event) Name() string {
	for _, k := range []string{"ID", "id", "name"} {
		if v, ok := e[k]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	if g, ok := e[keyGraph].(map[string]any); ok {
		if v, ok := g["ID"]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// Payload is the resolved job input.
type Payload struct {
	Kind EventKind
	Data any
}

// Resolve picks the data serialized for the genotyper: the graph for
// PrebuiltGraph events, the event itself otherwise.
func (e Event) Resolve() (Payload, error) {
	if e == nil {
		return Payload{}, ErrMissingPayload
	}
	switch e.Kind() {
	case PrebuiltGraph:
		g := e[keyGraph]
		if g == nil {
			return Payload{}, fmt.Errorf("graph is null: %w", ErrMissingPayload)
		}
		return Payload{Kind: PrebuiltGraph, Data: g}, nil
	default:
		return Payload{Kind: RawVariant, Data: map[string]any(e)}, nil
	}
}
