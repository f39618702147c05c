package lod_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Faultbox/meshlod/pkg/lod"
)

func TestGraph_Links(t *testing.T) {
	g := lod.NewGraph()
	a := g.AddNode(lod.Node{Error: 0})
	b := g.AddNode(lod.Node{Error: 0})
	p := g.AddNode(lod.Node{Error: 1, Level: 1})
	g.Link(p, a)
	g.Link(p, b)

	if got := g.Children(p); !reflect.DeepEqual(got, []lod.NodeID{a, b}) {
		t.Errorf("Children = %v", got)
	}
	if got := g.Parents(a); !reflect.DeepEqual(got, []lod.NodeID{p}) {
		t.Errorf("Parents = %v", got)
	}
	if got := g.Roots(); !reflect.DeepEqual(got, []lod.NodeID{p}) {
		t.Errorf("Roots = %v", got)
	}
	if got := g.Children(99); got != nil {
		t.Errorf("Children of unknown node = %v", got)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestGraph_Validate(t *testing.T) {
	tests := []struct {
		name    string
		graph   *lod.Graph
		wantErr error
	}{
		{
			name:  "empty",
			graph: &lod.Graph{},
		},
		{
			name: "equal error is allowed",
			graph: &lod.Graph{
				Nodes: []lod.Node{{Error: 1}, {Error: 1, Level: 1}},
				Edges: []lod.Edge{{Parent: 1, Child: 0}},
			},
		},
		{
			name: "decreasing error",
			graph: &lod.Graph{
				Nodes: []lod.Node{{Error: 2}, {Error: 1, Level: 1}},
				Edges: []lod.Edge{{Parent: 1, Child: 0}},
			},
			wantErr: lod.ErrNonMonotonic,
		},
		{
			name: "cycle",
			graph: &lod.Graph{
				Nodes: []lod.Node{{Error: 1}, {Error: 1}, {Error: 1}},
				Edges: []lod.Edge{{Parent: 0, Child: 1}, {Parent: 1, Child: 2}, {Parent: 2, Child: 0}},
			},
			wantErr: lod.ErrCyclicGraph,
		},
		{
			name: "self loop",
			graph: &lod.Graph{
				Nodes: []lod.Node{{}},
				Edges: []lod.Edge{{Parent: 0, Child: 0}},
			},
			wantErr: lod.ErrInvalidEdge,
		},
		{
			name: "unknown node",
			graph: &lod.Graph{
				Nodes: []lod.Node{{}},
				Edges: []lod.Edge{{Parent: 3, Child: 0}},
			},
			wantErr: lod.ErrInvalidEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.graph.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
