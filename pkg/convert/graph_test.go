// SPDX-License-Identifier: MPL-2.0
//
// Adapted from the internal/dag package of github.com/invowk/invowk.

package convert

import (
	"errors"
	"slices"
	"testing"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	order, err := NewGraph().TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	// J -> N -> g: each unit precedes the units it is defined by
	g.AddEdge("J", "N")
	g.AddEdge("N", "g")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"J", "N", "g"}; !slices.Equal(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestTopologicalSort_InsertionOrderTieBreak(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	g.AddNode("s")
	g.AddNode("m")
	g.AddEdge("W", "J")
	g.AddEdge("J", "m")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"s", "W", "J", "m"}; !slices.Equal(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edges [][2]string
		want  []string
	}{
		{"two nodes", [][2]string{{"A", "B"}, {"B", "A"}}, []string{"A", "B", "A"}},
		{"self loop", [][2]string{{"A", "A"}}, []string{"A", "A"}},
		{"three nodes", [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}}, []string{"A", "B", "C", "A"}},
		{"downstream node", [][2]string{{"X", "A"}, {"A", "B"}, {"B", "A"}, {"B", "C"}}, []string{"A", "B", "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewGraph()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			_, err := g.TopologicalSort()
			var domainErr *types.Error
			if !errors.As(err, &domainErr) {
				t.Fatalf("expected *types.Error, got %v", err)
			}
			if domainErr.Kind != types.KindRegistry {
				t.Errorf("kind = %s, want RegistryError", domainErr.Kind)
			}
			if !slices.Equal(domainErr.Cycle, tt.want) {
				t.Errorf("cycle = %v, want %v", domainErr.Cycle, tt.want)
			}
		})
	}
}

func TestDependencyGraphStripsPrefixes(t *testing.T) {
	t.Parallel()
	reg := testRegistry()
	order, err := reg.dependencyGraph([]string{"L"}).TopologicalSort()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"L", "m"}; !slices.Equal(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}
