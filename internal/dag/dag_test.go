// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New()
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_SingleNode(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("gpx-stdlib")
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"gpx-stdlib"}) {
		t.Errorf("expected [gpx-stdlib], got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	// stdlib installs first, then math, then physics.
	g.AddEdge("gpx-stdlib", "gpx-math")
	g.AddEdge("gpx-math", "gpx-physics")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"gpx-stdlib", "gpx-math", "gpx-physics"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	// Two packages share a base dependency and feed a common consumer.
	g.AddEdge("gpx-stdlib", "gpx-math")
	g.AddEdge("gpx-stdlib", "gpx-strings")
	g.AddEdge("gpx-math", "gpx-physics")
	g.AddEdge("gpx-strings", "gpx-physics")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order[0] != "gpx-stdlib" {
		t.Errorf("expected gpx-stdlib first, got %v", order)
	}
	if order[len(order)-1] != "gpx-physics" {
		t.Errorf("expected gpx-physics last, got %v", order)
	}
	if len(order) != 4 {
		t.Errorf("expected 4 nodes, got %d: %v", len(order), order)
	}
}

func TestTopologicalSort_SimpleCycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("gpx-a", "gpx-b")
	g.AddEdge("gpx-b", "gpx-a")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	if len(cycleErr.Cycle) < 2 {
		t.Errorf("expected at least 2 nodes in cycle, got %v", cycleErr.Cycle)
	}
}

func TestTopologicalSort_SelfLoop(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("gpx-a", "gpx-a")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
}

func TestTopologicalSort_ComplexCycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("gpx-a", "gpx-b")
	g.AddEdge("gpx-b", "gpx-c")
	g.AddEdge("gpx-c", "gpx-a")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	if len(cycleErr.Cycle) < 3 {
		t.Errorf("expected at least 3 nodes in cycle, got %v", cycleErr.Cycle)
	}
}

func TestTopologicalSort_DisconnectedComponents(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("gpx-stdlib", "gpx-math")
	g.AddNode("gpx-colors")
	g.AddNode("gpx-audio")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Errorf("expected 4 nodes, got %d: %v", len(order), order)
	}
	aIdx := slices.Index(order, "gpx-stdlib")
	bIdx := slices.Index(order, "gpx-math")
	if aIdx >= bIdx {
		t.Errorf("gpx-stdlib (idx %d) must come before gpx-math (idx %d) in %v", aIdx, bIdx, order)
	}
}

func TestTopologicalSort_DuplicateEdges(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("gpx-stdlib", "gpx-math")
	g.AddEdge("gpx-stdlib", "gpx-math") // duplicate

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Duplicates just increase in-degree; Kahn's handles it.
	if !slices.Equal(order, []string{"gpx-stdlib", "gpx-math"}) {
		t.Errorf("expected [gpx-stdlib, gpx-math], got %v", order)
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"gpx-a", "gpx-b", "gpx-c"}}
	expected := "dependency cycle detected: gpx-a -> gpx-b -> gpx-c"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
