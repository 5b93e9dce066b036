package graph

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewUnknownDependency(t *testing.T) {
	_, err := New([]string{"a"}, map[string][]string{"a": {"missing"}})
	if err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}

func TestNewUnknownNodeInMap(t *testing.T) {
	_, err := New([]string{"a"}, map[string][]string{"ghost": {"a"}})
	if err == nil {
		t.Fatal("expected error for unknown node in dependency map")
	}
}

func TestNewDuplicateNode(t *testing.T) {
	_, err := New([]string{"a", "a"}, nil)
	if err == nil {
		t.Fatal("expected error for duplicate node")
	}
}

func TestResolveOrderDiamond(t *testing.T) {
	// D depends on B and C, which both depend on A.
	g, err := New([]string{"D", "B", "C", "A"}, map[string][]string{
		"D": {"B", "C"},
		"B": {"A"},
		"C": {"A"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, err := g.ResolveOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	if pos["A"] > pos["B"] || pos["A"] > pos["C"] {
		t.Errorf("A must come before B and C: %v", order)
	}
	if pos["B"] > pos["D"] || pos["C"] > pos["D"] {
		t.Errorf("B and C must come before D: %v", order)
	}
	// Ties within a layer keep input order: B appears before C.
	if pos["B"] > pos["C"] {
		t.Errorf("expected B before C (input order tie-break): %v", order)
	}
}

func TestResolveOrderDeterministic(t *testing.T) {
	g, err := New([]string{"t3", "t1", "t2"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := g.ResolveOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"t3", "t1", "t2"}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("expected input order %v, got %v", want, first)
	}

	for i := 0; i < 10; i++ {
		again, err := g.ResolveOrder()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("order not deterministic: %v vs %v", first, again)
		}
	}
}

func TestResolveOrderCycle(t *testing.T) {
	g, err := New([]string{"A", "B"}, map[string][]string{
		"A": {"B"},
		"B": {"A"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = g.ResolveOrder()
	if err == nil {
		t.Fatal("expected cycle error")
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if len(cycleErr.Unresolved) != 2 {
		t.Errorf("expected 2 unresolved nodes, got %v", cycleErr.Unresolved)
	}
}

func TestResolveOrderPartialCycle(t *testing.T) {
	// "a" is fine; b and c form a cycle.
	g, err := New([]string{"a", "b", "c"}, map[string][]string{
		"b": {"c"},
		"c": {"b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = g.ResolveOrder()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	want := []string{"b", "c"}
	if !reflect.DeepEqual(cycleErr.Unresolved, want) {
		t.Errorf("expected unresolved %v, got %v", want, cycleErr.Unresolved)
	}
}

func TestLayers(t *testing.T) {
	g, err := New([]string{"fetch", "transform", "publish", "audit"}, map[string][]string{
		"transform": {"fetch"},
		"publish":   {"transform"},
		"audit":     {"fetch"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	layers, err := g.Layers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]string{
		{"fetch"},
		{"transform", "audit"},
		{"publish"},
	}
	if !reflect.DeepEqual(layers, want) {
		t.Errorf("expected layers %v, got %v", want, layers)
	}
}

func TestDependents(t *testing.T) {
	g, err := New([]string{"a", "b", "c"}, map[string][]string{
		"b": {"a"},
		"c": {"a"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deps := g.Dependents("a")
	want := []string{"b", "c"}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("expected dependents %v, got %v", want, deps)
	}
	if got := g.Dependents("c"); got != nil {
		t.Errorf("expected no dependents for c, got %v", got)
	}
}

func TestCanExecute(t *testing.T) {
	available := map[string]bool{"a": true, "b": true}

	ok, missing := CanExecute([]string{"a", "b"}, available)
	if !ok || missing != nil {
		t.Errorf("expected all inputs available, got ok=%v missing=%v", ok, missing)
	}

	ok, missing = CanExecute([]string{"c", "a", "d"}, available)
	if ok {
		t.Error("expected missing inputs")
	}
	want := []string{"c", "d"}
	if !reflect.DeepEqual(missing, want) {
		t.Errorf("expected missing %v, got %v", want, missing)
	}
}
