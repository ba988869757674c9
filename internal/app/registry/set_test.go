package registry

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOrderedSet_InsertRejectsDuplicates(t *testing.T) {
	s := NewOrderedSet[string]()
	if !s.Insert("alice") {
		t.Fatal("first Insert(alice) = false")
	}
	if s.Insert("alice") {
		t.Error("second Insert(alice) = true, want false")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestOrderedSet_SwapRemove(t *testing.T) {
	s := NewOrderedSet("a", "b", "c", "d")

	if !s.Remove("b") {
		t.Fatal("Remove(b) = false")
	}
	// Last element moves into the freed slot.
	if diff := cmp.Diff([]string{"a", "d", "c"}, s.Items()); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if s.Contains("b") {
		t.Error("Contains(b) after remove")
	}
	if !s.Consistent() {
		t.Error("set inconsistent after remove")
	}
}

func TestOrderedSet_RemoveLastAndMissing(t *testing.T) {
	s := NewOrderedSet(1, 2, 3)
	s.Remove(3)
	if s.Remove(3) {
		t.Error("Remove(3) twice = true")
	}
	if diff := cmp.Diff([]int{1, 2}, s.Items()); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderedSet_Clear(t *testing.T) {
	s := NewOrderedSet("x", "y")
	s.Clear()
	if s.Len() != 0 || s.Contains("x") {
		t.Error("Clear() left elements behind")
	}
	if !s.Consistent() {
		t.Error("set inconsistent after clear")
	}
	s.Insert("x")
	if s.At(0) != "x" {
		t.Errorf("At(0) = %q after re-insert", s.At(0))
	}
}

func TestOrderedSet_CloneIsIndependent(t *testing.T) {
	s := NewOrderedSet("a", "b")
	c := s.Clone()
	c.Remove("a")
	c.Insert("z")

	if diff := cmp.Diff([]string{"a", "b"}, s.Items()); diff != "" {
		t.Errorf("original mutated by clone (-want +got):\n%s", diff)
	}
}

func TestOrderedSet_ConsistentUnderChurn(t *testing.T) {
	s := NewOrderedSet[int]()
	for i := 0; i < 100; i++ {
		s.Insert(i)
	}
	for i := 0; i < 100; i += 3 {
		s.Remove(i)
	}
	for i := 0; i < 100; i += 7 {
		s.Insert(i)
	}
	if !s.Consistent() {
		t.Fatal("set inconsistent after churn")
	}
	for _, v := range s.Items() {
		if !s.Contains(v) {
			t.Errorf("item %d not in index", v)
		}
	}
}
