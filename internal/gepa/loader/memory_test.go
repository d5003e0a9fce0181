package loader

import "testing"

func TestInMemory_AllIDsAreDenseIndices(t *testing.T) {
	l := NewInMemory([]string{"a", "b", "c"})
	ids := l.AllIDs()

	want := []int{0, 1, 2}
	for i, w := range want {
		if ids[i] != w {
			t.Errorf("index %d: expected %d, got %d", i, w, ids[i])
		}
	}
}

func TestInMemory_Fetch(t *testing.T) {
	l := NewInMemory([]string{"a", "b", "c"})
	got, err := l.Fetch([]int{2, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != "c" || got[1] != "a" {
		t.Errorf("expected [c a], got %v", got)
	}
}

func TestInMemory_FetchOutOfRange(t *testing.T) {
	l := NewInMemory([]string{"a"})
	if _, err := l.Fetch([]int{5}); err == nil {
		t.Error("expected error fetching an out-of-range id")
	}
}

func TestInMemory_Len(t *testing.T) {
	l := NewInMemory([]string{"a", "b"})
	if l.Len() != 2 {
		t.Errorf("expected length 2, got %d", l.Len())
	}
}

func TestInMemory_ConstructorClonesInput(t *testing.T) {
	items := []string{"a", "b"}
	l := NewInMemory(items)
	items[0] = "mutated"

	got, err := l.Fetch([]int{0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != "a" {
		t.Error("NewInMemory must copy its input slice, not alias it")
	}
}
