package gale

import "testing"

func TestHeaderAppendCoalesces(t *testing.T) {
	var h Header
	h.Append("X-Trace", "a")
	h.Append("x-trace", "b")

	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (case-insensitive coalesce)", h.Len())
	}
	vs := h.Get("X-TRACE")
	if len(vs) != 2 || vs[0] != "a" || vs[1] != "b" {
		t.Fatalf("Get(X-TRACE) = %v, want [a b]", vs)
	}
}

func TestHeaderPreservesFirstSeenCasing(t *testing.T) {
	var h Header
	h.Append("Content-Type", "text/plain")
	h.Set("content-type", "text/html")

	var gotName string
	h.VisitAll(func(name, value string) {
		gotName = name
	})
	if gotName != "Content-Type" {
		t.Fatalf("name casing = %q, want %q", gotName, "Content-Type")
	}
	if got := h.GetFirst("CONTENT-TYPE"); got != "text/html" {
		t.Fatalf("GetFirst = %q, want %q", got, "text/html")
	}
}

func TestHeaderSetReplaces(t *testing.T) {
	var h Header
	h.Append("Accept", "a")
	h.Append("Accept", "b")
	h.Set("Accept", "c")

	vs := h.Get("Accept")
	if len(vs) != 1 || vs[0] != "c" {
		t.Fatalf("Get(Accept) = %v, want [c]", vs)
	}
}

func TestHeaderRemove(t *testing.T) {
	var h Header
	h.Append("X-A", "1")
	h.Append("X-B", "2")
	h.Remove("x-a")

	if h.Contains("X-A") {
		t.Fatal("X-A should be removed")
	}
	if !h.Contains("X-B") {
		t.Fatal("X-B should remain")
	}
}

func TestHeaderGetAbsentIsEmpty(t *testing.T) {
	var h Header
	if vs := h.Get("Missing"); len(vs) != 0 {
		t.Fatalf("Get(Missing) = %v, want empty", vs)
	}
}

func TestHeaderInsertionOrderPreserved(t *testing.T) {
	var h Header
	h.Append("Z", "1")
	h.Append("A", "2")
	h.Append("M", "3")

	var order []string
	h.VisitAll(func(name, value string) {
		order = append(order, name)
	})
	want := []string{"Z", "A", "M"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestHeaderClone(t *testing.T) {
	var h Header
	h.Append("X-A", "1")
	clone := h.Clone()
	clone.Append("X-A", "2")

	if len(h.Get("X-A")) != 1 {
		t.Fatalf("mutating clone must not affect original, got %v", h.Get("X-A"))
	}
}
