package port

import "testing"

func TestEqual(t *testing.T) {
	a := Descriptor{Client: 1, Port: 2, PortName: "out-1"}
	b := Descriptor{Client: 1, Port: 2, PortName: "out-1", DisplayName: "different"}
	c := Descriptor{Client: 1, Port: 3, PortName: "out-1"}

	if !a.Equal(b) {
		t.Errorf("expected descriptors with the same (client, port, name) to be equal")
	}
	if a.Equal(c) {
		t.Errorf("expected descriptors with different port ids to differ")
	}
}

func TestFind(t *testing.T) {
	ports := []Descriptor{
		{Client: 1, Port: 1, PortName: "a", DisplayName: "A"},
		{Client: 1, Port: 2, PortName: "b", DisplayName: "B"},
	}

	idx := Find(ports, Descriptor{Client: 1, Port: 2, PortName: "b"})
	if idx != 1 {
		t.Fatalf("Find() = %d, want 1", idx)
	}

	idx = Find(ports, Descriptor{Client: 1, Port: 9, PortName: "missing"})
	if idx != -1 {
		t.Fatalf("Find() = %d, want -1 for unknown port", idx)
	}

	// Tie-break on display name when the exact port name doesn't match.
	idx = Find(ports, Descriptor{Client: 1, Port: 2, PortName: "renamed", DisplayName: "B"})
	if idx != 1 {
		t.Fatalf("Find() = %d, want 1 via display-name tie-break", idx)
	}
}
