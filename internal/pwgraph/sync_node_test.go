package pwgraph

import "testing"

func TestSynchronizeNodeWaitsForRealID(t *testing.T) {
	calls := 0
	id, ok := SynchronizeNode(func() uint32 {
		calls++
		if calls < 3 {
			return InvalidNodeID
		}
		return 42
	}, func() {})

	if !ok || id != 42 {
		t.Fatalf("expected (42, true), got (%d, %v)", id, ok)
	}
	if calls != 3 {
		t.Fatalf("expected 3 polls, got %d", calls)
	}
}

func TestSynchronizeNodeBoundedExhaustion(t *testing.T) {
	pumps := 0
	id, ok := SynchronizeNode(func() uint32 { return InvalidNodeID }, func() { pumps++ })

	if ok || id != InvalidNodeID {
		t.Fatalf("expected exhaustion to report (InvalidNodeID, false), got (%d, %v)", id, ok)
	}
	if pumps != MaxSyncIterations {
		t.Fatalf("expected exactly %d pumps, got %d", MaxSyncIterations, pumps)
	}
}

func TestSynchronizePortsWaitsForExpectedTopology(t *testing.T) {
	g := NewGraph()
	const nodeID = uint32(7)

	iter := 0
	pump := func() {
		iter++
		if iter == 2 {
			g.RegisterPort(PortInfo{ID: 1, Format: "8 bit raw midi", NodeID: nodeID, PortID: 0, Direction: Out})
		}
	}

	ok := SynchronizePorts(g, nodeID, 0, 1, pump)
	if !ok {
		t.Fatal("expected SynchronizePorts to report true once the port registers")
	}
}

func TestSynchronizePortsBoundedExhaustion(t *testing.T) {
	g := NewGraph()
	pumps := 0
	ok := SynchronizePorts(g, 99, 0, 1, func() { pumps++ })

	if ok {
		t.Fatal("expected exhaustion when topology never matches")
	}
	if pumps != MaxSyncIterations {
		t.Fatalf("expected exactly %d pumps, got %d", MaxSyncIterations, pumps)
	}
}
