package pwgraph

import "testing"

// TestScenarioS5DynamicGraph: register a physical midi output port on
// node 42, observe it present, remove it, observe it absent (§8 S5).
func TestScenarioS5DynamicGraph(t *testing.T) {
	g := NewGraph()

	port := PortInfo{
		ID:        7,
		Format:    "midi",
		Name:      "playback_1",
		NodeID:    42,
		Direction: Out,
		Physical:  true,
	}
	if ok := g.RegisterPort(port); !ok {
		t.Fatal("expected physical midi port to classify successfully")
	}

	entry, present := g.Node(PhysicalMIDI, 42)
	if !present {
		t.Fatal("expected node 42 present in the physical-midi map")
	}
	if len(entry.Outputs) != 1 || entry.Outputs[0].ID != 7 {
		t.Fatalf("expected port 7 in node 42's outputs, got %+v", entry.Outputs)
	}
	if !g.Has(7) {
		t.Fatal("expected Has(7) true after registration")
	}

	if ok := g.RemovePort(7); !ok {
		t.Fatal("expected RemovePort to report the port was present")
	}
	if g.Has(7) {
		t.Fatal("expected Has(7) false after removal")
	}
	if _, present := g.Node(PhysicalMIDI, 42); present {
		t.Fatal("expected node 42 gone from the physical-midi map once its only port is removed")
	}
}

// TestClassification covers all four categories plus the ignored case
// (format neither audio nor midi, e.g. a future video port).
func TestClassification(t *testing.T) {
	cases := []struct {
		name     string
		info     PortInfo
		wantCat  Category
		wantOK   bool
	}{
		{"physical audio", PortInfo{Format: "audio/raw", Physical: true}, PhysicalAudio, true},
		{"physical midi", PortInfo{Format: "8 bit raw midi", Physical: true}, PhysicalMIDI, true},
		{"software audio", PortInfo{Format: "audio/raw", Physical: false}, SoftwareAudio, true},
		{"software midi", PortInfo{Format: "8 bit raw midi", Physical: false}, SoftwareMIDI, true},
		{"unrelated format ignored", PortInfo{Format: "video/raw", Physical: true}, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cat, ok := classify(c.info)
			if ok != c.wantOK {
				t.Fatalf("ok = %v, want %v", ok, c.wantOK)
			}
			if ok && cat != c.wantCat {
				t.Fatalf("category = %v, want %v", cat, c.wantCat)
			}
		})
	}
}

// TestPropertyGraphInvariance is property 5, §8: after any sequence of
// register/remove events, every port id appears in at most one
// (map, node, direction) slot, and removing a port leaves it nowhere.
func TestPropertyGraphInvariance(t *testing.T) {
	g := NewGraph()

	events := []PortInfo{
		{ID: 1, Format: "midi", NodeID: 10, Direction: Out, Physical: true},
		{ID: 2, Format: "audio", NodeID: 10, Direction: In, Physical: true},
		{ID: 3, Format: "midi", NodeID: 11, Direction: Out, Physical: false},
		{ID: 1, Format: "audio", NodeID: 20, Direction: In, Physical: false}, // re-registration of id 1
		{ID: 4, Format: "video", NodeID: 12, Direction: Out, Physical: true}, // ignored
	}
	for _, e := range events {
		g.RegisterPort(e)
	}

	// id 1 was re-registered under a new classification/node; it must
	// occupy exactly the new slot, not both.
	if entry, present := g.Node(PhysicalMIDI, 10); present {
		for _, r := range entry.Outputs {
			if r.ID == 1 {
				t.Fatal("port 1 still present in its stale slot after re-registration")
			}
		}
	}
	entry, present := g.Node(SoftwareAudio, 20)
	if !present || len(entry.Inputs) != 1 || entry.Inputs[0].ID != 1 {
		t.Fatal("port 1 not present in its new slot after re-registration")
	}

	if g.Has(4) {
		t.Fatal("ignored port (non-audio/midi format) must never appear in the graph")
	}

	if !g.RemovePort(1) {
		t.Fatal("expected RemovePort(1) to report present")
	}
	if g.Has(1) {
		t.Fatal("port 1 must be gone from every map after removal")
	}
	if g.RemovePort(99) {
		t.Fatal("removing a never-registered id must report false")
	}
}
