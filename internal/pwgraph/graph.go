// Package pwgraph implements the PipeWire-class graph tracker (§4.G, §3
// "Graph snapshot"): the four physical/software × audio/midi maps keyed
// by node id, port classification from a parsed info dictionary, and
// the pending/done sync-barrier sequence. It is kept free of any cgo or
// libpipewire dependency so the invariants (property 5) can be tested
// directly; backend/pipewire feeds it real registry events.
package pwgraph

// Direction is a port's data-flow direction within its node.
type Direction int

const (
	// In is an input port (data flows into the node).
	In Direction = iota
	// Out is an output port (data flows out of the node).
	Out
)

// Category is which of the four graph maps a port belongs to.
type Category int

const (
	PhysicalAudio Category = iota
	PhysicalMIDI
	SoftwareAudio
	SoftwareMIDI
)

// PortInfo is the parsed form of a PipeWire port-info dictionary (§4.G
// "Port-info event"). NodeID is required by the reference semantics;
// callers must have already dropped events where it was absent.
type PortInfo struct {
	ID         uint32
	Format     string
	Name       string
	Alias      string
	ObjectPath string
	NodeID     uint32
	PortID     uint32 // port id within the node
	Direction  Direction
	Physical   bool
	Terminal   bool
	Monitor    bool
}

// PortRecord is a PortInfo retained in one of the graph's direction
// vectors.
type PortRecord = PortInfo

// NodeEntry holds one node's input and output port vectors.
type NodeEntry struct {
	Inputs  []PortRecord
	Outputs []PortRecord
}

type location struct {
	category Category
	nodeID   uint32
}

// Graph is the four-map daemon view (§3 "Graph snapshot"). The zero
// value is not usable (its maps are nil); construct with NewGraph. Per
// the concurrency model it must only be
// mutated from the single event-loop goroutine.
type Graph struct {
	nodes [4]map[uint32]*NodeEntry
	index map[uint32]location // port id -> where it lives
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	g := &Graph{index: make(map[uint32]location)}
	for i := range g.nodes {
		g.nodes[i] = make(map[uint32]*NodeEntry)
	}
	return g
}

// classify implements §4.G's classification rules. ok is false when the
// port belongs to neither audio nor midi (e.g. a future video format)
// and must be ignored entirely.
func classify(info PortInfo) (cat Category, ok bool) {
	audio := containsFold(info.Format, "audio")
	midi := containsFold(info.Format, "midi")
	switch {
	case info.Physical && audio:
		return PhysicalAudio, true
	case info.Physical && midi:
		return PhysicalMIDI, true
	case !info.Physical && audio:
		return SoftwareAudio, true
	case !info.Physical && midi:
		return SoftwareMIDI, true
	default:
		return 0, false
	}
}

func containsFold(s, substr string) bool {
	if len(substr) == 0 {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if equalFold(s[i:i+len(substr)], substr) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// RegisterPort classifies info and places it in the matching category
// map under its node id's input or output vector. Ports that classify
// to neither audio nor midi are silently ignored (ok==false), matching
// the reference implementation's future-proofing for other formats.
// Registering a port id that is already present first removes the old
// entry, keeping the §3 invariant that a port occupies exactly one slot.
func (g *Graph) RegisterPort(info PortInfo) (ok bool) {
	cat, ok := classify(info)
	if !ok {
		return false
	}

	g.RemovePort(info.ID)

	entry, present := g.nodes[cat][info.NodeID]
	if !present {
		entry = &NodeEntry{}
		g.nodes[cat][info.NodeID] = entry
	}
	if info.Direction == In {
		entry.Inputs = append(entry.Inputs, info)
	} else {
		entry.Outputs = append(entry.Outputs, info)
	}
	g.index[info.ID] = location{category: cat, nodeID: info.NodeID}
	return true
}

// RemovePort removes the port with the given id from whichever map/node
// it currently occupies. Returns false if the id was not present
// (global_remove for an id that was never registered, or already
// ignored at registration time).
func (g *Graph) RemovePort(id uint32) bool {
	loc, present := g.index[id]
	if !present {
		return false
	}
	delete(g.index, id)

	entry, ok := g.nodes[loc.category][loc.nodeID]
	if !ok {
		return true
	}
	entry.Inputs = removeByID(entry.Inputs, id)
	entry.Outputs = removeByID(entry.Outputs, id)
	if len(entry.Inputs) == 0 && len(entry.Outputs) == 0 {
		delete(g.nodes[loc.category], loc.nodeID)
	}
	return true
}

func removeByID(records []PortRecord, id uint32) []PortRecord {
	for i, r := range records {
		if r.ID == id {
			return append(records[:i], records[i+1:]...)
		}
	}
	return records
}

// Node returns the combined entry for a node id in the given category,
// and whether any port of that node is present in that category.
func (g *Graph) Node(cat Category, nodeID uint32) (NodeEntry, bool) {
	entry, ok := g.nodes[cat][nodeID]
	if !ok {
		return NodeEntry{}, false
	}
	return *entry, true
}

// Has reports whether a port id is currently present anywhere in the graph.
func (g *Graph) Has(id uint32) bool {
	_, ok := g.index[id]
	return ok
}

// Len returns the total number of ports currently tracked across all
// four maps, for test assertions and diagnostics.
func (g *Graph) Len() int { return len(g.index) }

// Ports returns every port currently tracked in the given category, in
// no particular order. Used by enumeration to turn a live registry
// snapshot into a flat list of candidate destinations.
func (g *Graph) Ports(cat Category) []PortRecord {
	var out []PortRecord
	for _, entry := range g.nodes[cat] {
		out = append(out, entry.Inputs...)
		out = append(out, entry.Outputs...)
	}
	return out
}
