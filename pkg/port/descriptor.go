// Package port defines the stable, backend-agnostic addressing of MIDI
// endpoints (§3, §4.A of the spec: Port Identity).
package port

// Descriptor addresses a single MIDI endpoint as reported by a backend's
// enumeration. Descriptors are plain values: they outlive the connection
// that produced them and may be stored indefinitely by callers.
type Descriptor struct {
	// Client is the opaque handle of the owning client object, used to
	// recognise "same connection" across separate enumerations.
	Client uintptr
	// Port is the backend-specific numeric port id.
	Port uint32

	DeviceName   string
	PortName     string
	DisplayName  string
	Manufacturer string
}

// Equal reports whether two descriptors address the same endpoint.
// Equality is by (Client, Port, PortName), per the spec's identity rule.
func (d Descriptor) Equal(other Descriptor) bool {
	return d.Client == other.Client && d.Port == other.Port && d.PortName == other.PortName
}

// Find returns the index of the descriptor in ports matching d's
// identity, or -1 if none matches. This is the linear search the spec
// requires `open_port` to perform against the current enumeration,
// tie-broken by DisplayName when more than one candidate shares a Port id.
func Find(ports []Descriptor, d Descriptor) int {
	best := -1
	for i, candidate := range ports {
		if candidate.Client != d.Client || candidate.Port != d.Port {
			continue
		}
		if candidate.PortName == d.PortName {
			return i
		}
		if best == -1 && candidate.DisplayName == d.DisplayName {
			best = i
		}
	}
	return best
}
