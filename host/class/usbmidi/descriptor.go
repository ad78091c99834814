package usbmidi

// Class-specific descriptor types (USB Audio 1.0).
const (
	DescriptorTypeCSInterface = 0x24
	DescriptorTypeCSEndpoint  = 0x25
)

// MIDI Streaming interface descriptor subtypes.
const (
	SubtypeHeader  = 0x01
	SubtypeInJack  = 0x02
	SubtypeOutJack = 0x03
	SubtypeElement = 0x04
)

// SubtypeGeneral is the MS_GENERAL class-specific endpoint subtype.
const SubtypeGeneral = 0x01

// Jack types.
const (
	JackEmbedded = 0x01
	JackExternal = 0x02
)

// headerSize is the fixed part of the MS interface header descriptor.
const headerSize = 7

// Topology summarizes the class-specific descriptors of a MIDI Streaming
// interface.
//
// An embedded IN jack is fed by the host's bulk OUT endpoint and an embedded
// OUT jack feeds the bulk IN endpoint, so each embedded jack is one virtual
// cable in the matching direction.
type Topology struct {
	Version     uint16 // bcdMSC from the MS header
	InCables    int    // Embedded OUT jacks (device to host)
	OutCables   int    // Embedded IN jacks (host to device)
	ExternalIn  int
	ExternalOut int
	Elements    int

	// Embedded jacks listed by the MS_GENERAL endpoint descriptors, in
	// endpoint order.
	EndpointJacks []int
}

// ParseTopology walks an interface's class-specific descriptors. It returns
// false if the MS header is missing or any descriptor is malformed.
func ParseTopology(descs [][]byte, out *Topology) bool {
	*out = Topology{}
	header := false

	for _, d := range descs {
		if len(d) < 3 || int(d[0]) != len(d) {
			return false
		}

		switch d[1] {
		case DescriptorTypeCSInterface:
			switch d[2] {
			case SubtypeHeader:
				if len(d) < headerSize {
					return false
				}
				out.Version = uint16(d[3]) | uint16(d[4])<<8
				header = true
			case SubtypeInJack:
				if len(d) < 6 {
					return false
				}
				if d[3] == JackEmbedded {
					out.OutCables++
				} else {
					out.ExternalIn++
				}
			case SubtypeOutJack:
				if len(d) < 7 {
					return false
				}
				if d[3] == JackEmbedded {
					out.InCables++
				} else {
					out.ExternalOut++
				}
			case SubtypeElement:
				out.Elements++
			}

		case DescriptorTypeCSEndpoint:
			if d[2] != SubtypeGeneral || len(d) < 4 || len(d) < 4+int(d[3]) {
				return false
			}
			out.EndpointJacks = append(out.EndpointJacks, int(d[3]))
		}
	}
	return header
}
