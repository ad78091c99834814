package host

import "fmt"

// Device states as defined in USB 2.0 specification.
const (
	DeviceStateDetached   DeviceState = iota // Device is not connected
	DeviceStateDefault                       // Device has been reset, at address 0
	DeviceStateAddress                       // Device has been assigned an address
	DeviceStateConfigured                    // Device is configured
)

// DeviceState represents USB device state (from host perspective).
type DeviceState uint8

// String returns a human-readable state description.
func (s DeviceState) String() string {
	switch s {
	case DeviceStateDetached:
		return "Detached"
	case DeviceStateDefault:
		return "Default"
	case DeviceStateAddress:
		return "Address"
	case DeviceStateConfigured:
		return "Configured"
	default:
		return fmt.Sprintf("Unknown State (%d)", s)
	}
}

// Maximum limits for fixed-size arrays.
const (
	// MaxClasses is the maximum number of registered class drivers.
	MaxClasses = 4

	// MaxPipes is the maximum number of host pipes, control pipes included.
	MaxPipes = 16

	// MaxInterfacesPerConfiguration is the maximum interfaces per configuration.
	MaxInterfacesPerConfiguration = 8

	// MaxEndpointsPerInterface is the maximum endpoints per interface.
	MaxEndpointsPerInterface = 16

	// MaxStringsPerDevice is the maximum string descriptors per device.
	MaxStringsPerDevice = 16

	// MaxDescriptorSize is the maximum size for descriptor buffers.
	MaxDescriptorSize = 512
)

// Pipes 0 and 1 carry the default control endpoint (OUT and IN).
const (
	PipeControlOut Pipe = 0
	PipeControlIn  Pipe = 1
)

// Interface class codes recognized by the stack.
const (
	ClassAudio = 0x01

	SubclassAudioControl  = 0x01
	SubclassMIDIStreaming = 0x03
)

// AnyValue matches any class, subclass or protocol in FindInterface.
const AnyValue = 0xFF

// NoInterface is returned by FindInterface when nothing matches.
const NoInterface = -1

// FeatureEndpointHalt is the ENDPOINT_HALT feature selector.
const FeatureEndpointHalt = 0x00

// State is the host core state.
type State uint8

// Host core states.
const (
	StateIdle         State = iota // Waiting for a device on the root port
	StateEnumeration               // Reading descriptors and configuring
	StateClassSelect               // Matching a registered class driver
	StateClassRequest              // Running the class-specific request phase
	StateClass                     // Class driver active; Process runs each tick
	StateAbort                     // Attach failed; waiting for disconnection
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateEnumeration:
		return "Enumeration"
	case StateClassSelect:
		return "ClassSelect"
	case StateClassRequest:
		return "ClassRequest"
	case StateClass:
		return "Class"
	case StateAbort:
		return "Abort"
	default:
		return fmt.Sprintf("Unknown State (%d)", s)
	}
}

// Event is a host lifecycle notification delivered to the user callback.
type Event uint8

// Host lifecycle events.
const (
	EventConnection       Event = iota + 1 // A device appeared on the root port
	EventClassActive                       // A class driver finished activation
	EventDisconnection                     // The device left; class torn down
	EventUnrecoveredError                  // Enumeration or activation failed
)

// String returns a human-readable event name.
func (e Event) String() string {
	switch e {
	case EventConnection:
		return "Connection"
	case EventClassActive:
		return "ClassActive"
	case EventDisconnection:
		return "Disconnection"
	case EventUnrecoveredError:
		return "UnrecoveredError"
	default:
		return fmt.Sprintf("Unknown Event (%d)", e)
	}
}

// Endpoint attributes. Only bulk endpoints carry MIDI event packets;
// interrupt is named so drivers can skip it explicitly.
const (
	EndpointTypeBulk      = 0x02
	EndpointTypeInterrupt = 0x03

	endpointTypeMask = 0x03
	endpointDirIn    = 0x80
)

// Descriptor types read during enumeration.
const (
	DescriptorTypeDevice        = 0x01
	DescriptorTypeConfiguration = 0x02
	DescriptorTypeString        = 0x03
	DescriptorTypeInterface     = 0x04
	DescriptorTypeEndpoint      = 0x05
)

// Standard requests issued by the host.
const (
	RequestClearFeature     = 0x01
	RequestSetAddress       = 0x05
	RequestGetDescriptor    = 0x06
	RequestGetConfiguration = 0x08
	RequestSetConfiguration = 0x09
	RequestSetInterface     = 0x0B
)

// bmRequestType bits used by the standard requests above.
const (
	RequestTypeOut      = 0x00
	RequestTypeIn       = 0x80
	RequestTypeStandard = 0x00
	RequestTypeDevice   = 0x00
	RequestTypeEndpoint = 0x02
)

// LangIDUSEnglish is the default language ID.
const LangIDUSEnglish = 0x0409

// DeviceDescriptor represents a USB device descriptor.
type DeviceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	USBVersion        uint16
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize0    uint8
	VendorID          uint16
	ProductID         uint16
	DeviceVersion     uint16
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialNumberIndex uint8
	NumConfigurations uint8
}

// DeviceDescriptorSize is the size of a device descriptor.
const DeviceDescriptorSize = 18

// ParseDeviceDescriptor parses device descriptor from data.
func ParseDeviceDescriptor(data []byte, out *DeviceDescriptor) bool {
	if len(data) < DeviceDescriptorSize {
		return false
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.USBVersion = uint16(data[2]) | uint16(data[3])<<8
	out.DeviceClass = data[4]
	out.DeviceSubClass = data[5]
	out.DeviceProtocol = data[6]
	out.MaxPacketSize0 = data[7]
	out.VendorID = uint16(data[8]) | uint16(data[9])<<8
	out.ProductID = uint16(data[10]) | uint16(data[11])<<8
	out.DeviceVersion = uint16(data[12]) | uint16(data[13])<<8
	out.ManufacturerIndex = data[14]
	out.ProductIndex = data[15]
	out.SerialNumberIndex = data[16]
	out.NumConfigurations = data[17]
	return true
}

// ConfigurationDescriptor represents a USB configuration descriptor.
type ConfigurationDescriptor struct {
	Length             uint8
	DescriptorType     uint8
	TotalLength        uint16
	NumInterfaces      uint8
	ConfigurationValue uint8
	ConfigurationIndex uint8
	Attributes         uint8
	MaxPower           uint8
}

// ConfigurationDescriptorSize is the size of a configuration descriptor header.
const ConfigurationDescriptorSize = 9

// ParseConfigurationDescriptor parses configuration descriptor from data.
func ParseConfigurationDescriptor(data []byte, out *ConfigurationDescriptor) bool {
	if len(data) < ConfigurationDescriptorSize {
		return false
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.TotalLength = uint16(data[2]) | uint16(data[3])<<8
	out.NumInterfaces = data[4]
	out.ConfigurationValue = data[5]
	out.ConfigurationIndex = data[6]
	out.Attributes = data[7]
	out.MaxPower = data[8]
	return true
}

// InterfaceDescriptor represents a USB interface descriptor.
type InterfaceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	InterfaceIndex    uint8
}

// InterfaceDescriptorSize is the size of an interface descriptor.
const InterfaceDescriptorSize = 9

// ParseInterfaceDescriptor parses interface descriptor from data.
func ParseInterfaceDescriptor(data []byte, out *InterfaceDescriptor) bool {
	if len(data) < InterfaceDescriptorSize {
		return false
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.InterfaceNumber = data[2]
	out.AlternateSetting = data[3]
	out.NumEndpoints = data[4]
	out.InterfaceClass = data[5]
	out.InterfaceSubClass = data[6]
	out.InterfaceProtocol = data[7]
	out.InterfaceIndex = data[8]
	return true
}

// EndpointDescriptor represents a USB endpoint descriptor.
type EndpointDescriptor struct {
	Length          uint8
	DescriptorType  uint8
	EndpointAddress uint8
	Attributes      uint8
	MaxPacketSize   uint16
	Interval        uint8
}

// EndpointDescriptorSize is the size of an endpoint descriptor.
const EndpointDescriptorSize = 7

// ParseEndpointDescriptor parses endpoint descriptor from data.
func ParseEndpointDescriptor(data []byte, out *EndpointDescriptor) bool {
	if len(data) < EndpointDescriptorSize {
		return false
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.EndpointAddress = data[2]
	out.Attributes = data[3]
	out.MaxPacketSize = uint16(data[4]) | uint16(data[5])<<8
	out.Interval = data[6]
	return true
}

// IsIn reports whether the endpoint moves data from device to host.
func (e *EndpointDescriptor) IsIn() bool {
	return e.EndpointAddress&endpointDirIn != 0
}

// IsOut reports whether the endpoint moves data from host to device.
func (e *EndpointDescriptor) IsOut() bool {
	return !e.IsIn()
}

// IsBulk reports whether the endpoint is a bulk endpoint.
func (e *EndpointDescriptor) IsBulk() bool {
	return e.Attributes&endpointTypeMask == EndpointTypeBulk
}
