package host

import (
	"context"

	"github.com/ardnew/softpluck/host/hal"
)

// Interface is one interface of the active configuration together with the
// endpoint and class-specific descriptors that follow it.
type Interface struct {
	Descriptor       InterfaceDescriptor
	Endpoints        []EndpointDescriptor
	ClassDescriptors [][]byte
}

// Device represents the attached USB device from the host's perspective.
type Device struct {
	ctl     hal.Controller
	address uint8
	speed   hal.Speed

	// Device descriptor
	descriptor DeviceDescriptor

	// Configuration descriptor (current)
	config ConfigurationDescriptor

	// Interfaces of the current configuration, in descriptor order
	interfaces []Interface

	// Current configuration value
	configurationValue uint8

	// Interface selected by the active class, or NoInterface
	selected int

	state DeviceState

	// String descriptors cache (indexed by string index)
	strings [MaxStringsPerDevice]string
}

// newDevice creates a new device instance at the default address.
func newDevice(ctl hal.Controller, speed hal.Speed) *Device {
	return &Device{
		ctl:      ctl,
		speed:    speed,
		selected: NoInterface,
		state:    DeviceStateDefault,
	}
}

// Address returns the device address.
func (d *Device) Address() uint8 {
	return d.address
}

// Speed returns the device speed.
func (d *Device) Speed() hal.Speed {
	return d.speed
}

// VendorID returns the device vendor ID.
func (d *Device) VendorID() uint16 {
	return d.descriptor.VendorID
}

// ProductID returns the device product ID.
func (d *Device) ProductID() uint16 {
	return d.descriptor.ProductID
}

// Descriptor returns the device descriptor.
func (d *Device) Descriptor() DeviceDescriptor {
	return d.descriptor
}

// Configuration returns the current configuration descriptor.
func (d *Device) Configuration() ConfigurationDescriptor {
	return d.config
}

// NumInterfaces returns the number of parsed interfaces.
func (d *Device) NumInterfaces() int {
	return len(d.interfaces)
}

// Interface returns the interface at the given index in descriptor order.
func (d *Device) Interface(index int) *Interface {
	if index < 0 || index >= len(d.interfaces) {
		return nil
	}
	return &d.interfaces[index]
}

// FindInterface returns the index of the first interface matching class,
// subclass and protocol. [AnyValue] matches anything in that position.
// Returns [NoInterface] if nothing matches.
func (d *Device) FindInterface(class, subclass, protocol uint8) int {
	for i := range d.interfaces {
		desc := &d.interfaces[i].Descriptor
		if (class == AnyValue || desc.InterfaceClass == class) &&
			(subclass == AnyValue || desc.InterfaceSubClass == subclass) &&
			(protocol == AnyValue || desc.InterfaceProtocol == protocol) {
			return i
		}
	}
	return NoInterface
}

// SelectedInterface returns the index of the interface selected by the
// active class, or [NoInterface].
func (d *Device) SelectedInterface() int {
	return d.selected
}

// GetString returns a cached string descriptor.
func (d *Device) GetString(index uint8) string {
	if index == 0 || int(index) >= len(d.strings) {
		return ""
	}
	return d.strings[index]
}

// Manufacturer returns the manufacturer string.
func (d *Device) Manufacturer() string {
	return d.GetString(d.descriptor.ManufacturerIndex)
}

// Product returns the product string.
func (d *Device) Product() string {
	return d.GetString(d.descriptor.ProductIndex)
}

// State returns the current device state.
func (d *Device) State() DeviceState {
	return d.state
}

// SetConfiguration sets the device configuration.
func (d *Device) SetConfiguration(ctx context.Context, value uint8) error {
	setup := hal.SetupPacket{
		RequestType: RequestTypeOut | RequestTypeStandard | RequestTypeDevice,
		Request:     RequestSetConfiguration,
		Value:       uint16(value),
	}

	if _, err := d.ControlTransfer(ctx, &setup, nil); err != nil {
		return err
	}

	d.configurationValue = value
	if value > 0 {
		d.state = DeviceStateConfigured
	} else {
		d.state = DeviceStateAddress
	}
	return nil
}

// GetConfiguration returns the current configuration value.
func (d *Device) GetConfiguration() uint8 {
	return d.configurationValue
}

// ControlTransfer performs a control transfer to the device.
func (d *Device) ControlTransfer(ctx context.Context, setup *hal.SetupPacket, data []byte) (int, error) {
	return d.ctl.ControlTransfer(ctx, hal.DeviceAddress(d.address), setup, data)
}

// GetDescriptor performs a GET_DESCRIPTOR request.
func (d *Device) GetDescriptor(ctx context.Context, descType, descIndex uint8, langID uint16, data []byte) (int, error) {
	setup := hal.SetupPacket{
		RequestType: RequestTypeIn | RequestTypeStandard | RequestTypeDevice,
		Request:     RequestGetDescriptor,
		Value:       uint16(descType)<<8 | uint16(descIndex),
		Index:       langID,
		Length:      uint16(len(data)),
	}

	return d.ControlTransfer(ctx, &setup, data)
}

// ClearEndpointHalt clears the halt condition on an endpoint.
func (d *Device) ClearEndpointHalt(ctx context.Context, endpoint uint8) error {
	setup := hal.SetupPacket{
		RequestType: RequestTypeOut | RequestTypeStandard | RequestTypeEndpoint,
		Request:     RequestClearFeature,
		Value:       FeatureEndpointHalt,
		Index:       uint16(endpoint),
	}

	_, err := d.ControlTransfer(ctx, &setup, nil)
	return err
}

// close marks the device detached.
func (d *Device) close() {
	d.state = DeviceStateDetached
	d.selected = NoInterface
}

// parseConfigurationTree parses the full configuration descriptor tree.
// Endpoint and class-specific descriptors attach to the interface preceding
// them.
func (d *Device) parseConfigurationTree(data []byte) {
	if len(data) < ConfigurationDescriptorSize {
		return
	}

	if !ParseConfigurationDescriptor(data, &d.config) {
		return
	}

	d.interfaces = make([]Interface, 0, d.config.NumInterfaces)

	offset := ConfigurationDescriptorSize
	current := -1

	for offset < len(data) && offset < int(d.config.TotalLength) {
		if offset+2 > len(data) {
			break
		}

		length := int(data[offset])
		descType := data[offset+1]

		if length < 2 || offset+length > len(data) {
			break
		}

		switch descType {
		case DescriptorTypeInterface:
			if len(d.interfaces) >= MaxInterfacesPerConfiguration {
				current = -1
				break
			}
			var iface Interface
			if ParseInterfaceDescriptor(data[offset:], &iface.Descriptor) {
				d.interfaces = append(d.interfaces, iface)
				current = len(d.interfaces) - 1
			}

		case DescriptorTypeEndpoint:
			if current < 0 {
				break
			}
			iface := &d.interfaces[current]
			var ep EndpointDescriptor
			if len(iface.Endpoints) < MaxEndpointsPerInterface &&
				ParseEndpointDescriptor(data[offset:], &ep) {
				iface.Endpoints = append(iface.Endpoints, ep)
			}

		default:
			// Class-specific or other descriptor
			if current >= 0 {
				desc := make([]byte, length)
				copy(desc, data[offset:offset+length])
				d.interfaces[current].ClassDescriptors = append(
					d.interfaces[current].ClassDescriptors, desc)
			}
		}

		offset += length
	}
}
