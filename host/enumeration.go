package host

import (
	"context"
	"errors"

	"github.com/ardnew/softpluck/host/hal"
	"github.com/ardnew/softpluck/pkg"
)

// Enumeration errors.
var (
	ErrEnumerationFailed = errors.New("enumeration failed")
)

// deviceAddress is the address assigned to the single attached device.
const deviceAddress = 1

// enumerate performs the USB enumeration sequence for the device on the root
// port and leaves it configured with its first configuration.
func (h *Host) enumerate(ctx context.Context) (*Device, error) {
	status := h.hal.PortStatus()
	pkg.LogDebug(pkg.ComponentHost, "starting enumeration", "speed", status.Speed)

	if err := h.hal.ResetPort(); err != nil {
		return nil, err
	}

	dev := newDevice(h.hal, status.Speed)

	// The first 8 bytes of the device descriptor carry bMaxPacketSize0
	var buf [MaxDescriptorSize]byte
	n, err := dev.GetDescriptor(ctx, DescriptorTypeDevice, 0, 0, buf[:8])
	if err != nil {
		return nil, err
	}
	if n < 8 {
		return nil, ErrEnumerationFailed
	}

	maxPacketSize0 := buf[7]
	if maxPacketSize0 == 0 {
		maxPacketSize0 = 8
	}
	pkg.LogDebug(pkg.ComponentHost, "got max packet size", "size", maxPacketSize0)

	setup := hal.SetupPacket{
		RequestType: RequestTypeOut | RequestTypeStandard | RequestTypeDevice,
		Request:     RequestSetAddress,
		Value:       deviceAddress,
	}
	if _, err := dev.ControlTransfer(ctx, &setup, nil); err != nil {
		return nil, err
	}

	dev.address = deviceAddress
	dev.state = DeviceStateAddress
	pkg.LogDebug(pkg.ComponentHost, "assigned address", "address", dev.address)

	n, err = dev.GetDescriptor(ctx, DescriptorTypeDevice, 0, 0, buf[:DeviceDescriptorSize])
	if err != nil {
		return nil, err
	}
	if n < DeviceDescriptorSize || !ParseDeviceDescriptor(buf[:n], &dev.descriptor) {
		return nil, ErrEnumerationFailed
	}

	pkg.LogDebug(pkg.ComponentHost, "device descriptor",
		"vendorID", dev.descriptor.VendorID,
		"productID", dev.descriptor.ProductID,
		"class", dev.descriptor.DeviceClass)

	// Header first for wTotalLength, then the whole tree
	n, err = dev.GetDescriptor(ctx, DescriptorTypeConfiguration, 0, 0, buf[:ConfigurationDescriptorSize])
	if err != nil {
		return nil, err
	}
	if n < ConfigurationDescriptorSize {
		return nil, ErrEnumerationFailed
	}

	totalLength := int(buf[2]) | int(buf[3])<<8
	if totalLength > len(buf) {
		totalLength = len(buf)
	}

	n, err = dev.GetDescriptor(ctx, DescriptorTypeConfiguration, 0, 0, buf[:totalLength])
	if err != nil {
		return nil, err
	}

	dev.parseConfigurationTree(buf[:n])

	pkg.LogDebug(pkg.ComponentHost, "configuration descriptor",
		"numInterfaces", dev.config.NumInterfaces,
		"parsedInterfaces", len(dev.interfaces),
		"configValue", dev.config.ConfigurationValue)

	h.readStrings(ctx, dev, buf[:])

	if dev.config.ConfigurationValue > 0 {
		if err := dev.SetConfiguration(ctx, dev.config.ConfigurationValue); err != nil {
			return nil, err
		}
	}

	return dev, nil
}

// readStrings caches the manufacturer, product and serial strings. Failures
// are logged and otherwise ignored.
func (h *Host) readStrings(ctx context.Context, dev *Device, buf []byte) {
	for _, index := range [...]uint8{
		dev.descriptor.ManufacturerIndex,
		dev.descriptor.ProductIndex,
		dev.descriptor.SerialNumberIndex,
	} {
		if index == 0 || int(index) >= len(dev.strings) {
			continue
		}

		n, err := dev.GetDescriptor(ctx, DescriptorTypeString, index, LangIDUSEnglish, buf)
		if err != nil {
			pkg.LogDebug(pkg.ComponentHost, "string descriptor read failed",
				"index", index, "error", err)
			continue
		}

		if s := decodeString(buf[:n]); s != "" {
			dev.strings[index] = s
			pkg.LogDebug(pkg.ComponentHost, "string descriptor", "index", index, "value", s)
		}
	}
}

// decodeString converts a UTF-16LE string descriptor to printable ASCII,
// dropping anything outside that range.
func decodeString(data []byte) string {
	if len(data) < 2 {
		return ""
	}

	length := int(data[0])
	if length > len(data) {
		length = len(data)
	}
	if length < 2 {
		return ""
	}

	result := make([]byte, 0, (length-2)/2)
	for i := 2; i < length-1; i += 2 {
		if data[i+1] == 0 && data[i] >= 0x20 && data[i] < 0x7F {
			result = append(result, data[i])
		}
	}
	return string(result)
}
