// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spibridge

import (
	"fmt"
	"strconv"
	"strings"
)

// deviceNames is indexed by DeviceID. Lookups go through Name.
var deviceNames = [...]string{
	"Unknown", // 0x00
	"RS485_1", // 0x01
	"RS485_2", // 0x02
	"RS485_3", // 0x03
	"RS485_4", // 0x04
	"RS232_1", // 0x05
	"RS232_2", // 0x06
	"CAN_1",   // 0x07
	"CAN_2",   // 0x08
	"DI",      // 0x09
	"DO",      // 0x0A
	"DO_1",    // 0x0B
	"DO_2",    // 0x0C
	"DO_3",    // 0x0D
	"DO_4",    // 0x0E
	"DO_5",    // 0x0F
	"DO_6",    // 0x10
	"DO_7",    // 0x11
	"DO_8",    // 0x12
	"DO_9",    // 0x13
	"DO_10",   // 0x14
	"DI_1",    // 0x15
	"DI_2",    // 0x16
	"DI_3",    // 0x17
	"DI_4",    // 0x18
	"DI_5",    // 0x19
	"DI_6",    // 0x1A
	"DI_7",    // 0x1B
	"DI_8",    // 0x1C
	"DI_9",    // 0x1D
	"DI_10",   // 0x1E
}

// MaxDeviceID is the highest identifier in the registry
const MaxDeviceID = DeviceID(len(deviceNames) - 1)

// Name returns the display name for a device id, or "Unknown" when the id is
// outside the registry
func Name(id DeviceID) string {
	if !id.Valid() {
		return deviceNames[DeviceUnknown]
	}
	return deviceNames[id]
}

// String implements fmt.Stringer
func (id DeviceID) String() string {
	return Name(id)
}

// Valid reports whether id is a registered, non-Unknown device
func (id DeviceID) Valid() bool {
	return id > DeviceUnknown && id <= MaxDeviceID
}

// Class returns the payload class of the device
func (id DeviceID) Class() Class {
	switch {
	case id >= DeviceRS485_1 && id <= DeviceRS485_4:
		return ClassRS485
	case id == DeviceRS232_1 || id == DeviceRS232_2:
		return ClassRS232
	case id == DeviceCAN_1 || id == DeviceCAN_2:
		return ClassCAN
	case id >= DeviceDI && id <= MaxDeviceID:
		return ClassDigital
	default:
		return ClassUnknown
	}
}

// DO returns the id of digital output channel n (1-based)
func DO(n int) DeviceID {
	return DeviceDO_1 + DeviceID(n-1)
}

// DI returns the id of digital input channel n (1-based)
func DI(n int) DeviceID {
	return DeviceDI_1 + DeviceID(n-1)
}

// ParseDevice resolves a device by name (case-insensitive) or by numeric id
// such as "0x07" or "7"
func ParseDevice(s string) (DeviceID, error) {
	s = strings.TrimSpace(s)
	for i, name := range deviceNames {
		if i != int(DeviceUnknown) && strings.EqualFold(name, s) {
			return DeviceID(i), nil
		}
	}

	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return DeviceUnknown, fmt.Errorf("unknown device: %q", s)
	}
	id := DeviceID(n)
	if !id.Valid() {
		return DeviceUnknown, fmt.Errorf("device id out of range: 0x%02X", n)
	}
	return id, nil
}

// Devices returns all registered devices in id order, excluding Unknown
func Devices() []DeviceID {
	ids := make([]DeviceID, 0, len(deviceNames)-1)
	for id := DeviceRS485_1; id <= MaxDeviceID; id++ {
		ids = append(ids, id)
	}
	return ids
}
