// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package spibridge implements the loopback validation protocol for the
// multi-device SPI bridge.
//
// The bridge multiplexes RS485, RS232, CAN and digital I/O peripherals behind
// a single SPI bus. Every SPI transaction carries one fixed-size frame whose
// first byte names a logical device; the bridge answers in the same
// full-duplex transaction with an acknowledgement frame. This package builds
// test frames, validates the echoed frames, and sequences the device pairs
// through an endless test cycle.
package spibridge

// Frame layout
const (
	DefaultFrameSize = 9 // 1 id byte + 8 payload bytes
	MinFrameSize     = 2
	MaxFrameSize     = 64
	CANPayloadSize   = 8 // CAN data bytes per frame, by bus convention
)

// DeviceID identifies a logical peripheral endpoint on the bridge
type DeviceID uint8

// Device identifiers
const (
	DeviceUnknown DeviceID = 0x00
	DeviceRS485_1 DeviceID = 0x01
	DeviceRS485_2 DeviceID = 0x02
	DeviceRS485_3 DeviceID = 0x03
	DeviceRS485_4 DeviceID = 0x04
	DeviceRS232_1 DeviceID = 0x05
	DeviceRS232_2 DeviceID = 0x06
	DeviceCAN_1   DeviceID = 0x07
	DeviceCAN_2   DeviceID = 0x08
	DeviceDI      DeviceID = 0x09
	DeviceDO      DeviceID = 0x0A
	DeviceDO_1    DeviceID = 0x0B // DO_1..DO_10 are contiguous
	DeviceDI_1    DeviceID = 0x15 // DI_1..DI_10 are contiguous
)

// DigitalChannels is the number of DO/DI channel pairs on the bridge
const DigitalChannels = 10

// Digital output/input states carried in the payload
const (
	StateDeasserted byte = 0x00
	StateAsserted   byte = 0x01
)

// Class groups devices that share a payload rule
type Class int

// Device classes
const (
	ClassUnknown Class = iota
	ClassRS485
	ClassRS232
	ClassCAN
	ClassDigital
)

// String returns the class name
func (c Class) String() string {
	switch c {
	case ClassRS485:
		return "RS485"
	case ClassRS232:
		return "RS232"
	case ClassCAN:
		return "CAN"
	case ClassDigital:
		return "DIGITAL"
	default:
		return "UNKNOWN"
	}
}
