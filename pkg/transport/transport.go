// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the physical links the harness can drive the
// SPI bridge over: a local spidev port, a UART attached bridge, a remote
// bridge reached over WebSocket, and an in-memory loopback.
package transport

import (
	"fmt"
	"io"

	"github.com/Thermoquad/spiloop/pkg/spibridge"
)

// Conn is a transport held open for the life of a run
type Conn interface {
	spibridge.Transport
	io.Closer
	fmt.Stringer
}

// Transport kinds
const (
	KindSPIDev    = "spidev"
	KindSerial    = "serial"
	KindWebSocket = "websocket"
	KindLoopback  = "loopback"
)

// Kinds lists the selectable transport kinds
var Kinds = []string{KindSPIDev, KindSerial, KindWebSocket, KindLoopback}

var (
	_ Conn = (*SPIDev)(nil)
	_ Conn = (*Serial)(nil)
	_ Conn = (*WebSocket)(nil)
	_ Conn = (*Loopback)(nil)
)
