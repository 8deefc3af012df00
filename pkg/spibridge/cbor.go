// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spibridge

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Remote bridge message types. A remote bridge performs the SPI transfer on
// behalf of the harness; each message is a CBOR array [msg_type, payload_map].
const (
	MsgTransferRequest  = 0x01
	MsgTransferResponse = 0x02
	MsgTransferError    = 0xE0
)

// Payload map keys
const (
	keySeq     = 0
	keyData    = 1
	keyMessage = 2
)

// BridgeMessage is a decoded remote bridge message
type BridgeMessage struct {
	Type    uint8
	Seq     uint64
	Data    []byte
	Message string
}

// EncodeTransferRequest encodes a request to exchange tx on the remote bus
func EncodeTransferRequest(seq uint64, tx []byte) ([]byte, error) {
	return encodeBridgeMessage(MsgTransferRequest, map[int]interface{}{
		keySeq:  seq,
		keyData: tx,
	})
}

// EncodeTransferResponse encodes the bytes received for request seq
func EncodeTransferResponse(seq uint64, rx []byte) ([]byte, error) {
	return encodeBridgeMessage(MsgTransferResponse, map[int]interface{}{
		keySeq:  seq,
		keyData: rx,
	})
}

// EncodeTransferError encodes a bridge side failure for request seq
func EncodeTransferError(seq uint64, message string) ([]byte, error) {
	return encodeBridgeMessage(MsgTransferError, map[int]interface{}{
		keySeq:     seq,
		keyMessage: message,
	})
}

func encodeBridgeMessage(msgType uint8, payload map[int]interface{}) ([]byte, error) {
	data, err := cbor.Marshal([]interface{}{uint64(msgType), payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR: %w", err)
	}
	return data, nil
}

// DecodeBridgeMessage parses a remote bridge message
func DecodeBridgeMessage(data []byte) (*BridgeMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty CBOR payload")
	}

	var msg []interface{}
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	if len(msg) != 2 {
		return nil, fmt.Errorf("expected 2-element array, got %d elements", len(msg))
	}

	t, ok := msg[0].(uint64)
	if !ok {
		return nil, fmt.Errorf("expected uint for message type, got %T", msg[0])
	}
	if t > 255 {
		return nil, fmt.Errorf("message type out of range: %d", t)
	}

	m, ok := msg[1].(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("expected map for payload, got %T", msg[1])
	}

	out := &BridgeMessage{Type: uint8(t)}
	for key, val := range m {
		k, ok := key.(uint64)
		if !ok {
			return nil, fmt.Errorf("expected integer map key, got %T", key)
		}
		switch k {
		case keySeq:
			seq, ok := val.(uint64)
			if !ok {
				return nil, fmt.Errorf("expected uint for seq, got %T", val)
			}
			out.Seq = seq
		case keyData:
			data, ok := val.([]byte)
			if !ok {
				return nil, fmt.Errorf("expected bytes for data, got %T", val)
			}
			out.Data = data
		case keyMessage:
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("expected string for message, got %T", val)
			}
			out.Message = s
		}
	}

	switch out.Type {
	case MsgTransferRequest, MsgTransferResponse, MsgTransferError:
	default:
		return nil, fmt.Errorf("unknown bridge message type: 0x%02X", out.Type)
	}
	return out, nil
}
