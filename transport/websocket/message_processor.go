package websocket

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	opCodeContinuation byte = 0x0
	opCodeText         byte = 0x1
	opCodeClose        byte = 0x8
	opCodePing         byte = 0x9
	opCodePong         byte = 0xA
)

var errConnectionClosed = errors.New("connection closed by client")

// frame represents a WebSocket frame and its metadata.
type frame struct {
	isFin   bool
	opCode  byte
	length  uint64
	payload []byte
}

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newMessage(action string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg, err := json.Marshal(Message{Action: action, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return msg, nil
}

func textFrame(data []byte) frame {
	return frame{
		isFin:   true,
		opCode:  opCodeText,
		length:  uint64(len(data)),
		payload: data,
	}
}

func writeFrame(bufrw *bufio.ReadWriter, frameData frame) error {
	buf := make([]byte, 2, 10+len(frameData.payload))
	buf[0] |= frameData.opCode

	if frameData.isFin {
		buf[0] |= 0x80
	}

	switch {
	case frameData.length < 126:
		buf[1] |= byte(frameData.length)
	case frameData.length < 1<<16:
		buf[1] |= 126
		buf = binary.BigEndian.AppendUint16(buf, uint16(frameData.length))
	default:
		buf[1] |= 127
		buf = binary.BigEndian.AppendUint64(buf, frameData.length)
	}

	buf = append(buf, frameData.payload...)

	if _, err := bufrw.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	if err := bufrw.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}

	return nil
}

// readFrame - reads one complete frame, unmasking client data.
func readFrame(bufrw *bufio.ReadWriter) (frame, error) {
	header, err := readHeader(bufrw)
	if err != nil {
		return frame{}, err
	}

	size, err := readPayloadLength(bufrw, header[1]&0x7f)
	if err != nil {
		return frame{}, err
	}

	mask, err := readMask(bufrw, header[1]>>7)
	if err != nil {
		return frame{}, err
	}

	payload, err := readData(bufrw, size, mask)
	if err != nil {
		return frame{}, err
	}

	return frame{
		isFin:   header[0]>>7 == 1,
		opCode:  header[0] & 0x0f,
		length:  size,
		payload: payload,
	}, nil
}

func readHeader(bufrw *bufio.ReadWriter) ([]byte, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(bufrw, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return header, nil
}

func readPayloadLength(bufrw *bufio.ReadWriter, payloadLen byte) (uint64, error) {
	switch payloadLen {
	case 126:
		length := make([]byte, 2)
		if _, err := io.ReadFull(bufrw, length); err != nil {
			return 0, fmt.Errorf("failed to read payload length: %w", err)
		}
		return uint64(binary.BigEndian.Uint16(length)), nil
	case 127:
		length := make([]byte, 8)
		if _, err := io.ReadFull(bufrw, length); err != nil {
			return 0, fmt.Errorf("failed to read payload length: %w", err)
		}
		return binary.BigEndian.Uint64(length), nil
	default:
		return uint64(payloadLen), nil
	}
}

func readMask(bufrw *bufio.ReadWriter, maskBit byte) ([]byte, error) {
	if maskBit == 0 {
		return nil, nil
	}

	mask := make([]byte, 4)
	if _, err := io.ReadFull(bufrw, mask); err != nil {
		return nil, fmt.Errorf("failed to read mask: %w", err)
	}

	return mask, nil
}

func readData(bufrw *bufio.ReadWriter, size uint64, mask []byte) ([]byte, error) {
	if size > maxMessageSize {
		return nil, fmt.Errorf("payload of %d bytes exceeds %d", size, maxMessageSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(bufrw, payload); err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	if mask != nil {
		for i := range payload {
			payload[i] ^= mask[i%4]
		}
	}

	return payload, nil
}
