// internal/frame/frame.go
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Supported Modbus function codes. Only ReadCoils and WriteSingleCoil are
// ever issued; the read/write register shapes exist so the RTU response
// length table covers everything a board may legally send back.
const (
	FuncReadCoils          = 0x01
	FuncReadDiscreteInputs = 0x02
	FuncWriteSingleCoil    = 0x05
	FuncWriteSingleReg     = 0x06
)

const (
	mbapHeaderLength = 7
	exceptionBit     = 0x80
)

// ErrIncomplete means the buffer does not yet hold a full frame. The caller
// must keep reading and re-parse; it is a buffering signal, not a failure.
var ErrIncomplete = errors.New("frame: incomplete")

// ExceptionError is a well-formed Modbus exception response.
type ExceptionError struct {
	Function byte
	Code     byte
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("frame: modbus exception fc=0x%02X code=%d", e.Function, e.Code)
}

// ChecksumError is an RTU frame whose CRC trailer does not match its body.
type ChecksumError struct {
	Want uint16
	Got  uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("frame: crc mismatch: want=0x%04X got=0x%04X", e.Want, e.Got)
}

// BuildTCP builds a Modbus TCP ADU.
//
// MBAP:
//
//	TID(2 BE) PID(2=0) LEN(2 BE = PDU+1) UID(1)
//
// PDU:
//
//	FC(1) payload
func BuildTCP(txID uint16, unitID, fc byte, payload []byte) []byte {
	adu := make([]byte, mbapHeaderLength+1+len(payload))
	binary.BigEndian.PutUint16(adu[0:2], txID)
	binary.BigEndian.PutUint16(adu[2:4], 0)
	binary.BigEndian.PutUint16(adu[4:6], uint16(len(payload)+2))
	adu[6] = unitID
	adu[7] = fc
	copy(adu[8:], payload)
	return adu
}

// BuildRTU builds a Modbus RTU ADU: UID(1) FC(1) payload CRC(2 LE).
func BuildRTU(unitID, fc byte, payload []byte) []byte {
	adu := make([]byte, 2+len(payload), 4+len(payload))
	adu[0] = unitID
	adu[1] = fc
	copy(adu[2:], payload)
	return AppendChecksum(adu)
}

// ParseTCP extracts the PDU (function code + data) from a buffered TCP
// response. Returns ErrIncomplete until the MBAP-declared frame is complete.
func ParseTCP(buf []byte) ([]byte, error) {
	if len(buf) < mbapHeaderLength+2 {
		return nil, ErrIncomplete
	}
	if buf[mbapHeaderLength]&exceptionBit != 0 {
		return nil, &ExceptionError{
			Function: buf[mbapHeaderLength] &^ exceptionBit,
			Code:     buf[mbapHeaderLength+1],
		}
	}
	total := 6 + int(binary.BigEndian.Uint16(buf[4:6]))
	if total < mbapHeaderLength+2 {
		return nil, fmt.Errorf("frame: bad mbap length %d", total-6)
	}
	if len(buf) < total {
		return nil, ErrIncomplete
	}
	return buf[mbapHeaderLength:total], nil
}

// ParseRTU extracts the PDU from a buffered RTU response. The expected frame
// length is derived from the function code; until that many bytes are
// present the result is ErrIncomplete. The CRC is validated over the whole
// frame and the unit id + CRC trailer are stripped on success.
func ParseRTU(buf []byte) ([]byte, error) {
	if len(buf) < 2 {
		return nil, ErrIncomplete
	}
	fc := buf[1]
	if fc&exceptionBit != 0 {
		if len(buf) < 5 {
			return nil, ErrIncomplete
		}
		if err := verify(buf[:5]); err != nil {
			return nil, err
		}
		return nil, &ExceptionError{Function: fc &^ exceptionBit, Code: buf[2]}
	}

	var total int
	switch fc {
	case FuncReadCoils, FuncReadDiscreteInputs:
		if len(buf) < 3 {
			return nil, ErrIncomplete
		}
		total = 3 + int(buf[2]) + 2
	case FuncWriteSingleCoil, FuncWriteSingleReg:
		total = 8
	default:
		return nil, fmt.Errorf("frame: unexpected function code 0x%02X", fc)
	}
	if len(buf) < total {
		return nil, ErrIncomplete
	}
	if err := verify(buf[:total]); err != nil {
		return nil, err
	}
	return buf[1 : total-2], nil
}

func verify(adu []byte) error {
	want := Checksum(adu[:len(adu)-2])
	got := uint16(adu[len(adu)-2]) | uint16(adu[len(adu)-1])<<8
	if want != got {
		return &ChecksumError{Want: want, Got: got}
	}
	return nil
}

// ReadCoilsPayload builds the FC 0x01 request payload.
func ReadCoilsPayload(start, quantity uint16) []byte {
	p := make([]byte, 4)
	binary.BigEndian.PutUint16(p[0:2], start)
	binary.BigEndian.PutUint16(p[2:4], quantity)
	return p
}

// WriteCoilPayload builds the FC 0x05 request payload.
func WriteCoilPayload(addr uint16, on bool) []byte {
	p := make([]byte, 4)
	binary.BigEndian.PutUint16(p[0:2], addr)
	if on {
		binary.BigEndian.PutUint16(p[2:4], 0xFF00)
	}
	return p
}

// UnpackBits unpacks a read-coils data block into count booleans,
// LSB-first within each byte.
func UnpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		bitIdx := i % 8
		if byteIdx >= len(data) {
			continue
		}
		out[i] = data[byteIdx]&(1<<bitIdx) != 0
	}
	return out
}
