// internal/frame/crc.go
package frame

import "github.com/sigurn/crc16"

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// Checksum computes the Modbus CRC-16 (poly 0xA001, init 0xFFFF) of b.
func Checksum(b []byte) uint16 {
	return crc16.Checksum(b, crcTable)
}

// AppendChecksum appends the little-endian CRC-16 of b and returns the
// extended slice.
func AppendChecksum(b []byte) []byte {
	cs := Checksum(b)
	return append(b, byte(cs), byte(cs>>8))
}

// VerifyChecksum reports whether the trailing two bytes of adu are the
// correct little-endian CRC-16 of everything before them.
func VerifyChecksum(adu []byte) bool {
	if len(adu) < 3 {
		return false
	}
	return verify(adu) == nil
}
