// internal/onewire/crc.go
package onewire

// CRC8 computes the Dallas/Maxim 1-Wire CRC-8 (x^8 + x^5 + x^4 + 1),
// LSB first, initial value 0. Used for ROM addresses.
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		for i := 0; i < 8; i++ {
			mix := (crc ^ b) & 0x01
			crc >>= 1
			if mix != 0 {
				crc ^= 0x8C
			}
			b >>= 1
		}
	}
	return crc
}

// CRC16 computes the 1-Wire CRC-16 (x^16 + x^15 + x^2 + 1),
// LSB first, initial value 0. Devices transmit the inverted value,
// low byte first.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// CheckCRC16 reports whether the two trailing bytes received from a device
// carry the inverted CRC-16 of data.
func CheckCRC16(data []byte, lo, hi byte) bool {
	got := uint16(lo) | uint16(hi)<<8
	return CRC16(data) == ^got
}
