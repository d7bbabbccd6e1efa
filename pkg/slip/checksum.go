package slip

import "encoding/binary"

// ChecksumSize is the size of checksum trailer in bytes.
const ChecksumSize = 4

// Checksum is the rolling frame checksum.
type Checksum uint32

// Add accumulates one payload byte.
func (c Checksum) Add(b byte) Checksum {
	return c + Checksum(b) + 1
}

// Sub removes the contribution of a byte previously added.
func (c Checksum) Sub(b byte) Checksum {
	return c - Checksum(b) - 1
}

// Update accumulates all bytes in p.
func (c Checksum) Update(p []byte) Checksum {
	for _, b := range p {
		c = c.Add(b)
	}
	return c
}

// Bytes returns the little-endian wire form.
func (c Checksum) Bytes() []byte {
	b := make([]byte, ChecksumSize)
	binary.LittleEndian.PutUint32(b, uint32(c))
	return b
}

// ChecksumFrom parses the little-endian wire form.
func ChecksumFrom(p []byte) Checksum {
	return Checksum(binary.LittleEndian.Uint32(p))
}
