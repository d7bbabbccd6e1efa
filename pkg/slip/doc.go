// Package slip provides packet framing for the bitboard serial link.
package slip

// Frames are SLIP style: payload bytes are escaped so END (0xC0) and
// ESC (0xDB) never appear literally, and each frame is terminated by END.
// Optionally a 4-byte little-endian checksum of the payload precedes
// the terminator. The checksum is the sum of (b+1) over all payload bytes,
// modulo 2^32. It detects corruption and desync, not tampering.
//
// There is no retransmission. A corrupted frame is dropped and the
// decoder resumes cleanly with the next one.
