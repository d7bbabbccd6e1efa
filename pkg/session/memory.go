package session

import (
	"github.com/robotalks/bitboard.go/pkg/command"
)

// WriteStats summarizes a WriteMemory call.
type WriteStats struct {
	Chunks  int
	Skipped int
	Bytes   int
}

// WriteMemory writes data at addr, split into ChunkSize packets.
// Each chunk is sent as an independent WriteMem command. When
// SkipZeroChunks is set, chunks of all zeros are not sent as the
// target memory is assumed to be zero-initialized.
// Nothing is retried, a failed write stops the transfer.
func (s *Session) WriteMemory(addr uint16, data []byte) (stats WriteStats, err error) {
	if int(addr)+len(data) > 0x10000 {
		err = ErrAddressOverflow
		return
	}
	size := s.Config.ChunkSize
	if size <= 0 || size > MaxChunkSize {
		size = MaxChunkSize
	}
	for off := 0; off < len(data); off += size {
		end := off + size
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		if s.Config.SkipZeroChunks && allZeros(chunk) {
			stats.Skipped++
			continue
		}
		if err = s.Send(command.WriteMem, command.WriteMemBody(addr+uint16(off), chunk)); err != nil {
			return
		}
		stats.Chunks++
		stats.Bytes += len(chunk)
	}
	return
}

func allZeros(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}
