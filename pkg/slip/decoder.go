package slip

// Packet is a validated frame payload.
type Packet []byte

// DecodeResult is the result after feeding one byte.
type DecodeResult struct {
	// Packet is non-nil when a frame completed successfully,
	// it can be empty if the frame carries no payload.
	Packet Packet
	// Dropped is set when a frame is discarded.
	Dropped error
}

// Complete indicates a packet is ready.
func (r DecodeResult) Complete() bool {
	return r.Packet != nil
}

// Decoder reassembles frames from raw bytes.
// It never fails on malformed input: corrupted frames are
// reported in DecodeResult.Dropped and discarded.
type Decoder struct {
	Checksum bool

	buf     []byte
	escaped bool
	corrupt bool
	sum     Checksum
}

// Feed consumes one byte.
func (d *Decoder) Feed(b byte) (r DecodeResult) {
	if d.escaped {
		d.escaped = false
		switch b {
		case ESCEND:
			d.append(END)
		case ESCESC:
			d.append(ESC)
		case END:
			// END right after ESC terminates a broken frame.
			d.Reset()
			r.Dropped = ErrBadEscape
		default:
			d.corrupt = true
		}
		return
	}
	switch b {
	case ESC:
		d.escaped = true
	case END:
		return d.endFrame()
	default:
		d.append(b)
	}
	return
}

// Reset abandons the frame in progress.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.escaped, d.corrupt = false, false
	d.sum = 0
}

// Pending returns the number of unescaped bytes in the frame in progress.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

func (d *Decoder) append(b byte) {
	d.buf = append(d.buf, b)
	d.sum = d.sum.Add(b)
}

func (d *Decoder) endFrame() (r DecodeResult) {
	defer d.Reset()
	if d.corrupt {
		r.Dropped = ErrBadEscape
		return
	}
	payload := d.buf
	if d.Checksum {
		n := len(payload) - ChecksumSize
		if n < 0 {
			r.Dropped = ErrTruncatedChecksum
			return
		}
		sum := d.sum
		for _, b := range payload[n:] {
			sum = sum.Sub(b)
		}
		if sum != ChecksumFrom(payload[n:]) {
			r.Dropped = ErrChecksumMismatch
			return
		}
		payload = payload[:n]
	}
	r.Packet = make(Packet, len(payload))
	copy(r.Packet, payload)
	return
}
