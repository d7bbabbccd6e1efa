package slip

import "io"

// Special bytes.
const (
	END    byte = 0xc0
	ESC    byte = 0xdb
	ESCEND byte = 0xdc
	ESCESC byte = 0xdd
)

// AppendEscaped appends escaped p to dst.
func AppendEscaped(dst, p []byte) []byte {
	for _, b := range p {
		switch b {
		case END:
			dst = append(dst, ESC, ESCEND)
		case ESC:
			dst = append(dst, ESC, ESCESC)
		default:
			dst = append(dst, b)
		}
	}
	return dst
}

// AppendFrame appends a complete frame of payload to dst.
func AppendFrame(dst, payload []byte, checksum bool) []byte {
	dst = AppendEscaped(dst, payload)
	if checksum {
		dst = AppendEscaped(dst, Checksum(0).Update(payload).Bytes())
	}
	return append(dst, END)
}

// Encoder writes frames to the underlying writer.
// Bytes are escaped and written as soon as Write is called,
// the frame is closed by EndFrame.
type Encoder struct {
	w        io.Writer
	checksum bool
	sum      Checksum
	buf      []byte
}

// NewEncoder creates an Encoder.
func NewEncoder(w io.Writer, checksum bool) *Encoder {
	return &Encoder{w: w, checksum: checksum}
}

// Write implements io.Writer. It writes p as part of current frame.
func (e *Encoder) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	e.buf = AppendEscaped(e.buf[:0], p)
	if _, err := e.w.Write(e.buf); err != nil {
		return 0, err
	}
	e.sum = e.sum.Update(p)
	return len(p), nil
}

// EndFrame writes the checksum trailer (if enabled) and END.
// The checksum accumulator is reset for the next frame.
func (e *Encoder) EndFrame() error {
	e.buf = e.buf[:0]
	if e.checksum {
		e.buf = AppendEscaped(e.buf, e.sum.Bytes())
	}
	e.buf = append(e.buf, END)
	e.sum = 0
	_, err := e.w.Write(e.buf)
	return err
}

// WriteFrame writes p as a complete frame.
func (e *Encoder) WriteFrame(p []byte) error {
	if _, err := e.Write(p); err != nil {
		return err
	}
	return e.EndFrame()
}
