package camera

import "bytes"

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// maxFrameSize caps a frame being reassembled; a camera that never sends a
// footer would otherwise grow its buffer without bound.
const maxFrameSize = 8 << 20

// Assembler rebuilds JPEG frames that cameras send split over UDP packets. A
// packet starting with the JPEG header begins a new frame; a packet ending
// with the footer completes it. Not safe for concurrent use.
type Assembler struct {
	buffers map[string]*bytes.Buffer
}

func NewAssembler() *Assembler {
	return &Assembler{buffers: make(map[string]*bytes.Buffer)}
}

// Push adds one packet from camera and returns a copy of the frame it completes, or nil.
func (a *Assembler) Push(camera string, packet []byte) []byte {
	buf, ok := a.buffers[camera]
	if !ok {
		buf = new(bytes.Buffer)
		a.buffers[camera] = buf
	}

	if bytes.HasPrefix(packet, jpegHeader) {
		buf.Reset()
	} else if buf.Len() == 0 {
		// middle of a frame whose start we missed
		return nil
	}
	buf.Write(packet)

	if buf.Len() > maxFrameSize {
		buf.Reset()
		return nil
	}
	if !bytes.HasSuffix(packet, jpegFooter) {
		return nil
	}

	frame := make([]byte, buf.Len())
	copy(frame, buf.Bytes())
	buf.Reset()
	return frame
}
