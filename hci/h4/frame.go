package h4

import (
	"fmt"
	"time"
)

// Packet indicators prefixing every inbound frame.
const (
	aclPacket   = 0x02
	eventPacket = 0x04
)

const (
	evtHeaderLength = 3
	aclHeaderLength = 5

	assembleTimeout = 500 * time.Millisecond
)

// assembler rebuilds event and ACL frames from the byte stream coming
// off the port. Completed frames go to out.
type assembler struct {
	b       []byte
	pktType byte
	timeout time.Time
	out     chan []byte
}

func newAssembler(out chan []byte) *assembler {
	return &assembler{
		b:   make([]byte, 0, 256),
		out: out,
	}
}

func (a *assembler) Assemble(b []byte) {
	switch {
	case len(b) == 0:
		// nothing to look at
		return

	case !a.timeout.IsZero() && time.Now().After(a.timeout):
		//stale partial frame
		fallthrough
	case a.b == nil:
		a.reset()

	default:
		// ok
	}

	if len(a.b) == 0 {
		if err := a.waitStart(b); err != nil {
			return
		}
	} else {
		a.b = append(a.b, b...)
	}

	fr, err := a.frame()
	if err != nil {
		// header or payload still short
		return
	}
	out := make([]byte, len(fr))
	copy(out, fr)
	a.out <- out

	// bytes past the frame belong to the next one
	if len(a.b) > len(fr) {
		rem := make([]byte, len(a.b)-len(fr))
		copy(rem, a.b[len(fr):])
		a.reset()
		a.Assemble(rem)
	} else {
		a.reset()
	}
}

func (a *assembler) reset() {
	a.b = make([]byte, 0, 256)
	a.timeout = time.Time{}
}

// waitStart scans for a packet indicator and buffers from there on.
func (a *assembler) waitStart(b []byte) error {
	var i int
	var v byte
	var ok bool
	for i, v = range b {
		switch v {
		case eventPacket, aclPacket:
			a.pktType = v
		default:
			continue
		}

		ok = true
		a.timeout = time.Now().Add(assembleTimeout)
		break
	}

	if !ok {
		return fmt.Errorf("couldnt find start byte")
	}

	a.b = append(a.b, b[i:]...)
	return nil
}

// frameLength returns the total on-wire length of the buffered frame
// once enough of its header is in.
func (a *assembler) frameLength() (int, error) {
	switch a.pktType {
	case aclPacket:
		if len(a.b) < aclHeaderLength {
			return 0, fmt.Errorf("not enough bytes")
		}
		l := int(a.b[3]) | int(a.b[4])<<8
		return l + aclHeaderLength, nil

	case eventPacket:
		if len(a.b) < evtHeaderLength {
			return 0, fmt.Errorf("not enough bytes")
		}
		return int(a.b[2]) + evtHeaderLength, nil

	default:
		return 0, fmt.Errorf("invalid packet type %v", a.pktType)
	}
}

func (a *assembler) frame() ([]byte, error) {
	tl, err := a.frameLength()
	if err != nil {
		return nil, err
	}

	if len(a.b) < tl {
		return nil, fmt.Errorf("not enough bytes")
	}
	return a.b[:tl], nil
}
