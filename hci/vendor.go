package hci

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// CustomCommand carries an arbitrary fixed layout payload behind a
// caller supplied opcode. Vendor bring-up sequences are sent this way.
type CustomCommand struct {
	Payload interface{}
	op      int
	plen    int
}

func (c *CustomCommand) OpCode() int { return c.op }
func (c *CustomCommand) Len() int    { return c.plen }

func (c *CustomCommand) Marshal(b []byte) error {
	buf := bytes.NewBuffer(b)
	buf.Reset()
	if buf.Cap() < c.plen {
		return io.ErrShortBuffer
	}
	return binary.Write(buf, binary.LittleEndian, c.Payload)
}

func (c *CustomCommand) String() string {
	return fmt.Sprintf("vendor command (ogf 0x%02x, ocf 0x%04x), payload %+v",
		c.op>>ogfBitShift, c.op&0x3ff, c.Payload)
}

// SendVendorSpecificCommand sends v under the vendor specific debug
// opcode group. The payload must be a fixed layout value whose encoded
// size matches length.
func (h *HCI) SendVendorSpecificCommand(ocf uint16, length uint8, v interface{}) error {
	if sz := binary.Size(v); sz < 0 || sz != int(length) {
		return fmt.Errorf("payload size %v does not match declared length %v", sz, length)
	}

	c := &CustomCommand{
		Payload: v,
		op:      int(ogfVendorSpecificDebug)<<ogfBitShift | int(ocf),
		plen:    int(length),
	}
	return h.Send(c)
}
