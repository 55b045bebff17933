package hci

import (
	"fmt"

	"github.com/pkg/errors"
)

// CommandID identifies a controller command this host knows how to
// frame.
type CommandID int

// Supported commands.
const (
	Reset CommandID = iota
	WriteAdvertisingEnable
	WriteAdvertisingParameters
	WriteAdvertisingData
	WriteScanResponseData

	numCommands
)

func (id CommandID) String() string {
	switch id {
	case Reset:
		return "Reset"
	case WriteAdvertisingEnable:
		return "WriteAdvertisingEnable"
	case WriteAdvertisingParameters:
		return "WriteAdvertisingParameters"
	case WriteAdvertisingData:
		return "WriteAdvertisingData"
	case WriteScanResponseData:
		return "WriteScanResponseData"
	default:
		return fmt.Sprintf("CommandID(%d)", int(id))
	}
}

// CommandSpec is the wire description of a command: its opcode and its
// fixed parameter length.
type CommandSpec struct {
	OpCode   uint16
	ParamLen uint8
}

func opcode(ogf, ocf uint16) uint16 {
	return ogf<<ogfBitShift | ocf
}

var catalog = [numCommands]CommandSpec{
	Reset:                      {OpCode: opcode(ogfHostCtl, ocfReset), ParamLen: 0},
	WriteAdvertisingEnable:     {OpCode: opcode(ogfLECtl, ocfLESetAdvertiseEnable), ParamLen: 1},
	WriteAdvertisingParameters: {OpCode: opcode(ogfLECtl, ocfLESetAdvertisingParams), ParamLen: 15},
	WriteAdvertisingData:       {OpCode: opcode(ogfLECtl, ocfLESetAdvertisingData), ParamLen: 31},
	WriteScanResponseData:      {OpCode: opcode(ogfLECtl, ocfLESetScanRespData), ParamLen: 31},
}

// Lookup returns the wire description for id.
func Lookup(id CommandID) (CommandSpec, bool) {
	if id < 0 || id >= numCommands {
		return CommandSpec{}, false
	}
	return catalog[id], true
}

// BuildFrame assembles a complete H4 command frame for id. params must
// either be empty, leaving the parameter region zero filled at its
// declared length, or match the declared length exactly.
func BuildFrame(id CommandID, params []byte) ([]byte, error) {
	def, ok := Lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown command id %d", int(id))
	}
	if len(params) != 0 && len(params) != int(def.ParamLen) {
		return nil, fmt.Errorf("%v: got %d param bytes, want %d", id, len(params), def.ParamLen)
	}

	b := make([]byte, 4+int(def.ParamLen))
	b[0] = pktTypeCommand
	b[1] = byte(def.OpCode)
	b[2] = byte(def.OpCode >> 8)
	b[3] = def.ParamLen
	copy(b[4:], params)
	return b, nil
}

// marshalFrame assembles a complete H4 command frame for a typed
// command.
func marshalFrame(c Command) ([]byte, error) {
	b := make([]byte, 4+c.Len())
	b[0] = pktTypeCommand
	b[1] = byte(c.OpCode())
	b[2] = byte(c.OpCode() >> 8)
	b[3] = byte(c.Len())
	if err := c.Marshal(b[4:]); err != nil {
		return nil, errors.Wrap(err, "marshal command")
	}
	return b, nil
}
