package adv

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bthost/bleadv/sliceops"
)

// Packet crafts or parses an advertising packet or scan response.
// Refer to Supplement to Bluetooth Core Specification | CSSv6, Part A.
type Packet struct {
	b []byte
	m map[string]interface{}
}

// Bytes returns the bytes of the packet.
func (p *Packet) Bytes() []byte {
	return p.b
}

// Len returns the length of the packet.
func (p *Packet) Len() int {
	return len(p.b)
}

// NewPacket returns a new advertising Packet.
func NewPacket(fields ...Field) (*Packet, error) {
	p := &Packet{b: make([]byte, 0, MaxEIRPacketLength)}
	for _, f := range fields {
		if err := f(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewRawPacket returns an advertising Packet parsed from raw bytes.
func NewRawPacket(bytes ...[]byte) (*Packet, error) {
	b := make([]byte, 0, MaxEIRPacketLength)
	for _, bb := range bytes {
		b = append(b, bb...)
	}

	m, err := decode(b)
	if err != nil {
		return nil, errors.Wrap(err, "pdu decode")
	}

	p := &Packet{b: b, m: m}
	return p, nil
}

// Field is an advertising field which can be appended to a packet.
type Field func(p *Packet) error

// Append appends a field to the packet. It returns ErrNotFit if the field
// doesn't fit into the packet, and leaves the packet intact.
func (p *Packet) Append(f Field) error {
	return f(p)
}

// append appends a record to the packet. It returns ErrNotFit if the
// record doesn't fit into the packet, and leaves the packet intact.
func (p *Packet) append(typ byte, b []byte) error {
	if p.Len()+1+1+len(b) > MaxEIRPacketLength {
		return ErrNotFit
	}
	p.b = append(p.b, byte(len(b)+1))
	p.b = append(p.b, typ)
	p.b = append(p.b, b...)
	return nil
}

// Raw appends the bytes to the current packet.
// This is helpful for creating new packet from existing packets.
func Raw(b []byte) Field {
	return func(p *Packet) error {
		if p.Len()+len(b) > MaxEIRPacketLength {
			return ErrNotFit
		}
		p.b = append(p.b, b...)
		return nil
	}
}

// Flags is a flags.
func Flags(f byte) Field {
	return func(p *Packet) error {
		return p.append(flags, []byte{f})
	}
}

// ShortName is a short local name.
func ShortName(n string) Field {
	return func(p *Packet) error {
		return p.append(nameshort, []byte(n))
	}
}

// CompleteName is a complete local name.
func CompleteName(n string) Field {
	return func(p *Packet) error {
		return p.append(namecomp, []byte(n))
	}
}

// TxPower is the transmit power level.
func TxPower(pwr int8) Field {
	return func(p *Packet) error {
		return p.append(txpwr, []byte{uint8(pwr)})
	}
}

// ManufacturerData is manufacturer specific data prefixed with the
// company identifier.
func ManufacturerData(id uint16, b []byte) Field {
	return func(p *Packet) error {
		d := append([]byte{uint8(id), uint8(id >> 8)}, b...)
		return p.append(mfgdata, d)
	}
}

// UUID16List is the complete list of 16-bit service UUIDs, packed
// little-endian two bytes each.
func UUID16List(b []byte) Field {
	return func(p *Packet) error {
		if len(b)%2 != 0 {
			return ErrInvalid
		}
		return p.append(uuid16comp, b)
	}
}

// ServiceData16 is service data for a 16-bit service uuid.
func ServiceData16(id uint16, b []byte) Field {
	return func(p *Packet) error {
		d := append([]byte{uint8(id), uint8(id >> 8)}, b...)
		return p.append(svc16, d)
	}
}

// ConnIntervalRange is the slave preferred connection interval range.
func ConnIntervalRange(min, max uint16) Field {
	return func(p *Packet) error {
		d := make([]byte, 4)
		binary.LittleEndian.PutUint16(d, min)
		binary.LittleEndian.PutUint16(d[2:], max)
		return p.append(connint, d)
	}
}

// Appearance is the external appearance category code.
func Appearance(a uint16) Field {
	return func(p *Packet) error {
		d := make([]byte, 2)
		binary.LittleEndian.PutUint16(d, a)
		return p.append(appearance, d)
	}
}

// IBeaconData returns an iBeacon advertising packet with specified parameters.
func IBeaconData(md []byte) Field {
	return func(p *Packet) error {
		return ManufacturerData(0x004C, md)(p)
	}
}

// IBeacon returns an iBeacon advertising packet with specified parameters.
// The proximity uuid must be 16 bytes.
func IBeacon(u []byte, major, minor uint16, pwr int8) Field {
	return func(p *Packet) error {
		if len(u) != 16 {
			return ErrInvalid
		}
		md := make([]byte, 23)
		md[0] = 0x02                               // Data type: iBeacon
		md[1] = 0x15                               // Data length: 21 bytes
		copy(md[2:], sliceops.SwapBuf(u))          // Big endian
		binary.BigEndian.PutUint16(md[18:], major) // Big endian
		binary.BigEndian.PutUint16(md[20:], minor) // Big endian
		md[22] = uint8(pwr)                        // Measured Tx Power
		return ManufacturerData(0x004C, md)(p)
	}
}

// Flags returns the flags of the packet.
func (p *Packet) Flags() (f byte, present bool) {
	if b, ok := p.m[keys.flags].([]byte); ok {
		return b[0], true
	}
	return 0, false
}

// LocalName returns the complete or shortened local name if present.
func (p *Packet) LocalName() string {
	if b, ok := p.m[keys.name].([]byte); ok {
		return string(b)
	}
	return ""
}

// TxPower returns the TxPower, if it presents.
func (p *Packet) TxPower() (power int, present bool) {
	if b, ok := p.m[keys.txpwr].([]byte); ok {
		return int(int8(b[0])), true
	}
	return 0, false
}

// Appearance returns the appearance code, if it presents.
func (p *Packet) Appearance() (a uint16, present bool) {
	if b, ok := p.m[keys.appearance].([]byte); ok && len(b) == 2 {
		return binary.LittleEndian.Uint16(b), true
	}
	return 0, false
}

// ConnIntervalRange returns the preferred connection interval range, if
// it presents.
func (p *Packet) ConnIntervalRange() (min, max uint16, present bool) {
	if b, ok := p.m[keys.connint].([]byte); ok && len(b) == 4 {
		return binary.LittleEndian.Uint16(b), binary.LittleEndian.Uint16(b[2:]), true
	}
	return 0, 0, false
}

// UUID16s returns the 16-bit service UUIDs of the packet.
func (p *Packet) UUID16s() []uint16 {
	v, ok := p.m[keys.uuid16].([]interface{})
	if !ok {
		return nil
	}
	var u []uint16
	for _, vv := range v {
		b, ok := vv.([]byte)
		if !ok || len(b) != 2 {
			continue
		}
		u = append(u, binary.LittleEndian.Uint16(b))
	}
	return u
}

// ServiceData holds a service data record.
type ServiceData struct {
	UUID uint16
	Data []byte
}

// ServiceData returns the 16-bit uuid service data records of the packet.
func (p *Packet) ServiceData() []ServiceData {
	var s []ServiceData
	if b, ok := p.m[keys.svc16].([]byte); ok && len(b) >= 2 {
		sd := ServiceData{
			UUID: binary.LittleEndian.Uint16(b),
			Data: make([]byte, len(b)-2),
		}
		copy(sd.Data, b[2:])
		s = append(s, sd)
	}
	return s
}

// ManufacturerData returns the ManufacturerData field if it presents.
func (p *Packet) ManufacturerData() []byte {
	v, _ := p.m[keys.mfgdata].([]byte)
	return v
}
