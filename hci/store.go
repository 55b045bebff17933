package hci

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/bthost/bleadv"
	"github.com/bthost/bleadv/adv"
	"github.com/bthost/bleadv/hci/cmd"
	"github.com/bthost/bleadv/sliceops"
)

const (
	AdvIntervalMin = 0x0020 // 0x0020 - 0x4000; N * 0.625 msec
	AdvIntervalMax = 0x4000 // 0x0020 - 0x4000; N * 0.625 msec
)

// store holds the advertising configuration staged for the controller.
// All access goes through the embedded lock so renders never observe a
// half-applied update.
type store struct {
	sync.RWMutex

	params bleadv.AdvertisingParameters
	data   bleadv.AdvertisingData

	setName func(string)
	logger  bleadv.Logger
}

func (s *store) init(l bleadv.Logger) {
	s.logger = l
	s.params = bleadv.AdvertisingParameters{
		IntervalMinUnits: 0x0800, // 1280 msec * 1.6
		IntervalMaxUnits: 0x0800, // 1280 msec * 1.6
		Type:             bleadv.AdvInd,
		OwnAddrType:      bleadv.AddrPublic,
		PeerAddr:         [6]byte{},
		PeerAddrType:     bleadv.AddrPublic,
		ChannelMap:       bleadv.ChannelAll,
		FilterPolicy:     bleadv.FilterScanAnyConnAny,
	}
	s.data = bleadv.AdvertisingData{
		Flags: adv.FlagGeneralDiscoverable | adv.FlagLEOnly,
	}
}

func (s *store) bindController(setName func(string)) {
	s.Lock()
	defer s.Unlock()
	s.setName = setName
}

// SetParameters merges the present fields into the parameter record.
// Millisecond intervals are scaled to controller units on the way in.
// A bad peer address rejects the whole update.
func (s *store) SetParameters(f bleadv.ParamFields) (bool, error) {
	if f.PeerAddr != nil && len(f.PeerAddr) != 6 {
		return false, errors.Wrapf(bleadv.ErrInvalidAddressLength, "got %d bytes", len(f.PeerAddr))
	}

	s.Lock()
	defer s.Unlock()

	p := s.params
	if f.IntervalMinMs != nil {
		p.IntervalMinUnits = bleadv.MsToUnits(*f.IntervalMinMs)
	}
	if f.IntervalMaxMs != nil {
		p.IntervalMaxUnits = bleadv.MsToUnits(*f.IntervalMaxMs)
	}
	if f.Type != nil {
		p.Type = *f.Type
	}
	if f.OwnAddrType != nil {
		p.OwnAddrType = *f.OwnAddrType
	}
	if f.PeerAddr != nil {
		copy(p.PeerAddr[:], f.PeerAddr)
	}
	if f.PeerAddrType != nil {
		p.PeerAddrType = *f.PeerAddrType
	}
	if f.ChannelMap != nil {
		p.ChannelMap = *f.ChannelMap
	}
	if f.FilterPolicy != nil {
		p.FilterPolicy = *f.FilterPolicy
	}

	// Out of range values are stored as given; the controller rejects
	// them at enable time.
	if err := ValidateAdvParams(p); err != nil {
		s.logger.Warnf("adv params: %v", err)
	}

	changed := p != s.params
	s.params = p
	return changed, nil
}

// SetData merges the present fields into the payload record. Every
// supplied field is validated before any of them is applied.
func (s *store) SetData(f bleadv.DataFields) (bool, error) {
	name, nameSet, err := coerceName(f.Name)
	if err != nil {
		return false, err
	}
	mfg, mfgSet, err := coerceBytes("ManufacturerData", f.ManufacturerData, 2)
	if err != nil {
		return false, err
	}
	svcData, svcDataSet, err := coerceBytes("ServiceData", f.ServiceData, 2)
	if err != nil {
		return false, err
	}
	uuids, uuidsSet, err := coerceUUIDs(f.ServiceUUIDs)
	if err != nil {
		return false, err
	}

	s.Lock()
	defer s.Unlock()

	changed := false
	if f.ScanResponse != nil && *f.ScanResponse != s.data.ScanResponse {
		s.data.ScanResponse = *f.ScanResponse
		changed = true
	}
	if nameSet {
		if name == nil {
			if s.data.IncludeName || len(s.data.Name) > 0 {
				changed = true
			}
			s.data.Name = nil
			s.data.IncludeName = false
			s.sendName("")
		} else {
			if !s.data.IncludeName || !bytes.Equal(s.data.Name, name) {
				changed = true
			}
			s.data.Name = name
			s.data.IncludeName = true
			s.sendName(string(name))
		}
	}
	if mfgSet && !bytes.Equal(s.data.ManufacturerData, mfg) {
		s.data.ManufacturerData = mfg
		changed = true
	}
	if svcDataSet && !bytes.Equal(s.data.ServiceData, svcData) {
		s.data.ServiceData = svcData
		changed = true
	}
	if uuidsSet && !bytes.Equal(s.data.ServiceUUIDs, uuids) {
		s.data.ServiceUUIDs = uuids
		changed = true
	}
	if f.IncludeTxPower != nil && *f.IncludeTxPower != s.data.IncludeTxPower {
		s.data.IncludeTxPower = *f.IncludeTxPower
		changed = true
	}
	if f.IntervalMinUnits != nil && *f.IntervalMinUnits != s.data.IntervalMinUnits {
		s.data.IntervalMinUnits = *f.IntervalMinUnits
		changed = true
	}
	if f.IntervalMaxUnits != nil && *f.IntervalMaxUnits != s.data.IntervalMaxUnits {
		s.data.IntervalMaxUnits = *f.IntervalMaxUnits
		changed = true
	}
	if f.Appearance != nil && *f.Appearance != s.data.Appearance {
		s.data.Appearance = *f.Appearance
		changed = true
	}
	if f.Flags != nil && *f.Flags != s.data.Flags {
		s.data.Flags = *f.Flags
		changed = true
	}

	return changed, nil
}

// Restore replaces both records with a saved profile.
func (s *store) Restore(p bleadv.Profile) bool {
	s.Lock()
	defer s.Unlock()

	changed := p.Params != s.params || !dataEqual(p.Data, s.data)
	s.params = p.Params
	s.data = bleadv.AdvertisingData{
		ScanResponse:     p.Data.ScanResponse,
		IncludeName:      p.Data.IncludeName,
		IncludeTxPower:   p.Data.IncludeTxPower,
		IntervalMinUnits: p.Data.IntervalMinUnits,
		IntervalMaxUnits: p.Data.IntervalMaxUnits,
		Appearance:       p.Data.Appearance,
		Flags:            p.Data.Flags,
		Name:             copyBytes(p.Data.Name),
		ManufacturerData: copyBytes(p.Data.ManufacturerData),
		ServiceData:      copyBytes(p.Data.ServiceData),
		ServiceUUIDs:     copyBytes(p.Data.ServiceUUIDs),
	}
	if s.data.IncludeName && len(s.data.Name) > 0 {
		s.sendName(string(s.data.Name))
	}
	return changed
}

func (s *store) scanResponse() bool {
	s.RLock()
	defer s.RUnlock()
	return s.data.ScanResponse
}

// setFromCommand replaces the parameter record with the contents of a
// typed parameter command.
func (s *store) setFromCommand(p cmd.LESetAdvertisingParameters) {
	s.Lock()
	defer s.Unlock()
	s.params = bleadv.AdvertisingParameters{
		IntervalMinUnits: p.AdvertisingIntervalMin,
		IntervalMaxUnits: p.AdvertisingIntervalMax,
		Type:             bleadv.AdvType(p.AdvertisingType),
		OwnAddrType:      bleadv.AddrType(p.OwnAddressType),
		PeerAddr:         p.PeerAddress,
		PeerAddrType:     bleadv.AddrType(p.PeerAddressType),
		ChannelMap:       bleadv.ChannelMap(p.AdvertisingChannelMap),
		FilterPolicy:     bleadv.FilterPolicy(p.AdvertisingFilterPolicy),
	}
}

// releaseData drops the owned payload buffers.
func (s *store) releaseData() {
	s.Lock()
	defer s.Unlock()
	s.data.Name = nil
	s.data.ManufacturerData = nil
	s.data.ServiceData = nil
	s.data.ServiceUUIDs = nil
	s.data.IncludeName = false
}

// Parameters returns a snapshot of the parameter record.
func (s *store) Parameters() bleadv.AdvertisingParameters {
	s.RLock()
	defer s.RUnlock()
	return s.params
}

// Data returns a snapshot of the payload record. The buffers are copies.
func (s *store) Data() bleadv.AdvertisingData {
	s.RLock()
	defer s.RUnlock()
	d := s.data
	d.Name = copyBytes(s.data.Name)
	d.ManufacturerData = copyBytes(s.data.ManufacturerData)
	d.ServiceData = copyBytes(s.data.ServiceData)
	d.ServiceUUIDs = copyBytes(s.data.ServiceUUIDs)
	return d
}

// RenderParameters serializes the parameter record into the 15 byte
// form the controller takes. The peer address goes out least
// significant byte first.
func (s *store) RenderParameters() [15]byte {
	s.RLock()
	defer s.RUnlock()

	var b [15]byte
	binary.LittleEndian.PutUint16(b[0:], s.params.IntervalMinUnits)
	binary.LittleEndian.PutUint16(b[2:], s.params.IntervalMaxUnits)
	b[4] = byte(s.params.Type)
	b[5] = byte(s.params.OwnAddrType)
	copy(b[6:12], sliceops.SwapBuf(s.params.PeerAddr[:]))
	b[12] = byte(s.params.PeerAddrType)
	b[13] = byte(s.params.ChannelMap)
	b[14] = byte(s.params.FilterPolicy)
	return b
}

// RenderData serializes the payload record into the 31 byte form the
// controller takes: significant length at byte 0, records after it,
// zero padded.
func (s *store) RenderData() [31]byte {
	s.RLock()
	defer s.RUnlock()
	return renderData(s.data, s.logger)
}

func renderData(d bleadv.AdvertisingData, l bleadv.Logger) [31]byte {
	var out [31]byte
	budget := len(out) - 1 // length prefix is outside the record region

	p, _ := adv.NewPacket()
	add := func(what string, encLen int, f adv.Field) {
		if p.Len()+encLen > budget {
			l.Warnf("adv data: %v does not fit, dropped", what)
			return
		}
		if err := p.Append(f); err != nil {
			l.Warnf("adv data: %v: %v", what, err)
		}
	}

	if d.Flags != 0 {
		add("flags", 3, adv.Flags(d.Flags))
	}
	if len(d.ServiceUUIDs) > 0 {
		add("service uuids", 2+len(d.ServiceUUIDs), adv.UUID16List(d.ServiceUUIDs))
	}
	if len(d.ServiceData) >= 2 {
		id := binary.LittleEndian.Uint16(d.ServiceData)
		add("service data", 2+len(d.ServiceData), adv.ServiceData16(id, d.ServiceData[2:]))
	}
	if d.Appearance != 0 {
		add("appearance", 4, adv.Appearance(d.Appearance))
	}
	if d.IntervalMinUnits != 0 || d.IntervalMaxUnits != 0 {
		add("conn interval range", 6, adv.ConnIntervalRange(d.IntervalMinUnits, d.IntervalMaxUnits))
	}
	if d.IncludeTxPower {
		// the controller substitutes the actual level
		add("tx power", 3, adv.TxPower(0))
	}
	if len(d.ManufacturerData) >= 2 {
		id := binary.LittleEndian.Uint16(d.ManufacturerData)
		add("manufacturer data", 2+len(d.ManufacturerData), adv.ManufacturerData(id, d.ManufacturerData[2:]))
	}

	// name goes last so everything else gets budget first
	if d.IncludeName && len(d.Name) > 0 {
		room := budget - p.Len() - 2
		switch {
		case room >= len(d.Name):
			p.Append(adv.CompleteName(string(d.Name)))
		case room > 0:
			l.Warnf("adv data: name truncated to %d bytes", room)
			p.Append(adv.ShortName(string(d.Name[:room])))
		default:
			l.Warnf("adv data: name does not fit, dropped")
		}
	}

	out[0] = byte(p.Len())
	copy(out[1:], p.Bytes())
	return out
}

// describePayload decodes a rendered payload back into a readable
// summary for debug logs.
func describePayload(b []byte) string {
	if len(b) == 0 || b[0] == 0 || 1+int(b[0]) > len(b) {
		return "empty"
	}
	p, err := adv.NewRawPacket(b[1 : 1+int(b[0])])
	if err != nil {
		return fmt.Sprintf("undecodable: %v", err)
	}

	var parts []string
	if f, ok := p.Flags(); ok {
		parts = append(parts, fmt.Sprintf("flags %#02x", f))
	}
	if n := p.LocalName(); n != "" {
		parts = append(parts, fmt.Sprintf("name %q", n))
	}
	if uu := p.UUID16s(); len(uu) > 0 {
		parts = append(parts, fmt.Sprintf("uuid16 %04x", uu))
	}
	for _, sd := range p.ServiceData() {
		parts = append(parts, fmt.Sprintf("svc data %04x [% X]", sd.UUID, sd.Data))
	}
	if a, ok := p.Appearance(); ok {
		parts = append(parts, fmt.Sprintf("appearance %#04x", a))
	}
	if min, max, ok := p.ConnIntervalRange(); ok {
		parts = append(parts, fmt.Sprintf("conn interval [%d, %d]", min, max))
	}
	if pwr, ok := p.TxPower(); ok {
		parts = append(parts, fmt.Sprintf("tx power %d", pwr))
	}
	if md := p.ManufacturerData(); len(md) >= 2 {
		parts = append(parts, fmt.Sprintf("mfg %02x%02x [% X]", md[1], md[0], md[2:]))
	}
	if len(parts) == 0 {
		return "no known records"
	}
	return strings.Join(parts, ", ")
}

func (s *store) sendName(n string) {
	if s.setName == nil {
		s.logger.Debugf("no controller bound, device name %q not forwarded", n)
		return
	}
	s.setName(n)
}

// ValidateAdvParams range checks a parameter record.
func ValidateAdvParams(p bleadv.AdvertisingParameters) error {
	switch {
	case p.IntervalMinUnits < AdvIntervalMin || p.IntervalMinUnits > AdvIntervalMax:
		return fmt.Errorf("invalid IntervalMin %v", p.IntervalMinUnits)

	case p.IntervalMaxUnits < AdvIntervalMin || p.IntervalMaxUnits > AdvIntervalMax:
		return fmt.Errorf("invalid IntervalMax %v", p.IntervalMaxUnits)

	case p.IntervalMinUnits > p.IntervalMaxUnits:
		return fmt.Errorf("IntervalMin %v > IntervalMax %v", p.IntervalMinUnits, p.IntervalMaxUnits)

	case p.Type > bleadv.AdvDirectIndLow:
		return fmt.Errorf("invalid Type %v", p.Type)

	case p.OwnAddrType > bleadv.AddrRPARandom:
		return fmt.Errorf("invalid OwnAddrType %v", p.OwnAddrType)

	case p.PeerAddrType > bleadv.AddrRPARandom:
		return fmt.Errorf("invalid PeerAddrType %v", p.PeerAddrType)

	case p.ChannelMap == 0 || p.ChannelMap > bleadv.ChannelAll:
		return fmt.Errorf("invalid ChannelMap %#02x", uint8(p.ChannelMap))

	case p.FilterPolicy > bleadv.FilterScanWhitelistConnWhitelist:
		return fmt.Errorf("invalid FilterPolicy %v", p.FilterPolicy)
	}

	return nil
}

func coerceName(v interface{}) ([]byte, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	if v == bleadv.Clear {
		return nil, true, nil
	}
	switch n := v.(type) {
	case string:
		if n == "" {
			return nil, true, nil
		}
		return []byte(n), true, nil
	case []byte:
		if len(n) == 0 {
			return nil, true, nil
		}
		return copyBytes(n), true, nil
	default:
		return nil, false, &bleadv.FieldError{Field: "Name"}
	}
}

func coerceBytes(field string, v interface{}, minLen int) ([]byte, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	if v == bleadv.Clear {
		return nil, true, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, &bleadv.FieldError{Field: field}
	}
	if len(b) == 0 {
		// a zero length non clearing update changes nothing
		return nil, false, nil
	}
	if len(b) < minLen {
		return nil, false, &bleadv.FieldError{Field: field}
	}
	return copyBytes(b), true, nil
}

func coerceUUIDs(v interface{}) ([]byte, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	if v == bleadv.Clear {
		return nil, true, nil
	}
	switch u := v.(type) {
	case []uint16:
		if len(u) == 0 {
			return nil, false, nil
		}
		b := make([]byte, 2*len(u))
		for i, id := range u {
			binary.LittleEndian.PutUint16(b[2*i:], id)
		}
		return b, true, nil
	case []byte:
		if len(u) == 0 {
			return nil, false, nil
		}
		if len(u)%2 != 0 {
			return nil, false, &bleadv.FieldError{Field: "ServiceUUIDs"}
		}
		return copyBytes(u), true, nil
	default:
		return nil, false, &bleadv.FieldError{Field: "ServiceUUIDs"}
	}
}

func dataEqual(a, b bleadv.AdvertisingData) bool {
	return a.ScanResponse == b.ScanResponse &&
		a.IncludeName == b.IncludeName &&
		a.IncludeTxPower == b.IncludeTxPower &&
		a.IntervalMinUnits == b.IntervalMinUnits &&
		a.IntervalMaxUnits == b.IntervalMaxUnits &&
		a.Appearance == b.Appearance &&
		a.Flags == b.Flags &&
		bytes.Equal(a.Name, b.Name) &&
		bytes.Equal(a.ManufacturerData, b.ManufacturerData) &&
		bytes.Equal(a.ServiceData, b.ServiceData) &&
		bytes.Equal(a.ServiceUUIDs, b.ServiceUUIDs)
}

func copyBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
