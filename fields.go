package bleadv

import (
	"fmt"
	"math"
)

// AdvType is the advertising PDU type.
type AdvType uint8

// Advertising types.
const (
	AdvInd           AdvType = 0x00
	AdvDirectIndHigh AdvType = 0x01
	AdvScanInd       AdvType = 0x02
	AdvNonconnInd    AdvType = 0x03
	AdvDirectIndLow  AdvType = 0x04
)

// Ptr returns a pointer to t for building sparse field sets.
func (t AdvType) Ptr() *AdvType { return &t }

// AddrType is a device address type.
type AddrType uint8

// Address types.
const (
	AddrPublic    AddrType = 0x00
	AddrRandom    AddrType = 0x01
	AddrRPAPublic AddrType = 0x02
	AddrRPARandom AddrType = 0x03
)

// Ptr returns a pointer to t for building sparse field sets.
func (t AddrType) Ptr() *AddrType { return &t }

// ChannelMap is a bitmask over the advertising channels.
type ChannelMap uint8

// Advertising channels.
const (
	Channel37 ChannelMap = 1 << iota
	Channel38
	Channel39

	ChannelAll = Channel37 | Channel38 | Channel39
)

// Ptr returns a pointer to m for building sparse field sets.
func (m ChannelMap) Ptr() *ChannelMap { return &m }

// FilterPolicy controls whitelist use for scan and connection requests.
type FilterPolicy uint8

// Filter policies.
const (
	FilterScanAnyConnAny FilterPolicy = iota
	FilterScanWhitelistConnAny
	FilterScanAnyConnWhitelist
	FilterScanWhitelistConnWhitelist
)

// Ptr returns a pointer to p for building sparse field sets.
func (p FilterPolicy) Ptr() *FilterPolicy { return &p }

// U16 returns a pointer to v for building sparse field sets.
func U16(v uint16) *uint16 { return &v }

// U8 returns a pointer to v for building sparse field sets.
func U8(v uint8) *uint8 { return &v }

// Bool returns a pointer to v for building sparse field sets.
func Bool(v bool) *bool { return &v }

// Clear marks a payload field for removal when assigned to a DataFields
// entry. Distinct from a zero-length value, which leaves the field
// untouched.
var Clear clear

type clear struct{}

// ParamFields is a sparse update to the advertising parameters. Only
// non-nil fields are applied; the rest keep their stored values.
// Intervals are given in milliseconds and converted to controller units
// on storage.
type ParamFields struct {
	IntervalMinMs *uint16
	IntervalMaxMs *uint16
	Type          *AdvType
	OwnAddrType   *AddrType
	PeerAddr      []byte
	PeerAddrType  *AddrType
	ChannelMap    *ChannelMap
	FilterPolicy  *FilterPolicy
}

// DataFields is a sparse update to the advertising payload. Only
// non-nil fields are applied. The interface{} fields accept a value or
// the Clear sentinel:
//
//	Name             string, []byte or Clear
//	ManufacturerData []byte or Clear
//	ServiceData      []byte or Clear
//	ServiceUUIDs     []uint16, packed little-endian []byte or Clear
//
// Any other value shape fails the whole update with a FieldError.
type DataFields struct {
	ScanResponse     *bool
	Name             interface{}
	ManufacturerData interface{}
	ServiceData      interface{}
	ServiceUUIDs     interface{}
	IncludeTxPower   *bool
	IntervalMinUnits *uint16
	IntervalMaxUnits *uint16
	Appearance       *uint16
	Flags            *uint8
}

// AdvertisingParameters is the resolved parameter record in the form it
// is serialized for the controller. Intervals are stored pre-scaled in
// 0.625 ms units.
type AdvertisingParameters struct {
	IntervalMinUnits uint16       `json:"intervalMin"`
	IntervalMaxUnits uint16       `json:"intervalMax"`
	Type             AdvType      `json:"type"`
	OwnAddrType      AddrType     `json:"ownAddrType"`
	PeerAddr         [6]byte      `json:"peerAddr"`
	PeerAddrType     AddrType     `json:"peerAddrType"`
	ChannelMap       ChannelMap   `json:"channelMap"`
	FilterPolicy     FilterPolicy `json:"filterPolicy"`
}

// IntervalMinMs reports the stored minimum interval in milliseconds.
func (p AdvertisingParameters) IntervalMinMs() float64 { return UnitsToMs(p.IntervalMinUnits) }

// IntervalMaxMs reports the stored maximum interval in milliseconds.
func (p AdvertisingParameters) IntervalMaxMs() float64 { return UnitsToMs(p.IntervalMaxUnits) }

func (p AdvertisingParameters) String() string {
	return fmt.Sprintf("interval [%.1f, %.1f] ms, type %d, own addr type %d, peer %s type %d, channels %#02x, filter %d",
		p.IntervalMinMs(), p.IntervalMaxMs(), p.Type, p.OwnAddrType, BytesToAddr(p.PeerAddr[:]), p.PeerAddrType, p.ChannelMap, p.FilterPolicy)
}

// AdvertisingData is the resolved payload record. The byte slices are
// owned by the record; accessors hand out copies.
type AdvertisingData struct {
	ScanResponse     bool   `json:"scanResponse"`
	IncludeName      bool   `json:"includeName"`
	IncludeTxPower   bool   `json:"includeTxPower"`
	IntervalMinUnits uint16 `json:"intervalMin"`
	IntervalMaxUnits uint16 `json:"intervalMax"`
	Appearance       uint16 `json:"appearance"`
	Flags            uint8  `json:"flags"`
	Name             []byte `json:"name,omitempty"`
	ManufacturerData []byte `json:"manufacturerData,omitempty"`
	ServiceData      []byte `json:"serviceData,omitempty"`
	ServiceUUIDs     []byte `json:"serviceUuids,omitempty"`
}

// Profile bundles a parameter record and a payload record so a complete
// advertising setup can be captured and restored as one unit.
type Profile struct {
	Params AdvertisingParameters `json:"params"`
	Data   AdvertisingData       `json:"data"`
}

// MsToUnits converts a millisecond interval to 0.625 ms controller
// units, rounded to the nearest unit.
func MsToUnits(ms uint16) uint16 {
	return uint16(math.Round(float64(ms) * 1.6))
}

// UnitsToMs converts 0.625 ms controller units back to milliseconds.
func UnitsToMs(units uint16) float64 {
	return float64(units) / 1.6
}
