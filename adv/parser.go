package adv

import (
	"fmt"

	"github.com/pkg/errors"
)

// https://www.bluetooth.org/en-us/specification/assigned-numbers/generic-access-profile
const (
	flags       = 0x01
	uuid16inc   = 0x02
	uuid16comp  = 0x03
	uuid32inc   = 0x04
	uuid32comp  = 0x05
	uuid128inc  = 0x06
	uuid128comp = 0x07
	nameshort   = 0x08
	namecomp    = 0x09
	txpwr       = 0x0a
	connint     = 0x12
	svc16       = 0x16
	appearance  = 0x19
	mfgdata     = 0xff
)

var keys = struct {
	flags      string
	uuid16     string
	uuid32     string
	uuid128    string
	svc16      string
	name       string
	txpwr      string
	connint    string
	appearance string
	mfgdata    string
}{
	flags:      "flags",
	uuid16:     "uuid16",
	uuid32:     "uuid32",
	uuid128:    "uuid128",
	svc16:      "svc16",
	name:       "name",
	txpwr:      "txpwr",
	connint:    "connint",
	appearance: "appearance",
	mfgdata:    "mfg",
}

type pduRecord struct {
	key            string
	minSz          int
	arrayElementSz int
}

var pduDecodeMap = map[byte]pduRecord{
	flags:       {key: keys.flags, minSz: 1},
	uuid16inc:   {key: keys.uuid16, minSz: 2, arrayElementSz: 2},
	uuid16comp:  {key: keys.uuid16, minSz: 2, arrayElementSz: 2},
	uuid32inc:   {key: keys.uuid32, minSz: 4, arrayElementSz: 4},
	uuid32comp:  {key: keys.uuid32, minSz: 4, arrayElementSz: 4},
	uuid128inc:  {key: keys.uuid128, minSz: 16, arrayElementSz: 16},
	uuid128comp: {key: keys.uuid128, minSz: 16, arrayElementSz: 16},
	svc16:       {key: keys.svc16, minSz: 2},
	nameshort:   {key: keys.name, minSz: 1},
	namecomp:    {key: keys.name, minSz: 1},
	txpwr:       {key: keys.txpwr, minSz: 1},
	connint:     {key: keys.connint, minSz: 4},
	appearance:  {key: keys.appearance, minSz: 2},
	mfgdata:     {key: keys.mfgdata, minSz: 1},
}

// chunk splits b into size wide elements. The total length must divide
// evenly.
func chunk(size int, b []byte) ([]interface{}, error) {
	if size <= 0 || len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("payload length %d is not a multiple of %d", len(b), size)
	}

	out := make([]interface{}, 0, len(b)/size)
	for i := 0; i < len(b); i += size {
		out = append(out, b[i:i+size])
	}
	return out, nil
}

// decode walks the length-type-value records of pdu into a keyed map.
// Unknown record types are skipped. A zero length byte ends the walk,
// everything after it is padding.
func decode(pdu []byte) (map[string]interface{}, error) {
	if pdu == nil {
		return nil, fmt.Errorf("nil pdu")
	}

	m := make(map[string]interface{})
	for i := 0; i+1 < len(pdu); {
		length := int(pdu[i])
		if length == 0 {
			break
		}
		if i+length >= len(pdu) {
			return nil, fmt.Errorf("record at %d runs past the buffer: want %d, have %d", i, i+length, len(pdu))
		}

		typ := pdu[i+1]
		val := pdu[i+2 : i+1+length]
		i += length + 1

		dec, ok := pduDecodeMap[typ]
		if !ok {
			continue
		}
		if len(val) < dec.minSz {
			return nil, fmt.Errorf("adv type %v: min length %v, have %v", typ, dec.minSz, len(val))
		}

		if dec.arrayElementSz > 0 {
			arr, err := chunk(dec.arrayElementSz, val)
			if err != nil {
				return nil, errors.Wrapf(err, "adv type %v", typ)
			}
			m[dec.key] = arr
			continue
		}
		m[dec.key] = val
	}

	return m, nil
}
