package adv

import (
	"bytes"
	"reflect"
	"testing"
)

// record renders one length-type-value record.
func record(typ byte, payload ...byte) []byte {
	return append([]byte{byte(len(payload) + 1), typ}, payload...)
}

func pdu(records ...[]byte) []byte {
	var b []byte
	for _, r := range records {
		b = append(b, r...)
	}
	return b
}

func TestDecodeUUIDLists(t *testing.T) {
	cases := []struct {
		name string
		typ  byte
		key  string
		sz   int
	}{
		{"uuid16 incomplete", uuid16inc, keys.uuid16, 2},
		{"uuid16 complete", uuid16comp, keys.uuid16, 2},
		{"uuid32 incomplete", uuid32inc, keys.uuid32, 4},
		{"uuid32 complete", uuid32comp, keys.uuid32, 4},
		{"uuid128 incomplete", uuid128inc, keys.uuid128, 16},
		{"uuid128 complete", uuid128comp, keys.uuid128, 16},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			first := make([]byte, c.sz)
			second := make([]byte, c.sz)
			for i := 0; i < c.sz; i++ {
				first[i] = byte(i)
				second[i] = byte(128 + i)
			}

			m, err := decode(pdu(record(c.typ, append(first, second...)...)))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			arr, ok := m[c.key].([]interface{})
			if !ok {
				t.Fatalf("key %q missing or wrong type: %v", c.key, reflect.TypeOf(m[c.key]))
			}
			if len(arr) != 2 || !bytes.Equal(arr[0].([]byte), first) || !bytes.Equal(arr[1].([]byte), second) {
				t.Fatalf("bad elements: %v", arr)
			}

			if _, err := decode(pdu(record(c.typ))); err == nil {
				t.Fatal("empty list decoded")
			}
			if _, err := decode(pdu(record(c.typ, append(first, 0xbb)...))); err == nil {
				t.Fatal("ragged list decoded")
			}
		})
	}
}

func TestDecodeSkipsUnknownTypes(t *testing.T) {
	m, err := decode(pdu(
		record(0x1a, 0x00, 0x08), // advertising interval, not carried here
		record(flags, 0x06),
		record(0x24, 'u', 'r', 'i'), // neither is a uri
	))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(m) != 1 {
		t.Fatalf("want only flags decoded, got %v", m)
	}
	if v, ok := m[keys.flags].([]byte); !ok || v[0] != 0x06 {
		t.Fatalf("flags lost: %v", m)
	}
}

func TestDecodePadding(t *testing.T) {
	b := pdu(record(flags, 0x06), record(namecomp, 'p', 'a', 'd'))
	for len(b) < MaxEIRPacketLength {
		b = append(b, 0)
	}

	m, err := decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, ok := m[keys.name].([]byte); !ok || string(v) != "pad" {
		t.Fatalf("name lost behind padding: %v", m)
	}
}

func TestDecodeTruncatedRecord(t *testing.T) {
	// claims 10 payload bytes but the pdu ends after 2
	if _, err := decode([]byte{0x0b, mfgdata, 0x01, 0x02}); err == nil {
		t.Fatal("want an overflow error")
	}
}

func TestDecodeMinLengths(t *testing.T) {
	short := map[byte][]byte{
		connint:    {0x06, 0x00}, // needs 4
		appearance: {0xc0},       // needs 2
		svc16:      {0x0d},       // needs 2
	}
	for typ, payload := range short {
		if _, err := decode(pdu(record(typ, payload...))); err == nil {
			t.Fatalf("type %#02x: short payload decoded", typ)
		}
	}
}

func TestDecodeNil(t *testing.T) {
	if _, err := decode(nil); err == nil {
		t.Fatal("nil pdu decoded")
	}
}
