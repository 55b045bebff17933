package bleadv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Addr is a device address in both of its spellings, the
// colon-separated hex string and the raw bytes, most significant byte
// first.
type Addr interface {
	String() string
	Bytes() []byte
}

// NewAddr builds an Addr from a string like "AA:BB:CC:DD:EE:FF",
// normalized to lower case.
func NewAddr(s string) Addr {
	return addr(strings.ToLower(s))
}

// BytesToAddr renders raw address bytes as a colon-separated Addr.
func BytesToAddr(b []byte) Addr {
	pp := make([]string, 0, len(b))
	for _, x := range b {
		pp = append(pp, fmt.Sprintf("%02x", x))
	}
	return addr(strings.Join(pp, ":"))
}

type addr string

func (a addr) String() string {
	return string(a)
}

// Bytes decodes the address hex pairs. A malformed address yields
// whatever prefix decoded cleanly.
func (a addr) Bytes() []byte {
	out, err := hex.DecodeString(strings.Replace(string(a), ":", "", -1))
	if err != nil {
		GetLogger().Warnf("can't decode address %q: %v", a.String(), err)
	}
	return out
}
