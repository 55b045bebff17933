package hci

import (
	"bytes"
	"testing"

	"github.com/bthost/bleadv/hci/cmd"
)

func TestBuildFrameReset(t *testing.T) {
	b, err := BuildFrame(Reset, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0x03, 0x0c, 0x00}
	if !bytes.Equal(b, want) {
		t.Fatalf("got [% X], want [% X]", b, want)
	}
}

func TestBuildFrameZeroFill(t *testing.T) {
	b, err := BuildFrame(WriteAdvertisingData, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 4+31 {
		t.Fatalf("got %d bytes, want 35", len(b))
	}
	// opcode 0x2008 little endian after the packet indicator
	if b[0] != 0x01 || b[1] != 0x08 || b[2] != 0x20 || b[3] != 31 {
		t.Fatalf("bad header [% X]", b[:4])
	}
	for i, v := range b[4:] {
		if v != 0 {
			t.Fatalf("param byte %d not zero filled: %#02x", i, v)
		}
	}
}

func TestBuildFrameParams(t *testing.T) {
	b, err := BuildFrame(WriteAdvertisingEnable, []byte{0x01})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0x0a, 0x20, 0x01, 0x01}
	if !bytes.Equal(b, want) {
		t.Fatalf("got [% X], want [% X]", b, want)
	}
}

func TestBuildFrameLengthMismatch(t *testing.T) {
	if _, err := BuildFrame(WriteAdvertisingEnable, []byte{1, 2}); err == nil {
		t.Fatal("expected an error for a 2 byte param block")
	}
	if _, err := BuildFrame(WriteAdvertisingParameters, make([]byte, 14)); err == nil {
		t.Fatal("expected an error for a short param block")
	}
}

func TestBuildFrameUnknownID(t *testing.T) {
	if _, err := BuildFrame(numCommands, nil); err == nil {
		t.Fatal("expected an error for an out of range id")
	}
	if _, err := BuildFrame(CommandID(-1), nil); err == nil {
		t.Fatal("expected an error for a negative id")
	}
}

func TestCatalogMatchesTypedCommands(t *testing.T) {
	cases := []struct {
		id CommandID
		c  Command
	}{
		{Reset, &cmd.Reset{}},
		{WriteAdvertisingEnable, &cmd.LESetAdvertiseEnable{}},
		{WriteAdvertisingParameters, &cmd.LESetAdvertisingParameters{}},
		{WriteAdvertisingData, &cmd.LESetAdvertisingData{}},
		{WriteScanResponseData, &cmd.LESetScanResponseData{}},
	}
	for _, tc := range cases {
		spec, ok := Lookup(tc.id)
		if !ok {
			t.Fatalf("%v not in catalog", tc.id)
		}
		if int(spec.OpCode) != tc.c.OpCode() {
			t.Errorf("%v: catalog opcode 0x%04x, command 0x%04x", tc.id, spec.OpCode, tc.c.OpCode())
		}
		if int(spec.ParamLen) != tc.c.Len() {
			t.Errorf("%v: catalog length %d, command %d", tc.id, spec.ParamLen, tc.c.Len())
		}
	}
}

func TestMarshalFrameMatchesBuildFrame(t *testing.T) {
	got, err := marshalFrame(&cmd.LESetAdvertiseEnable{AdvertisingEnable: 1})
	if err != nil {
		t.Fatal(err)
	}
	want, err := BuildFrame(WriteAdvertisingEnable, []byte{1})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got [% X], want [% X]", got, want)
	}
}
