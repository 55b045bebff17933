package cache

import (
	"os"
	"reflect"
	"testing"

	"github.com/bthost/bleadv"
)

func testProfile() bleadv.Profile {
	var p bleadv.Profile
	p.Params.IntervalMinUnits = 0x00a0
	p.Params.IntervalMaxUnits = 0x00f0
	p.Params.Type = bleadv.AdvNonconnInd
	p.Params.ChannelMap = bleadv.ChannelAll
	p.Data.Flags = 0x06
	p.Data.IncludeName = true
	p.Data.Name = []byte("gopher")
	p.Data.ManufacturerData = []byte{0xe5, 0x02, 0x01}
	return p
}

func TestConfigCache_Store(t *testing.T) {
	defer os.Remove("./test.cache")
	p := testProfile()

	c := New("./test.cache")
	err := c.Store("beacon", p, false)
	if err != nil {
		t.Fatalf("expected nil error but got %s instead", err)
	}

	loaded, err := c.Load("beacon")
	if err != nil {
		t.Fatalf("expected to find profile in cache but did not: %s", err)
	}

	if !reflect.DeepEqual(p, loaded) {
		t.Fatalf("stored and loaded profiles are not equal")
	}
}

func TestConfigCache_StoreNoReplace(t *testing.T) {
	defer os.Remove("./test.cache")
	c := New("./test.cache")

	if err := c.Store("beacon", testProfile(), false); err != nil {
		t.Fatal(err)
	}
	if err := c.Store("beacon", testProfile(), false); err == nil {
		t.Fatal("expected an error storing a duplicate without replace")
	}
	if err := c.Store("beacon", testProfile(), true); err != nil {
		t.Fatalf("expected replace to succeed: %s", err)
	}
}

func TestConfigCache_LoadMissing(t *testing.T) {
	defer os.Remove("./test.cache")
	c := New("./test.cache")

	if _, err := c.Load("nope"); err == nil {
		t.Fatal("expected an error loading a missing profile")
	}
}

func TestConfigCache_Clear(t *testing.T) {
	defer os.Remove("./test.cache")
	c := New("./test.cache")

	if err := c.Store("beacon", testProfile(), false); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Load("beacon"); err == nil {
		t.Fatal("expected the cache to be empty after clear")
	}
	// clearing an already empty cache is fine
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
}
