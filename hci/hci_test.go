package hci

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/bthost/bleadv"
)

type fakeController struct {
	frames    [][]byte
	mode      bleadv.Mode
	enables   int
	enableErr error
	names     []string
	closed    bool
}

func (f *fakeController) Ready() bool { return true }

func (f *fakeController) Send(p []byte) error {
	b := make([]byte, len(p))
	copy(b, p)
	f.frames = append(f.frames, b)
	return nil
}

func (f *fakeController) Close() error {
	f.closed = true
	return nil
}

func (f *fakeController) Enable(m bleadv.Mode) error {
	if f.enableErr != nil {
		return f.enableErr
	}
	f.enables++
	f.mode = m
	return nil
}

func (f *fakeController) SetDeviceName(name string) {
	f.names = append(f.names, name)
}

func newTestHCI(t *testing.T, ctl bleadv.Controller, opts ...bleadv.Option) *HCI {
	t.Helper()
	h, err := NewHCI(append([]bleadv.Option{bleadv.OptController(ctl)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestInitSendsReset(t *testing.T) {
	ctl := &fakeController{}
	h := newTestHCI(t, ctl)

	if err := h.Init(); err != nil {
		t.Fatal(err)
	}
	if h.State() != bleadv.StateInitialized {
		t.Fatalf("state %v, want initialized", h.State())
	}
	if ctl.enables != 1 || ctl.mode != bleadv.ModeDual {
		t.Fatalf("enables %d mode %v, want 1 dual", ctl.enables, ctl.mode)
	}
	if len(ctl.frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(ctl.frames))
	}
	want := []byte{0x01, 0x03, 0x0c, 0x00}
	if !bytes.Equal(ctl.frames[0], want) {
		t.Fatalf("got [% X], want [% X]", ctl.frames[0], want)
	}

	// a second init is a no-op
	if err := h.Init(); err != nil {
		t.Fatal(err)
	}
	if len(ctl.frames) != 1 || ctl.enables != 1 {
		t.Fatalf("second init did work: %d frames, %d enables", len(ctl.frames), ctl.enables)
	}
}

func TestInitModeOption(t *testing.T) {
	ctl := &fakeController{}
	h := newTestHCI(t, ctl, bleadv.OptControllerMode(bleadv.ModeBLE))

	if err := h.Init(); err != nil {
		t.Fatal(err)
	}
	if ctl.mode != bleadv.ModeBLE {
		t.Fatalf("enabled with mode %v, want ble", ctl.mode)
	}
}

func TestInitEnableFailed(t *testing.T) {
	ctl := &fakeController{enableErr: errors.New("rfkill")}
	h := newTestHCI(t, ctl)

	err := h.Init()
	if errors.Cause(err) != bleadv.ErrEnableFailed {
		t.Fatalf("got %v, want ErrEnableFailed cause", err)
	}
	if !strings.Contains(err.Error(), "rfkill") {
		t.Fatalf("error %q does not carry the enable failure", err)
	}
	if h.State() != bleadv.StateUninitialized {
		t.Fatalf("state %v after failed init, want uninitialized", h.State())
	}
	if len(ctl.frames) != 0 {
		t.Fatalf("got %d frames after failed init, want 0", len(ctl.frames))
	}
}

func TestCommitFrameSequence(t *testing.T) {
	ctl := &fakeController{}
	h := newTestHCI(t, ctl)
	if err := h.Init(); err != nil {
		t.Fatal(err)
	}

	if _, err := h.SetParameters(bleadv.ParamFields{
		IntervalMinMs: bleadv.U16(100),
		IntervalMaxMs: bleadv.U16(100),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.SetData(bleadv.DataFields{Name: "go"}); err != nil {
		t.Fatal(err)
	}
	if len(ctl.names) != 1 || ctl.names[0] != "go" {
		t.Fatalf("controller saw names %v, want [go]", ctl.names)
	}

	if err := h.Commit(); err != nil {
		t.Fatal(err)
	}
	// reset, parameters, payload
	if len(ctl.frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(ctl.frames))
	}

	pf := ctl.frames[1]
	if len(pf) != 19 || pf[0] != 0x01 || pf[1] != 0x06 || pf[2] != 0x20 || pf[3] != 15 {
		t.Fatalf("bad parameter frame [% X]", pf)
	}
	pb := h.store.RenderParameters()
	if !bytes.Equal(pf[4:], pb[:]) {
		t.Fatalf("parameter payload [% X], want [% X]", pf[4:], pb)
	}

	df := ctl.frames[2]
	if len(df) != 35 || df[1] != 0x08 || df[2] != 0x20 || df[3] != 31 {
		t.Fatalf("bad payload frame [% X]", df)
	}
	db := h.store.RenderData()
	if !bytes.Equal(df[4:], db[:]) {
		t.Fatalf("payload [% X], want [% X]", df[4:], db)
	}
}

func TestCommitScanResponseRouting(t *testing.T) {
	ctl := &fakeController{}
	h := newTestHCI(t, ctl)
	if err := h.Init(); err != nil {
		t.Fatal(err)
	}

	if _, err := h.SetData(bleadv.DataFields{
		ScanResponse: bleadv.Bool(true),
		Name:         "go",
	}); err != nil {
		t.Fatal(err)
	}
	if err := h.Commit(); err != nil {
		t.Fatal(err)
	}

	df := ctl.frames[len(ctl.frames)-1]
	if df[1] != 0x09 || df[2] != 0x20 {
		t.Fatalf("payload went to opcode %02x%02x, want 2009", df[2], df[1])
	}
}

func TestAdvertiseAndStop(t *testing.T) {
	ctl := &fakeController{}
	h := newTestHCI(t, ctl)
	if err := h.Init(); err != nil {
		t.Fatal(err)
	}

	if err := h.Advertise(); err != nil {
		t.Fatal(err)
	}
	// reset, parameters, payload, enable
	if len(ctl.frames) != 4 {
		t.Fatalf("got %d frames, want 4", len(ctl.frames))
	}
	enable := ctl.frames[3]
	want := []byte{0x01, 0x0a, 0x20, 0x01, 0x01}
	if !bytes.Equal(enable, want) {
		t.Fatalf("enable frame [% X], want [% X]", enable, want)
	}

	if err := h.StopAdvertising(); err != nil {
		t.Fatal(err)
	}
	disable := ctl.frames[4]
	want = []byte{0x01, 0x0a, 0x20, 0x01, 0x00}
	if !bytes.Equal(disable, want) {
		t.Fatalf("disable frame [% X], want [% X]", disable, want)
	}
}

func TestDeinit(t *testing.T) {
	ctl := &fakeController{}
	h := newTestHCI(t, ctl)
	if err := h.Init(); err != nil {
		t.Fatal(err)
	}

	if _, err := h.SetParameters(bleadv.ParamFields{IntervalMinMs: bleadv.U16(100)}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.SetData(bleadv.DataFields{
		Name:             "gopher",
		ManufacturerData: []byte{0xe5, 0x02, 0x01},
	}); err != nil {
		t.Fatal(err)
	}

	if err := h.Deinit(); err != nil {
		t.Fatal(err)
	}
	if h.State() != bleadv.StateUninitialized {
		t.Fatalf("state %v, want uninitialized", h.State())
	}
	if d := h.Data(); d.Name != nil || d.ManufacturerData != nil || d.IncludeName {
		t.Fatalf("payload buffers survive deinit: %+v", d)
	}
	if err := h.Commit(); err != bleadv.ErrNotInitialized {
		t.Fatalf("got %v, want ErrNotInitialized", err)
	}
	if err := h.Advertise(); err != bleadv.ErrNotInitialized {
		t.Fatalf("got %v, want ErrNotInitialized", err)
	}

	// deinit again is a no-op
	if err := h.Deinit(); err != nil {
		t.Fatal(err)
	}

	// the device comes back up, parameters intact
	if err := h.Init(); err != nil {
		t.Fatal(err)
	}
	if got := h.Parameters().IntervalMinUnits; got != 160 {
		t.Fatalf("interval %d units after re-init, want 160", got)
	}
}

func TestCloseIdempotent(t *testing.T) {
	ctl := &fakeController{}
	h := newTestHCI(t, ctl)
	if err := h.Init(); err != nil {
		t.Fatal(err)
	}

	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if !ctl.closed {
		t.Fatal("controller not closed")
	}
	if h.State() != bleadv.StateUninitialized {
		t.Fatalf("state %v after close, want uninitialized", h.State())
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSendVendorSpecific(t *testing.T) {
	ctl := &fakeController{}
	h := newTestHCI(t, ctl)
	if err := h.Init(); err != nil {
		t.Fatal(err)
	}

	payload := struct {
		A uint16
		B uint8
	}{A: 0x1234, B: 0x56}

	if err := h.SendVendorSpecificCommand(0x0001, 3, payload); err != nil {
		t.Fatal(err)
	}
	f := ctl.frames[len(ctl.frames)-1]
	want := []byte{0x01, 0x01, 0xfc, 0x03, 0x34, 0x12, 0x56}
	if !bytes.Equal(f, want) {
		t.Fatalf("got [% X], want [% X]", f, want)
	}

	// declared length has to match the payload
	if err := h.SendVendorSpecificCommand(0x0001, 4, payload); err == nil {
		t.Fatal("expected an error for a mismatched length")
	}
}

type neverReadyController struct {
	fakeController
}

func (n *neverReadyController) Ready() bool { return false }

func TestDegradedSendStillDelivers(t *testing.T) {
	ctl := &neverReadyController{}
	var handled []error
	h := newTestHCI(t, ctl,
		bleadv.OptReadyPolicy(2, time.Millisecond),
		bleadv.OptErrorHandler(func(err error) { handled = append(handled, err) }),
	)

	if err := h.Init(); err != nil {
		t.Fatal(err)
	}
	if len(ctl.frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(ctl.frames))
	}
	if h.DegradedSends() != 1 {
		t.Fatalf("degraded %d, want 1", h.DegradedSends())
	}
	if len(handled) != 1 || handled[0] != bleadv.ErrTransportDegraded {
		t.Fatalf("handler got %v, want ErrTransportDegraded", handled)
	}
}

func TestOptionValidation(t *testing.T) {
	h := newTestHCI(t, &fakeController{})

	if err := h.SetControllerMode(bleadv.Mode(9)); err == nil {
		t.Fatal("expected an error for an invalid mode")
	}
	if err := h.SetReadyPolicy(0, time.Millisecond); err == nil {
		t.Fatal("expected an error for zero attempts")
	}
}
