package hci

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/bthost/bleadv"
	"github.com/bthost/bleadv/hci/cmd"
)

// Command ...
type Command interface {
	OpCode() int
	Len() int
	Marshal([]byte) error
}

// NewHCI returns a hci device.
func NewHCI(opts ...bleadv.Option) (*HCI, error) {
	h := &HCI{
		mode:       bleadv.ModeDual,
		advEnable:  cmd.LESetAdvertiseEnable{AdvertisingEnable: 1},
		advDisable: cmd.LESetAdvertiseEnable{AdvertisingEnable: 0},

		muClose: sync.Mutex{},
		done:    make(chan bool),
	}
	h.logger = bleadv.GetLogger().ChildLogger(map[string]interface{}{"pkg": "hci"})
	h.snd = newSender(h.logger)
	h.store.init(h.logger)
	if err := h.Option(opts...); err != nil {
		return nil, errors.Wrap(err, "can't set options")
	}

	return h, nil
}

// HCI ...
type HCI struct {
	sync.Mutex

	store store

	transport transport
	ctl       bleadv.Controller
	mode      bleadv.Mode
	snd       *sender

	state bleadv.State

	advEnable  cmd.LESetAdvertiseEnable
	advDisable cmd.LESetAdvertiseEnable

	logger bleadv.Logger

	muClose sync.Mutex
	done    chan bool
}

// Option sets the options specified.
func (h *HCI) Option(opts ...bleadv.Option) error {
	var err error
	for _, opt := range opts {
		err = opt(h)
	}
	return err
}

// Init brings the controller up in the configured mode and resets its
// link layer. Calling Init on an initialized device is a no-op.
func (h *HCI) Init() error {
	h.Lock()
	defer h.Unlock()

	if h.state == bleadv.StateInitialized {
		h.logger.Debug("already initialized")
		return nil
	}

	if h.ctl == nil {
		ctl, err := openController(h.transport)
		if err != nil {
			return err
		}
		h.ctl = ctl
	}

	if err := h.ctl.Enable(h.mode); err != nil {
		return errors.Wrap(bleadv.ErrEnableFailed, err.Error())
	}

	h.snd.bind(h.ctl)
	h.store.bindController(h.ctl.SetDeviceName)

	if err := h.reset(); err != nil {
		return err
	}

	h.state = bleadv.StateInitialized
	return nil
}

func (h *HCI) reset() error {
	h.logger.Info("hci reset")
	b, err := BuildFrame(Reset, nil)
	if err != nil {
		return err
	}
	return h.snd.send(b)
}

// Deinit releases the staged payload buffers and drops back to the
// uninitialized state. The controller transport stays open; Close shuts
// it down.
func (h *HCI) Deinit() error {
	h.Lock()
	defer h.Unlock()

	if h.state == bleadv.StateUninitialized {
		return nil
	}
	h.store.releaseData()
	h.state = bleadv.StateUninitialized
	return nil
}

// SetParameters merges a sparse parameter update into the staged
// record.
func (h *HCI) SetParameters(f bleadv.ParamFields) (bool, error) {
	return h.store.SetParameters(f)
}

// SetData merges a sparse payload update into the staged record.
func (h *HCI) SetData(f bleadv.DataFields) (bool, error) {
	return h.store.SetData(f)
}

// Restore replaces the staged configuration with a saved profile.
func (h *HCI) Restore(p bleadv.Profile) bool {
	return h.store.Restore(p)
}

// Parameters returns a snapshot of the staged parameter record.
func (h *HCI) Parameters() bleadv.AdvertisingParameters {
	return h.store.Parameters()
}

// Data returns a snapshot of the staged payload record.
func (h *HCI) Data() bleadv.AdvertisingData {
	return h.store.Data()
}

// State reports the lifecycle state.
func (h *HCI) State() bleadv.State {
	h.Lock()
	defer h.Unlock()
	return h.state
}

// Commit writes the staged configuration to the controller: the
// parameter block first, then the rendered payload, routed to the scan
// response slot when the record asks for that.
func (h *HCI) Commit() error {
	h.Lock()
	defer h.Unlock()
	return h.commit()
}

func (h *HCI) commit() error {
	if h.state != bleadv.StateInitialized {
		return bleadv.ErrNotInitialized
	}

	pb := h.store.RenderParameters()
	b, err := BuildFrame(WriteAdvertisingParameters, pb[:])
	if err != nil {
		return err
	}
	if err := h.snd.send(b); err != nil {
		return err
	}

	id := WriteAdvertisingData
	if h.store.scanResponse() {
		id = WriteScanResponseData
	}
	db := h.store.RenderData()
	h.logger.Debugf("payload: %s", describePayload(db[:]))
	b, err = BuildFrame(id, db[:])
	if err != nil {
		return err
	}
	return h.snd.send(b)
}

// Advertise commits the staged configuration and turns advertising on.
func (h *HCI) Advertise() error {
	h.Lock()
	defer h.Unlock()

	if err := h.commit(); err != nil {
		return err
	}
	return h.send(&h.advEnable)
}

// StopAdvertising turns advertising off.
func (h *HCI) StopAdvertising() error {
	h.Lock()
	defer h.Unlock()

	if h.state != bleadv.StateInitialized {
		return bleadv.ErrNotInitialized
	}
	return h.send(&h.advDisable)
}

// Send frames a typed command and hands it to the transport.
func (h *HCI) Send(c Command) error {
	h.Lock()
	defer h.Unlock()

	if h.state != bleadv.StateInitialized {
		return bleadv.ErrNotInitialized
	}
	return h.send(c)
}

func (h *HCI) send(c Command) error {
	b, err := marshalFrame(c)
	if err != nil {
		return err
	}
	return h.snd.send(b)
}

// DegradedSends reports how many frames went out without the transport
// ever signalling ready.
func (h *HCI) DegradedSends() int {
	return h.snd.degradedCount()
}

// Close deinitializes the device and closes the controller transport.
func (h *HCI) Close() error {
	h.muClose.Lock()
	defer h.muClose.Unlock()

	select {
	case <-h.done:
		//already closed, nothing to do
		return nil
	default:
		close(h.done)
	}

	h.Lock()
	defer h.Unlock()

	h.store.releaseData()
	h.state = bleadv.StateUninitialized
	if h.ctl != nil {
		return h.ctl.Close()
	}
	return nil
}
