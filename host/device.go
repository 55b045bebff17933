package host

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/bthost/bleadv"
	"github.com/bthost/bleadv/hci"
)

// Device drives advertising on a HCI controller.
type Device struct {
	HCI *hci.HCI
}

var _ bleadv.Device = (*Device)(nil)

var defaultMu sync.Mutex

// New returns the process default device, creating it on first use. It
// accepts no arguments; anything passed is rejected with
// bleadv.ErrUnexpectedArguments.
func New(args ...interface{}) (*Device, error) {
	if len(args) != 0 {
		return nil, bleadv.ErrUnexpectedArguments
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()

	if d, ok := bleadv.DefaultDevice().(*Device); ok && d != nil {
		return d, nil
	}

	d, err := NewDevice()
	if err != nil {
		return nil, err
	}
	bleadv.SetDefaultDevice(d)
	return d, nil
}

// NewDevice returns a device with the given options applied.
func NewDevice(opts ...bleadv.Option) (*Device, error) {
	dev, err := hci.NewHCI(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "can't create hci")
	}
	return &Device{HCI: dev}, nil
}

// Init brings the controller up. A no-op when already initialized.
func (d *Device) Init() error {
	return d.HCI.Init()
}

// Deinit drops the staged payloads and the initialized state.
func (d *Device) Deinit() error {
	return d.HCI.Deinit()
}

// SetParameters merges a sparse parameter update into the staged record.
func (d *Device) SetParameters(f bleadv.ParamFields) (bool, error) {
	return d.HCI.SetParameters(f)
}

// SetData merges a sparse payload update into the staged record.
func (d *Device) SetData(f bleadv.DataFields) (bool, error) {
	return d.HCI.SetData(f)
}

// Restore replaces the staged configuration with a saved profile.
func (d *Device) Restore(p bleadv.Profile) bool {
	return d.HCI.Restore(p)
}

// Commit writes the staged configuration to the controller.
func (d *Device) Commit() error {
	return d.HCI.Commit()
}

// Advertise commits the staged configuration and enables advertising.
func (d *Device) Advertise() error {
	return d.HCI.Advertise()
}

// StopAdvertising disables advertising.
func (d *Device) StopAdvertising() error {
	return d.HCI.StopAdvertising()
}

// Parameters returns a snapshot of the staged parameter record.
func (d *Device) Parameters() bleadv.AdvertisingParameters {
	return d.HCI.Parameters()
}

// Data returns a snapshot of the staged payload record.
func (d *Device) Data() bleadv.AdvertisingData {
	return d.HCI.Data()
}

// State reports the lifecycle state.
func (d *Device) State() bleadv.State {
	return d.HCI.State()
}

// Close deinitializes the device and closes the controller transport.
func (d *Device) Close() error {
	return d.HCI.Close()
}
