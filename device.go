package bleadv

import "sync"

// State is the controller lifecycle state.
type State int

// Lifecycle states.
const (
	StateUninitialized State = iota
	StateInitialized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// Device is a BLE advertising device: a controller lifecycle plus the
// advertising configuration staged for it.
type Device interface {
	// Init enables the controller and resets its link layer. Calling
	// Init on an initialized device is a no-op.
	Init() error

	// Deinit releases owned payload buffers and returns the device to
	// the uninitialized state. No-op when already uninitialized.
	Deinit() error

	// SetParameters merges a sparse parameter update into the stored
	// record and reports whether anything changed. On validation
	// failure nothing is applied.
	SetParameters(f ParamFields) (bool, error)

	// SetData merges a sparse payload update into the stored record
	// and reports whether anything changed. On validation failure
	// nothing is applied.
	SetData(f DataFields) (bool, error)

	// Commit pushes the stored parameters and payload down to the
	// controller.
	Commit() error

	// Advertise commits the stored configuration and enables
	// advertising.
	Advertise() error

	// StopAdvertising disables advertising.
	StopAdvertising() error

	// Parameters returns a snapshot of the stored parameter record.
	Parameters() AdvertisingParameters

	// Data returns a snapshot of the stored payload record.
	Data() AdvertisingData

	// State reports the lifecycle state.
	State() State

	// Close deinitializes the device and shuts down its transport.
	Close() error
}

var defaultDevice Device
var defaultDeviceMu sync.Mutex

// SetDefaultDevice registers d as the process default device.
func SetDefaultDevice(d Device) {
	defaultDeviceMu.Lock()
	defer defaultDeviceMu.Unlock()
	defaultDevice = d
}

// DefaultDevice returns the registered default device, or nil.
func DefaultDevice() Device {
	defaultDeviceMu.Lock()
	defer defaultDeviceMu.Unlock()
	return defaultDevice
}
