package bleadv

import (
	"time"

	"github.com/bthost/bleadv/hci/cmd"
)

// DeviceOption is an interface which the device should implement to allow using configuration options
type DeviceOption interface {
	SetTransportHCISocket(id int) error
	SetTransportH4Socket(addr string, timeout time.Duration) error
	SetTransportH4Uart(path string) error
	SetController(c Controller) error
	SetControllerMode(m Mode) error
	SetReadyPolicy(attempts int, interval time.Duration) error
	SetAdvParams(cmd.LESetAdvertisingParameters) error
	SetErrorHandler(handler func(error)) error
	SetLogger(l Logger) error
}

// An Option is a configuration function, which configures the device.
type Option func(DeviceOption) error

// OptTransportHCISocket set hci socket transport
func OptTransportHCISocket(id int) Option {
	return func(opt DeviceOption) error {
		opt.SetTransportHCISocket(id)
		return nil
	}
}

// OptTransportH4Socket set h4 socket transport
func OptTransportH4Socket(addr string, timeout time.Duration) Option {
	return func(opt DeviceOption) error {
		opt.SetTransportH4Socket(addr, timeout)
		return nil
	}
}

// OptTransportH4Uart set h4 uart transport
func OptTransportH4Uart(path string) Option {
	return func(opt DeviceOption) error {
		opt.SetTransportH4Uart(path)
		return nil
	}
}

// OptController injects an already constructed controller, mainly for
// tests and vendor bring-up rigs.
func OptController(c Controller) Option {
	return func(opt DeviceOption) error {
		opt.SetController(c)
		return nil
	}
}

// OptControllerMode overrides the mode the controller is enabled with.
func OptControllerMode(m Mode) Option {
	return func(opt DeviceOption) error {
		opt.SetControllerMode(m)
		return nil
	}
}

// OptReadyPolicy overrides the transport readiness poll policy.
func OptReadyPolicy(attempts int, interval time.Duration) Option {
	return func(opt DeviceOption) error {
		opt.SetReadyPolicy(attempts, interval)
		return nil
	}
}

// OptAdvParams overrides default advertising parameters.
func OptAdvParams(param cmd.LESetAdvertisingParameters) Option {
	return func(opt DeviceOption) error {
		opt.SetAdvParams(param)
		return nil
	}
}

// OptErrorHandler sets error handler
func OptErrorHandler(handler func(error)) Option {
	return func(opt DeviceOption) error {
		opt.SetErrorHandler(handler)
		return nil
	}
}

// OptLogger sets the device logger.
func OptLogger(l Logger) Option {
	return func(opt DeviceOption) error {
		opt.SetLogger(l)
		return nil
	}
}
