package hci

import (
	"fmt"
	"time"

	"github.com/bthost/bleadv"
	"github.com/bthost/bleadv/hci/cmd"
)

// SetTransportHCISocket sets the hci socket transport
func (h *HCI) SetTransportHCISocket(id int) error {
	h.transport.socket = &transportHCISocket{id: id}
	return nil
}

// SetTransportH4Socket sets the h4 socket transport
func (h *HCI) SetTransportH4Socket(addr string, timeout time.Duration) error {
	h.transport.h4socket = &transportH4Socket{addr: addr, timeout: timeout}
	return nil
}

// SetTransportH4Uart sets the h4 uart transport
func (h *HCI) SetTransportH4Uart(path string) error {
	h.transport.h4uart = &transportH4Uart{path: path}
	return nil
}

// SetController injects an already constructed controller.
func (h *HCI) SetController(c bleadv.Controller) error {
	h.ctl = c
	return nil
}

// SetControllerMode overrides the mode the controller is enabled with.
func (h *HCI) SetControllerMode(m bleadv.Mode) error {
	if m < bleadv.ModeIdle || m > bleadv.ModeDual {
		return fmt.Errorf("invalid controller mode %d", m)
	}
	h.mode = m
	return nil
}

// SetReadyPolicy overrides the transport readiness poll policy.
func (h *HCI) SetReadyPolicy(attempts int, interval time.Duration) error {
	if attempts < 1 {
		return fmt.Errorf("invalid ready poll attempts %d", attempts)
	}
	h.snd.policy = ReadyPolicy{Attempts: attempts, Interval: interval}
	return nil
}

// SetAdvParams overrides the staged advertising parameters.
func (h *HCI) SetAdvParams(p cmd.LESetAdvertisingParameters) error {
	h.store.setFromCommand(p)
	return nil
}

// SetErrorHandler sets the handler for non fatal error signals.
func (h *HCI) SetErrorHandler(handler func(error)) error {
	h.snd.errorHandler = handler
	return nil
}

// SetLogger replaces the device logger.
func (h *HCI) SetLogger(l bleadv.Logger) error {
	h.logger = l
	h.snd.logger = l
	h.store.logger = l
	return nil
}
