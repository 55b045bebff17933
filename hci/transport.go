package hci

import (
	"fmt"
	"time"

	"github.com/bthost/bleadv"
	"github.com/bthost/bleadv/hci/h4"
	"github.com/bthost/bleadv/hci/socket"
)

type transportHCISocket struct {
	id int
}

type transportH4Socket struct {
	addr    string
	timeout time.Duration
}

type transportH4Uart struct {
	path string
}

type transport struct {
	socket   *transportHCISocket
	h4uart   *transportH4Uart
	h4socket *transportH4Socket
}

// openController builds the controller for whichever transport was
// configured. With several configured, the raw socket wins over the h4
// variants.
func openController(t transport) (bleadv.Controller, error) {
	switch {
	case t.socket != nil:
		return socket.NewController(t.socket.id)

	case t.h4socket != nil:
		return h4.NewSocketController(t.h4socket.addr, t.h4socket.timeout)

	case t.h4uart != nil:
		so := h4.DefaultSerialOptions()
		so.PortName = t.h4uart.path
		return h4.NewController(so)

	default:
		return nil, fmt.Errorf("no controller transport configured")
	}
}
