//go:build !linux
// +build !linux

package socket

import (
	"github.com/pkg/errors"

	"github.com/bthost/bleadv"
)

// NewController is a stub, the HCI user channel only exists on linux.
func NewController(id int) (bleadv.Controller, error) {
	return nil, errors.New("hci user channel is only available on linux")
}
