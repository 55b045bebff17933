package adv

import "github.com/pkg/errors"

// MaxEIRPacketLength is the maximum allowed advertising data
// and scan response data length.
const MaxEIRPacketLength = 31

// ErrNotFit is returned when a field does not fit into the packet.
var ErrNotFit = errors.New("data not fit")

// ErrInvalid is returned when a field value is malformed.
var ErrInvalid = errors.New("invalid argument")

// Advertising flags
const (
	FlagLimitedDiscoverable = 0x01 // LE Limited Discoverable Mode
	FlagGeneralDiscoverable = 0x02 // LE General Discoverable Mode
	FlagLEOnly              = 0x04 // BR/EDR Not Supported
	FlagBothController      = 0x08 // Simultaneous LE and BR/EDR (Controller)
	FlagBothHost            = 0x10 // Simultaneous LE and BR/EDR (Host)
)
