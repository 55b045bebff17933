package bleadv

// Mode selects which host stacks the controller is brought up with.
type Mode int

// Controller modes. ModeDual enables both the classic and LE stacks and
// is the default for advertising devices.
const (
	ModeIdle Mode = iota
	ModeClassic
	ModeBLE
	ModeDual
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeClassic:
		return "classic"
	case ModeBLE:
		return "ble"
	case ModeDual:
		return "dual"
	default:
		return "unknown"
	}
}

// A Transport delivers complete HCI packets to a controller.
// Implementations own the underlying descriptor and its locking.
type Transport interface {
	// Ready reports whether the transport can accept a packet now,
	// without blocking.
	Ready() bool

	// Send hands one complete packet to the controller. The buffer is
	// not retained.
	Send(p []byte) error

	Close() error
}

// A Controller is a transport that must be powered up before use.
type Controller interface {
	Transport

	// Enable brings the controller subsystem up in the given mode.
	Enable(m Mode) error

	// SetDeviceName forwards the advertised device name to the
	// controller. Fire and forget.
	SetDeviceName(name string)
}
