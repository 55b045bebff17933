package h4

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"

	"github.com/bthost/bleadv"
)

const rxQueueSize = 64

type h4 struct {
	open func() (io.ReadWriteCloser, error)
	rwc  io.ReadWriteCloser

	wmu sync.Mutex

	rxQueue chan []byte

	done chan int
	cmu  sync.Mutex

	logger bleadv.Logger
}

// DefaultSerialOptions returns the port settings most H4 capable
// controllers ship with. Callers still have to fill in PortName.
func DefaultSerialOptions() serial.OpenOptions {
	return serial.OpenOptions{
		BaudRate:          115200,
		DataBits:          8,
		StopBits:          1,
		RTSCTSFlowControl: true,

		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	}
}

// NewController returns a controller speaking H4 over the serial port
// described by opts. The port is not opened until Enable.
func NewController(opts serial.OpenOptions) (bleadv.Controller, error) {
	if opts.PortName == "" {
		return nil, errors.New("no serial port name")
	}

	// force these, the frame reads depend on them
	opts.MinimumReadSize = 0
	opts.InterCharacterTimeout = 100

	h := newH4(func() (io.ReadWriteCloser, error) {
		return serial.Open(opts)
	})
	return h, nil
}

// NewSocketController returns a controller speaking H4 over a TCP
// connection, typically a ser2net bridge in raw mode. The connection is
// not dialed until Enable.
func NewSocketController(addr string, timeout time.Duration) (bleadv.Controller, error) {
	if addr == "" {
		return nil, errors.New("no socket address")
	}
	if timeout <= 0 {
		timeout = time.Second
	}

	h := newH4(func() (io.ReadWriteCloser, error) {
		c, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			return nil, err
		}
		return newDeadlineConn(c, timeout), nil
	})
	return h, nil
}

func newH4(open func() (io.ReadWriteCloser, error)) *h4 {
	return &h4{
		open:    open,
		done:    make(chan int),
		rxQueue: make(chan []byte, rxQueueSize),
		logger:  bleadv.GetLogger().ChildLogger(map[string]interface{}{"pkg": "h4"}),
	}
}

// Enable opens the underlying port, drains whatever a previous session
// left buffered and starts the receive loops. It is a no-op on an
// already enabled controller.
func (h *h4) Enable(m bleadv.Mode) error {
	h.cmu.Lock()
	defer h.cmu.Unlock()

	select {
	case <-h.done:
		return errors.New("h4 closed")
	default:
	}

	if h.rwc != nil {
		h.logger.Debug("h4 already enabled")
		return nil
	}

	rwc, err := h.open()
	if err != nil {
		return errors.Wrap(err, "can't open h4")
	}
	h.rwc = rwc
	h.flush()
	h.logger.Infof("h4 up, mode %v", m)

	go h.rxLoop()
	go h.drainLoop()

	return nil
}

// flush discards stale bytes so the rx loop starts on a frame
// boundary. Best effort, errors here don't matter.
func (h *h4) flush() {
	b := make([]byte, 2048)
	n, _ := h.rwc.Read(b)
	if n > 0 {
		h.logger.Debugf("flushed %v stale bytes", n)
	}
}

// Ready reports whether the port is open.
func (h *h4) Ready() bool {
	return h.isOpen()
}

// Send writes one frame to the port.
func (h *h4) Send(p []byte) error {
	if !h.isOpen() {
		return io.EOF
	}

	h.wmu.Lock()
	defer h.wmu.Unlock()
	n, err := h.rwc.Write(p)
	h.logger.Debugf("write [% X], %v, %v", p, n, err)

	return errors.Wrap(err, "can't write h4")
}

// SetDeviceName is a no-op, the H4 transport has no host side name
// registry.
func (h *h4) SetDeviceName(name string) {
	h.logger.Debugf("device name %q ignored on h4", name)
}

func (h *h4) Close() error {
	h.cmu.Lock()
	defer h.cmu.Unlock()

	select {
	case <-h.done:
		//already closed
		return nil
	default:
		close(h.done)
	}

	if h.rwc == nil {
		return nil
	}
	h.logger.Debug("closing h4")
	return errors.Wrap(h.rwc.Close(), "can't close h4")
}

func (h *h4) isOpen() bool {
	select {
	case <-h.done:
		return false
	default:
		return h.rwc != nil
	}
}

// rxLoop reads the port and feeds the frame assembler.
func (h *h4) rxLoop() {
	a := newAssembler(h.rxQueue)
	tmp := make([]byte, 512)
	for {
		select {
		case <-h.done:
			h.logger.Debug("rx loop done")
			return
		default:
		}

		n, err := h.rwc.Read(tmp)
		if err != nil || n == 0 {
			continue
		}
		a.Assemble(tmp[:n])
	}
}

// drainLoop consumes assembled frames. Command status and completion
// events land here, which keeps the port buffer from filling while
// leaving a trace of what the controller said.
func (h *h4) drainLoop() {
	for {
		select {
		case <-h.done:
			return
		case b := <-h.rxQueue:
			h.logger.Debugf("rx [% X]", b)
		}
	}
}
