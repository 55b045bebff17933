//go:build linux
// +build linux

package socket

import (
	"fmt"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/bthost/bleadv"
)

func ioR(t, nr, size uintptr) uintptr {
	return (2 << 30) | (t << 8) | nr | (size << 16)
}

func ioW(t, nr, size uintptr) uintptr {
	return (1 << 30) | (t << 8) | nr | (size << 16)
}

func ioctl(fd, op, arg uintptr) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, op, arg); ep != 0 {
		return ep
	}
	return nil
}

const (
	ioctlSize     = 4
	hciMaxDevices = 16
	typHCI        = 72 // 'H'
	readTimeout   = 1000

	unixPollErrors   = int16(unix.POLLHUP | unix.POLLNVAL | unix.POLLERR)
	unixPollDataIn   = int16(unix.POLLIN)
	unixPollWritable = int16(unix.POLLOUT)
)

var (
	hciUpDevice      = ioW(typHCI, 201, ioctlSize) // HCIDEVUP
	hciDownDevice    = ioW(typHCI, 202, ioctlSize) // HCIDEVDOWN
	hciResetDevice   = ioW(typHCI, 203, ioctlSize) // HCIDEVRESET
	hciGetDeviceList = ioR(typHCI, 210, ioctlSize) // HCIGETDEVLIST
	hciGetDeviceInfo = ioR(typHCI, 211, ioctlSize) // HCIGETDEVINFO
)

type devListRequest struct {
	devNum     uint16
	devRequest [hciMaxDevices]struct {
		id  uint16
		opt uint32
	}
}

// controller drives a HCI device through the user channel of a raw
// bluetooth socket.
type controller struct {
	id int
	fd int

	rmu sync.Mutex
	wmu sync.Mutex

	done chan int
	cmu  sync.Mutex

	logger bleadv.Logger
}

// NewController returns a controller backed by the HCI user channel of
// the given device id. If id is -1 the first available device is used.
// The channel is not bound until Enable.
func NewController(id int) (bleadv.Controller, error) {
	if id < -1 {
		return nil, errors.Errorf("invalid device id %d", id)
	}
	return &controller{
		id:     id,
		fd:     -1,
		done:   make(chan int),
		logger: bleadv.GetLogger().ChildLogger(map[string]interface{}{"pkg": "socket"}),
	}, nil
}

// Enable binds the user channel and starts draining events. It is a
// no-op on an already enabled controller.
func (c *controller) Enable(m bleadv.Mode) error {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	select {
	case <-c.done:
		return errors.New("hci socket closed")
	default:
	}

	if c.fd >= 0 {
		c.logger.Debug("hci socket already enabled")
		return nil
	}

	fd, id, err := openDevice(c.id)
	if err != nil {
		return err
	}
	c.fd = fd
	c.logger.Infof("hci%d user channel up, mode %v", id, m)

	go c.drainLoop()
	return nil
}

// Ready reports whether the channel would accept a write right now.
func (c *controller) Ready() bool {
	if !c.isOpen() {
		return false
	}

	pfds := []unix.PollFd{{Fd: int32(c.fd), Events: unixPollWritable}}
	unix.Poll(pfds, 0)
	evts := pfds[0].Revents

	if evts&unixPollErrors != 0 {
		return false
	}
	return evts&unixPollWritable != 0
}

// Send writes one frame to the channel.
func (c *controller) Send(p []byte) error {
	if !c.isOpen() {
		return io.EOF
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := unix.Write(c.fd, p)
	return errors.Wrap(err, "can't write hci socket")
}

// SetDeviceName is a no-op, naming through the management API needs a
// control channel this transport doesn't hold.
func (c *controller) SetDeviceName(name string) {
	c.logger.Debugf("device name %q ignored on hci socket", name)
}

func (c *controller) Close() error {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}

	if c.fd < 0 {
		return nil
	}
	c.logger.Debug("closing hci socket")
	c.rmu.Lock()
	err := unix.Close(c.fd)
	c.rmu.Unlock()

	return errors.Wrap(err, "can't close hci socket")
}

func (c *controller) isOpen() bool {
	select {
	case <-c.done:
		return false
	default:
		return c.fd >= 0
	}
}

// drainLoop consumes inbound events so the channel buffer never fills.
func (c *controller) drainLoop() {
	b := make([]byte, 2048)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		n, err := c.read(b)
		if err != nil {
			return
		}
		if n > 0 {
			c.logger.Debugf("rx [% X]", b[:n])
		}
	}
}

func (c *controller) read(p []byte) (int, error) {
	if !c.isOpen() {
		return 0, io.EOF
	}

	c.rmu.Lock()
	defer c.rmu.Unlock()
	// dont need to add unixPollErrors, they are always returned
	pfds := []unix.PollFd{{Fd: int32(c.fd), Events: unixPollDataIn}}
	unix.Poll(pfds, readTimeout)
	evts := pfds[0].Revents

	var n int
	var err error
	switch {
	case evts&unixPollErrors != 0:
		c.logger.Warnf("hci socket error: poll events 0x%04x", evts)
		return 0, io.EOF

	case evts&unixPollDataIn != 0:
		// there is data!
		n, err = unix.Read(c.fd, p)

	default:
		// no data, read timeout
		return 0, nil
	}

	// check if we are still open since the read takes a while
	if !c.isOpen() {
		return 0, io.EOF
	}
	return n, errors.Wrap(err, "can't read hci socket")
}

// openDevice binds the user channel of the wanted device, or of the
// first device that accepts the bind when want is -1.
func openDevice(want int) (fd, id int, err error) {
	if want != -1 {
		// the device may need a moment to settle after hcidown
		to := time.Now().Add(60 * time.Second)
		for {
			fd, err = rawSocket()
			if err != nil {
				return -1, -1, err
			}
			if err = bindUserChannel(fd, want); err == nil {
				return fd, want, nil
			}
			unix.Close(fd)

			if !time.Now().Before(to) {
				return -1, -1, err
			}
			<-time.After(time.Second)
		}
	}

	fd, err = rawSocket()
	if err != nil {
		return -1, -1, err
	}

	req := devListRequest{devNum: hciMaxDevices}
	if err = ioctl(uintptr(fd), hciGetDeviceList, uintptr(unsafe.Pointer(&req))); err != nil {
		unix.Close(fd)
		return -1, -1, errors.Wrap(err, "can't get device list")
	}

	var msg string
	for id = 0; id < int(req.devNum); id++ {
		if err = bindUserChannel(fd, id); err == nil {
			return fd, id, nil
		}
		msg = msg + fmt.Sprintf("(hci%d: %s)", id, err)
	}
	unix.Close(fd)
	return -1, -1, errors.Errorf("no devices available: %s", msg)
}

func rawSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW, unix.BTPROTO_HCI)
	if err != nil {
		return -1, errors.Wrap(err, "can't create socket")
	}
	return fd, nil
}

// The user channel requires exclusive access to the device and the
// device has to be down at the time of binding.
func bindUserChannel(fd, id int) error {
	if err := ioctl(uintptr(fd), hciDownDevice, uintptr(id)); err != nil {
		return errors.Wrap(err, "can't down device")
	}

	sa := unix.SockaddrHCI{Dev: uint16(id), Channel: unix.HCI_CHANNEL_USER}
	if err := unix.Bind(fd, &sa); err != nil {
		return errors.Wrap(err, "can't bind socket to hci user channel")
	}

	// poll for 20ms to see if any data becomes available, then clear it
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unixPollDataIn}}
	unix.Poll(pfds, 20)
	evts := pfds[0].Revents

	switch {
	case evts&unixPollErrors != 0:
		return io.EOF

	case evts&unixPollDataIn != 0:
		b := make([]byte, 2048)
		unix.Read(fd, b)
	}

	return nil
}
