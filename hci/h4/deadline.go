package h4

import (
	"io"
	"net"
	"time"
)

// deadlineConn stamps a fresh deadline on every read and write so a
// stalled bridge surfaces as a timeout instead of blocking the rx loop.
type deadlineConn struct {
	conn    net.Conn
	timeout time.Duration
}

func newDeadlineConn(c net.Conn, timeout time.Duration) io.ReadWriteCloser {
	return &deadlineConn{conn: c, timeout: timeout}
}

func (d *deadlineConn) Read(b []byte) (int, error) {
	if err := d.conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.conn.Read(b)
}

func (d *deadlineConn) Write(b []byte) (int, error) {
	if err := d.conn.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.conn.Write(b)
}

func (d *deadlineConn) Close() error {
	return d.conn.Close()
}
