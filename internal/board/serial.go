package board

import (
	"bufio"
	"fmt"
	"io"
	"log"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialIO is the byte-level pass-through link (ground-station side). Reads
// are buffered so Available can answer without blocking the control cycle.
type SerialIO struct {
	port io.ReadWriteCloser
	r    *bufio.Reader
}

// OpenSerialIO opens the pass-through serial port.
func OpenSerialIO(port string, baud uint) (*SerialIO, error) {
	p, err := serial.Open(serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", port, err)
	}
	log.Printf("serial: pass-through opened on %s at %d baud", port, baud)
	return NewSerialIO(p), nil
}

// NewSerialIO wraps an already open stream (tests use an in-memory pipe).
func NewSerialIO(port io.ReadWriteCloser) *SerialIO {
	return &SerialIO{port: port, r: bufio.NewReader(port)}
}

// Available reports how many bytes can be read without blocking.
func (s *SerialIO) Available() int {
	return s.r.Buffered()
}

func (s *SerialIO) ReadByte() (byte, error) {
	return s.r.ReadByte()
}

func (s *SerialIO) WriteByte(b byte) error {
	_, err := s.port.Write([]byte{b})
	return err
}

func (s *SerialIO) Close() error {
	return s.port.Close()
}
