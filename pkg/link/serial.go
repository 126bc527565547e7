package link

import (
	"errors"
	"io"
	"time"

	"go.bug.st/serial"
)

// readTimeout bounds a blocking read so the reader notices shutdown.
const readTimeout = 100 * time.Millisecond

// Port is an open device handle. Read returning (0, nil) means a read timeout.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens a named port at a baud rate.
type Opener func(name string, baud int) (Port, error)

// OpenSerial opens a serial port as 8 data bits, no parity, one stop bit.
func OpenSerial(name string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// ErrorCode is a driver fault code. Zero means no error.
type ErrorCode int

const (
	NoError ErrorCode = iota
	DeviceNotFoundError
	PermissionError
	OpenError
	ParityError
	FramingError
	BreakConditionError
	WriteError
	ReadError
	ResourceError
	UnsupportedOperationError
	UnknownError
	TimeoutError
	NotOpenError
)

var codeNames = map[ErrorCode]string{
	NoError:                   "no error",
	DeviceNotFoundError:       "device not found",
	PermissionError:           "permission denied",
	OpenError:                 "open failed",
	ParityError:               "parity error",
	FramingError:              "framing error",
	BreakConditionError:       "break condition",
	WriteError:                "write failed",
	ReadError:                 "read failed",
	ResourceError:             "device unavailable",
	UnsupportedOperationError: "unsupported operation",
	UnknownError:              "unknown error",
	TimeoutError:              "timeout",
	NotOpenError:              "port not open",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown error"
}

// CodeOf maps a driver error to an ErrorCode. Errors the serial library
// does not classify map to fallback.
func CodeOf(err error, fallback ErrorCode) ErrorCode {
	if err == nil {
		return NoError
	}

	if code, ok := portErrorCode(err); ok {
		switch code {
		case serial.PortNotFound:
			return DeviceNotFoundError
		case serial.PermissionDenied:
			return PermissionError
		case serial.PortBusy:
			return OpenError
		case serial.PortClosed:
			return NotOpenError
		case serial.InvalidSerialPort, serial.ErrorEnumeratingPorts:
			return ResourceError
		case serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity,
			serial.InvalidStopBits, serial.InvalidTimeoutValue, serial.FunctionNotImplemented:
			return UnsupportedOperationError
		default:
			return UnknownError
		}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ResourceError
	}
	return fallback
}

// portErrorCode extracts the serial library code; the library returns
// PortError both by value and by pointer.
func portErrorCode(err error) (serial.PortErrorCode, bool) {
	var ptr *serial.PortError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code(), true
	}
	var val serial.PortError
	if errors.As(err, &val) {
		return val.Code(), true
	}
	return 0, false
}
