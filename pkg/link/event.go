package link

import "fmt"

// Event is something the link worker reports. The set is closed:
// Connected, Disconnected, Received and Error.
type Event interface {
	isEvent()
}

// Connected is sent after a port was opened and configured.
type Connected struct {
	Port string
}

// Disconnected is sent after the port was closed.
type Disconnected struct{}

// Received carries raw bytes read from the device. Chunks have no framing.
type Received struct {
	Data []byte
}

// Error carries a nonzero driver fault.
type Error struct {
	Code    ErrorCode
	Message string
}

func (Connected) isEvent()    {}
func (Disconnected) isEvent() {}
func (Received) isEvent()     {}
func (Error) isEvent()        {}

func newError(code ErrorCode) Error {
	return Error{Code: code, Message: fmt.Sprintf("SerialPortError ErrorCode: %d", int(code))}
}
