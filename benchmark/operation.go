package benchmark

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Operation defines one Matter interaction the client measures
type Operation interface {
	// Type returns the message type label recorded for this operation
	Type() MessageType

	// Name returns the human-readable name of this operation
	Name() string

	// Build produces the payload bytes sent for this operation
	Build(dev Device, rng *rand.Rand) Payload

	// Delay is the pause after the operation has been reported
	Delay() time.Duration
}

// Payload is the raw buffer of an operation plus descriptive log fields
type Payload struct {
	Bytes  []byte
	Fields map[string]any
}

// Device is the identity of the simulated node
type Device struct {
	NodeID     uint64
	Name       string
	VendorID   uint16
	ProductID  uint16
	EndpointID uint16
}

const (
	DefaultNodeID     uint64 = 0x1234567890ABCDEF
	DefaultDeviceName        = "RP2350_Real_Matter_Research"
	ResearchVendorID  uint16 = 0x8000
	ResearchProductID uint16 = 0xFFF1
	DefaultEndpointID uint16 = 1
)

// NewDevice returns a device with the research vendor and product ids on endpoint 1
func NewDevice(nodeID uint64, name string) Device {
	return Device{
		NodeID:     nodeID,
		Name:       name,
		VendorID:   ResearchVendorID,
		ProductID:  ResearchProductID,
		EndpointID: DefaultEndpointID,
	}
}

// ErrUnknownOperation is returned by CreateOperation for unsupported message types
var ErrUnknownOperation = errors.New("unknown operation")

// CreateOperation creates an operation instance based on the message type
func CreateOperation(t MessageType) (Operation, error) {
	switch t {
	case MessageCommissioning:
		return CommissioningOperation{}, nil
	case MessageOnCommand:
		return OnOffOperation{On: true}, nil
	case MessageOffCommand:
		return OnOffOperation{On: false}, nil
	case MessageTemperatureRead:
		return TemperatureReadOperation{}, nil
	case MessageLevelControl:
		return LevelControlOperation{}, nil
	case MessageDeviceInfo:
		return DeviceInfoOperation{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, t)
	}
}

// cycleOperations is the fixed sequence repeated on every research cycle
var cycleOperations = []MessageType{
	MessageOnCommand,
	MessageTemperatureRead,
	MessageLevelControl,
	MessageOffCommand,
	MessageDeviceInfo,
}
