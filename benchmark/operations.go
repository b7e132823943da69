package benchmark

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"time"
)

// Cluster ids used as payload prefixes
const (
	ClusterOnOff                  uint16 = 0x0006
	ClusterLevelControl           uint16 = 0x0008
	ClusterBasicInformation       uint16 = 0x0028
	ClusterTemperatureMeasurement uint16 = 0x0402
)

const (
	shortDelay = 3 * time.Second
	longDelay  = 8 * time.Second
)

// CommissioningOperation models the initial device commissioning exchange
type CommissioningOperation struct{}

func (CommissioningOperation) Type() MessageType    { return MessageCommissioning }
func (CommissioningOperation) Name() string         { return "Commissioning" }
func (CommissioningOperation) Delay() time.Duration { return 0 }

// Build lays out vendor id, product id, device name, device type and discriminator
func (CommissioningOperation) Build(dev Device, _ *rand.Rand) Payload {
	buf := make([]byte, 0, 4+len(dev.Name)+8)
	buf = binary.LittleEndian.AppendUint16(buf, dev.VendorID)
	buf = binary.LittleEndian.AppendUint16(buf, dev.ProductID)
	buf = append(buf, dev.Name...)
	buf = append(buf, 0x01, 0x02, 0x03, 0x04) // device type
	buf = append(buf, 0x10, 0x11, 0x12, 0x13) // discriminator

	return Payload{
		Bytes: buf,
		Fields: map[string]any{
			"device":     dev.Name,
			"node_id":    fmt.Sprintf("0x%016X", dev.NodeID),
			"vendor_id":  fmt.Sprintf("0x%04X", dev.VendorID),
			"product_id": fmt.Sprintf("0x%04X", dev.ProductID),
		},
	}
}

// OnOffOperation models an OnOff cluster On or Off command
type OnOffOperation struct {
	On bool
}

func (o OnOffOperation) Type() MessageType {
	if o.On {
		return MessageOnCommand
	}
	return MessageOffCommand
}

func (o OnOffOperation) Name() string {
	if o.On {
		return "Turn ON"
	}
	return "Turn OFF"
}

func (OnOffOperation) Delay() time.Duration { return shortDelay }

func (o OnOffOperation) Build(dev Device, _ *rand.Rand) Payload {
	var cmd byte
	if o.On {
		cmd = 0x01
	}
	return Payload{
		Bytes: []byte{byte(ClusterOnOff), 0x00, cmd, 0x00},
		Fields: map[string]any{
			"command":  o.Name(),
			"cluster":  fmt.Sprintf("0x%04X (OnOff)", ClusterOnOff),
			"endpoint": dev.EndpointID,
		},
	}
}

// TemperatureReadOperation models a MeasuredValue read with a random temperature
type TemperatureReadOperation struct{}

func (TemperatureReadOperation) Type() MessageType    { return MessageTemperatureRead }
func (TemperatureReadOperation) Name() string         { return "Temperature read" }
func (TemperatureReadOperation) Delay() time.Duration { return shortDelay }

// Build draws a temperature in 0.01 °C units between 15 and 30 °C
func (TemperatureReadOperation) Build(_ Device, rng *rand.Rand) Payload {
	temperature := int16(2000 + rng.Intn(1501) - 500)

	buf := []byte{0x02, 0x04}
	buf = binary.LittleEndian.AppendUint16(buf, uint16(temperature))

	return Payload{
		Bytes: buf,
		Fields: map[string]any{
			"value":     fmt.Sprintf("%.1f°C", float32(temperature)/100.0),
			"cluster":   fmt.Sprintf("0x%04X (TemperatureMeasurement)", ClusterTemperatureMeasurement),
			"attribute": "0x0000 (MeasuredValue)",
		},
	}
}

// LevelControlOperation models a MoveToLevel command with a random level
type LevelControlOperation struct{}

func (LevelControlOperation) Type() MessageType    { return MessageLevelControl }
func (LevelControlOperation) Name() string         { return "Level control" }
func (LevelControlOperation) Delay() time.Duration { return shortDelay }

func (LevelControlOperation) Build(_ Device, rng *rand.Rand) Payload {
	level := byte(rng.Intn(255))
	return Payload{
		Bytes: []byte{byte(ClusterLevelControl), 0x00, 0x04, level, 0x00, 0x00},
		Fields: map[string]any{
			"level":   level,
			"percent": fmt.Sprintf("%.1f%%", float32(level)/254.0*100.0),
			"cluster": fmt.Sprintf("0x%04X (LevelControl)", ClusterLevelControl),
			"command": "MoveToLevel",
		},
	}
}

// DeviceInfoOperation models a BasicInformation attribute read
type DeviceInfoOperation struct{}

func (DeviceInfoOperation) Type() MessageType    { return MessageDeviceInfo }
func (DeviceInfoOperation) Name() string         { return "Device info" }
func (DeviceInfoOperation) Delay() time.Duration { return longDelay }

func (DeviceInfoOperation) Build(dev Device, _ *rand.Rand) Payload {
	buf := make([]byte, 0, 2+len(dev.Name)+4)
	buf = append(buf, byte(ClusterBasicInformation), 0x00)
	buf = append(buf, dev.Name...)
	buf = binary.LittleEndian.AppendUint16(buf, dev.VendorID)
	buf = binary.LittleEndian.AppendUint16(buf, dev.ProductID)

	return Payload{
		Bytes: buf,
		Fields: map[string]any{
			"cluster":    fmt.Sprintf("0x%04X (BasicInformation)", ClusterBasicInformation),
			"attributes": "VendorName, ProductName, SerialNumber",
			"node_id":    fmt.Sprintf("0x%016X", dev.NodeID),
		},
	}
}
