package benchmark

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Protocol is the constant label written in the Protocol column
const Protocol = "Matter"

// MessageType labels the Matter interaction a record was built from
type MessageType string

const (
	MessageCommissioning   MessageType = "COMMISSIONING"
	MessageOnCommand       MessageType = "ON_COMMAND"
	MessageOffCommand      MessageType = "OFF_COMMAND"
	MessageTemperatureRead MessageType = "TEMPERATURE_READ"
	MessageLevelControl    MessageType = "LEVEL_CONTROL"
	MessageDeviceInfo      MessageType = "DEVICE_INFO"
)

// MessageTypes lists every known message type in reporting order
var MessageTypes = []MessageType{
	MessageCommissioning,
	MessageOnCommand,
	MessageOffCommand,
	MessageTemperatureRead,
	MessageLevelControl,
	MessageDeviceInfo,
}

// Valid reports whether t is one of the known message types
func (t MessageType) Valid() bool {
	for _, known := range MessageTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ErrInvalidModel is returned when an OverheadModel cannot produce a positive total size
var ErrInvalidModel = errors.New("invalid overhead model")

// OverheadModel holds the per-layer byte constants used to build a record.
// The values approximate Matter framing; they are not measured.
type OverheadModel struct {
	Transport   int `json:"transport"`   // UDP + IPv6 headers
	Session     int `json:"session"`     // session management
	Application int `json:"application"` // cluster metadata

	// Presentation (TLV) overhead:
	// max(Floor, (Base + L/StructureDivisor) - L/CompressionDivisor)
	TLVBase            int `json:"tlv_base"`
	StructureDivisor   int `json:"structure_divisor"`
	CompressionDivisor int `json:"compression_divisor"`
	PresentationFloor  int `json:"presentation_floor"`
}

// DefaultOverheadModel returns the stock Matter-over-WiFi constants
func DefaultOverheadModel() OverheadModel {
	return OverheadModel{
		Transport:          40,
		Session:            35,
		Application:        25,
		TLVBase:            3,
		StructureDivisor:   10,
		CompressionDivisor: 20,
		PresentationFloor:  8,
	}
}

// Validate checks that the model can never divide by zero
func (m OverheadModel) Validate() error {
	if m.Transport < 0 || m.Session < 0 || m.Application < 0 || m.TLVBase < 0 || m.PresentationFloor < 0 {
		return fmt.Errorf("%w: overheads must not be negative", ErrInvalidModel)
	}
	if m.StructureDivisor <= 0 || m.CompressionDivisor <= 0 {
		return fmt.Errorf("%w: divisors must be positive", ErrInvalidModel)
	}
	if m.Transport+m.Session+m.Application+m.PresentationFloor == 0 {
		return fmt.Errorf("%w: fixed overheads sum to zero", ErrInvalidModel)
	}
	return nil
}

// PresentationOverhead returns the TLV overhead for a payload of the given size
func (m OverheadModel) PresentationOverhead(payloadSize int) int {
	structural := m.TLVBase + payloadSize/m.StructureDivisor
	savings := payloadSize / m.CompressionDivisor

	overhead := 0
	if structural > savings {
		overhead = structural - savings
	}
	return max(overhead, m.PresentationFloor)
}

// Build constructs a record for payload stamped with now
func (m OverheadModel) Build(messageID uint32, messageType MessageType, payload []byte, now time.Time) Metrics {
	payloadSize := len(payload)
	presentation := m.PresentationOverhead(payloadSize)
	total := payloadSize + m.Transport + m.Session + presentation + m.Application

	efficiency := float32(payloadSize) / float32(total) * 100.0

	return Metrics{
		Timestamp:            uint64(now.UnixMilli()),
		MessageID:            messageID,
		MessageType:          messageType,
		PayloadSize:          payloadSize,
		TotalSize:            total,
		TransportOverhead:    m.Transport,
		SessionOverhead:      m.Session,
		PresentationOverhead: presentation,
		ApplicationOverhead:  m.Application,
		EfficiencyPercent:    efficiency,
		OverheadPercent:      100.0 - efficiency,
	}
}

// Metrics is the size breakdown of one Matter message.
// Records are built once, reported and then dropped.
type Metrics struct {
	Timestamp            uint64      `json:"timestamp"` // ms since epoch
	MessageID            uint32      `json:"message_id"`
	MessageType          MessageType `json:"message_type"`
	PayloadSize          int         `json:"payload_size"`
	TotalSize            int         `json:"total_size"`
	TransportOverhead    int         `json:"transport_overhead"`
	SessionOverhead      int         `json:"session_overhead"`
	PresentationOverhead int         `json:"presentation_overhead"`
	ApplicationOverhead  int         `json:"application_overhead"`
	EfficiencyPercent    float32     `json:"efficiency_percent"`
	OverheadPercent      float32     `json:"overhead_percent"`
}

// NewMetrics builds a record with the default overhead model and the current time
func NewMetrics(messageID uint32, messageType MessageType, payload []byte) Metrics {
	return DefaultOverheadModel().Build(messageID, messageType, payload, time.Now())
}

// ProtocolOverhead is the number of bytes that are not payload
func (m Metrics) ProtocolOverhead() int {
	return m.TotalSize - m.PayloadSize
}

// LogDetailed writes the per-layer report to the global logger
func (m Metrics) LogDetailed() {
	log.Info().
		Str("message_type", string(m.MessageType)).
		Uint32("message_id", m.MessageID).
		Uint64("timestamp_ms", m.Timestamp).
		Msg("Matter OSI layer analysis")

	log.Info().
		Str("layer", "transport").
		Str("osi", "L4").
		Str("protocol", "UDP over IPv6 (Matter-over-WiFi)").
		Int("overhead_bytes", m.TransportOverhead).
		Str("reliability", "application-level retransmission").
		Msg("Transport layer")

	log.Info().
		Str("layer", "session").
		Str("osi", "L5").
		Str("management", "Matter commissioning + PASE/CASE").
		Int("overhead_bytes", m.SessionOverhead).
		Str("multiplexing", "node-based addressing").
		Msg("Session layer")

	log.Info().
		Str("layer", "presentation").
		Str("osi", "L6").
		Str("encoding", "Matter TLV (Type-Length-Value)").
		Int("overhead_bytes", m.PresentationOverhead).
		Msg("Presentation layer")

	log.Info().
		Str("layer", "application").
		Str("osi", "L7").
		Str("data_model", "clusters, endpoints, attributes").
		Int("overhead_bytes", m.ApplicationOverhead).
		Str("operations", "read/write/subscribe/invoke/events").
		Msg("Application layer")

	log.Info().
		Int("payload_bytes", m.PayloadSize).
		Int("protocol_overhead_bytes", m.ProtocolOverhead()).
		Int("total_bytes", m.TotalSize).
		Str("efficiency", fmt.Sprintf("%.1f%%", m.EfficiencyPercent)).
		Str("overhead", fmt.Sprintf("%.1f%%", m.OverheadPercent)).
		Msg("Message efficiency")
}
