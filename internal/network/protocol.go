package network

import (
	"encoding/json"
	"fmt"
	"time"

	"climateworld/internal/world"
)

type MessageType string

const (
	MessageWorldAccepted MessageType = "worldAccepted"
	MessageChunk         MessageType = "chunk"
	MessageReady         MessageType = "ready"
	MessageError         MessageType = "error"
)

type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Seq       uint64          `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into an envelope stamped with the current time.
func NewEnvelope(msgType MessageType, seq uint64, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return Envelope{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Seq:       seq,
		Payload:   raw,
	}, nil
}

// Decode unmarshals the payload into dst.
func (e Envelope) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type WorldAccepted struct {
	WorldID   string `json:"worldId"`
	Seed      uint32 `json:"seed"`
	WorldSize int    `json:"worldSize"`
	ChunkSize int    `json:"chunkSize"`
	Chunks    int    `json:"chunks"`
}

// CellPayload is the compact wire form of a cell.
type CellPayload struct {
	Elevation   float32     `json:"e"`
	Temperature float32     `json:"t"`
	Moisture    float32     `json:"m"`
	Biome       world.Biome `json:"b"`
}

type ChunkPayload struct {
	ChunkX int           `json:"chunkX"`
	ChunkY int           `json:"chunkY"`
	Size   int           `json:"size"`
	Cached bool          `json:"cached,omitempty"`
	Cells  []CellPayload `json:"cells"`
}

// NewChunkPayload copies the visible cells of buf, row-major.
func NewChunkPayload(buf *world.ChunkBuffer, cached bool) ChunkPayload {
	visible := buf.Visible()
	cells := make([]CellPayload, len(visible))
	for i, c := range visible {
		cells[i] = CellPayload{
			Elevation:   c.Elevation,
			Temperature: c.Temperature,
			Moisture:    c.Moisture,
			Biome:       c.Biome,
		}
	}
	return ChunkPayload{
		ChunkX: buf.Coord.X,
		ChunkY: buf.Coord.Y,
		Size:   buf.Size,
		Cached: cached,
		Cells:  cells,
	}
}

type Ready struct {
	WorldID string        `json:"worldId"`
	Summary world.Summary `json:"summary"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
