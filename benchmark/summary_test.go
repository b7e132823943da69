package benchmark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(nil)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestSummarize(t *testing.T) {
	model := DefaultOverheadModel()
	now := time.Now()
	records := []Metrics{
		model.Build(1, MessageCommissioning, make([]byte, 39), now), // total 147
		model.Build(2, MessageOnCommand, make([]byte, 4), now),      // total 112
		model.Build(3, MessageOffCommand, make([]byte, 4), now),     // total 112
		model.Build(4, MessageDeviceInfo, make([]byte, 100), now),   // total 208
	}

	s, err := Summarize(records)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 36.75, s.MeanPayload, 1e-9)
	assert.InDelta(t, 144.75, s.MeanTotal, 1e-9)
	assert.Equal(t, 112, s.MinTotal)
	assert.Equal(t, 208, s.MaxTotal)
	assert.Equal(t, int64(112), s.P50Total)
	assert.Equal(t, int64(208), s.P99Total)

	require.Len(t, s.Layers, 4)
	assert.Equal(t, "transport", s.Layers[0].Layer)
	assert.InDelta(t, 40.0, s.Layers[0].MeanBytes, 1e-9)
	assert.InDelta(t, 40.0/144.75*100, s.Layers[0].SharePercent, 1e-9)
	assert.InDelta(t, 8.0, s.Layers[2].MeanBytes, 1e-9)

	require.Len(t, s.Bins, 3)
	assert.Equal(t, "Tiny (0-5)", s.Bins[0].Label)
	assert.Equal(t, 2, s.Bins[0].Count)
	assert.Equal(t, "Large (30-50)", s.Bins[1].Label)
	assert.Equal(t, "Huge (100+)", s.Bins[2].Label)

	require.Len(t, s.ByType, 4)
	assert.Equal(t, string(MessageCommissioning), s.ByType[0].Label)
	assert.Equal(t, string(MessageDeviceInfo), s.ByType[3].Label)

	s.Log()
}

func TestSummarizeKeepsUnknownTypes(t *testing.T) {
	records := []Metrics{
		NewMetrics(1, MessageOnCommand, make([]byte, 4)),
		NewMetrics(2, MessageType("on_command"), make([]byte, 4)),
		NewMetrics(3, MessageType("SCENE_RECALL"), make([]byte, 4)),
		NewMetrics(4, MessageType("SCENE_RECALL"), make([]byte, 4)),
	}

	s, err := Summarize(records)
	require.NoError(t, err)

	total := 0
	for _, g := range s.ByType {
		total += g.Count
	}
	assert.Equal(t, s.Count, total)

	require.Len(t, s.ByType, 3)
	assert.Equal(t, string(MessageOnCommand), s.ByType[0].Label)
	assert.Equal(t, "SCENE_RECALL", s.ByType[1].Label)
	assert.Equal(t, 2, s.ByType[1].Count)
	assert.Equal(t, "on_command", s.ByType[2].Label)
}

func TestPayloadBinBoundaries(t *testing.T) {
	find := func(size int) string {
		for _, b := range PayloadBins {
			if b.contains(size) {
				return b.Label
			}
		}
		return ""
	}
	assert.Equal(t, "Tiny (0-5)", find(0))
	assert.Equal(t, "Small (5-15)", find(5))
	assert.Equal(t, "Medium (15-30)", find(29))
	assert.Equal(t, "Very Large (50-100)", find(99))
	assert.Equal(t, "Huge (100+)", find(100))
	assert.Equal(t, "Huge (100+)", find(5000))
}
