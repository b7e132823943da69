package benchmark

import (
	"errors"
	"math"
	"sort"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/rs/zerolog/log"
)

// ErrNoRecords is returned when there is nothing to summarise
var ErrNoRecords = errors.New("no records to summarise")

// PayloadBin is a left-closed payload size range, Max < 0 means unbounded
type PayloadBin struct {
	Label string
	Min   int
	Max   int
}

// PayloadBins groups payload sizes for the efficiency breakdown
var PayloadBins = []PayloadBin{
	{Label: "Tiny (0-5)", Min: 0, Max: 5},
	{Label: "Small (5-15)", Min: 5, Max: 15},
	{Label: "Medium (15-30)", Min: 15, Max: 30},
	{Label: "Large (30-50)", Min: 30, Max: 50},
	{Label: "Very Large (50-100)", Min: 50, Max: 100},
	{Label: "Huge (100+)", Min: 100, Max: -1},
}

func (b PayloadBin) contains(size int) bool {
	return size >= b.Min && (b.Max < 0 || size < b.Max)
}

// LayerShare is the mean overhead of one OSI layer
type LayerShare struct {
	Layer        string
	MeanBytes    float64
	SharePercent float64 // of the mean total size
}

// GroupEfficiency is the mean efficiency of a group of records
type GroupEfficiency struct {
	Label          string
	Count          int
	MeanEfficiency float64
}

// Summary aggregates a set of records
type Summary struct {
	Count          int
	MeanPayload    float64
	MeanTotal      float64
	MeanEfficiency float64
	MinTotal       int
	MaxTotal       int
	P50Total       int64
	P90Total       int64
	P99Total       int64
	Layers         []LayerShare
	Bins           []GroupEfficiency // only bins with records
	ByType         []GroupEfficiency // in MessageTypes order, only types with records
}

// Summarize computes size and efficiency statistics over records
func Summarize(records []Metrics) (Summary, error) {
	if len(records) == 0 {
		return Summary{}, ErrNoRecords
	}

	// Sizes are bytes, 64 KiB is far above any Matter message.
	hist := hdrhistogram.New(1, 1<<16, 3)

	var payload, total, efficiency float64
	var transport, session, presentation, application float64

	s := Summary{
		Count:    len(records),
		MinTotal: math.MaxInt,
	}

	binSum := make([]float64, len(PayloadBins))
	binCount := make([]int, len(PayloadBins))
	typeSum := make(map[MessageType]float64)
	typeCount := make(map[MessageType]int)

	for _, m := range records {
		payload += float64(m.PayloadSize)
		total += float64(m.TotalSize)
		efficiency += float64(m.EfficiencyPercent)
		transport += float64(m.TransportOverhead)
		session += float64(m.SessionOverhead)
		presentation += float64(m.PresentationOverhead)
		application += float64(m.ApplicationOverhead)

		s.MinTotal = min(s.MinTotal, m.TotalSize)
		s.MaxTotal = max(s.MaxTotal, m.TotalSize)

		v := int64(m.TotalSize)
		if v < hist.LowestTrackableValue() {
			v = hist.LowestTrackableValue()
		}
		if v > hist.HighestTrackableValue() {
			v = hist.HighestTrackableValue()
		}
		if err := hist.RecordValue(v); err != nil {
			log.Debug().Err(err).Int64("total_bytes", v).Msg("Total size outside histogram range")
		}

		for i, b := range PayloadBins {
			if b.contains(m.PayloadSize) {
				binSum[i] += float64(m.EfficiencyPercent)
				binCount[i]++
				break
			}
		}
		typeSum[m.MessageType] += float64(m.EfficiencyPercent)
		typeCount[m.MessageType]++
	}

	n := float64(len(records))
	s.MeanPayload = payload / n
	s.MeanTotal = total / n
	s.MeanEfficiency = efficiency / n
	s.P50Total = hist.ValueAtQuantile(50)
	s.P90Total = hist.ValueAtQuantile(90)
	s.P99Total = hist.ValueAtQuantile(99)

	for _, l := range []struct {
		name string
		sum  float64
	}{
		{"transport", transport},
		{"session", session},
		{"presentation", presentation},
		{"application", application},
	} {
		mean := l.sum / n
		share := 0.0
		if s.MeanTotal > 0 {
			share = mean / s.MeanTotal * 100
		}
		s.Layers = append(s.Layers, LayerShare{Layer: l.name, MeanBytes: mean, SharePercent: share})
	}

	for i, b := range PayloadBins {
		if binCount[i] == 0 {
			continue
		}
		s.Bins = append(s.Bins, GroupEfficiency{
			Label:          b.Label,
			Count:          binCount[i],
			MeanEfficiency: binSum[i] / float64(binCount[i]),
		})
	}

	// Known types first in protocol order, then anything else by name
	types := append([]MessageType(nil), MessageTypes...)
	var unknown []MessageType
	for t := range typeCount {
		if !t.Valid() {
			unknown = append(unknown, t)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	types = append(types, unknown...)

	for _, t := range types {
		if typeCount[t] == 0 {
			continue
		}
		s.ByType = append(s.ByType, GroupEfficiency{
			Label:          string(t),
			Count:          typeCount[t],
			MeanEfficiency: typeSum[t] / float64(typeCount[t]),
		})
	}

	return s, nil
}

// Log prints the summary to the global logger
func (s Summary) Log() {
	log.Info().
		Int("messages", s.Count).
		Float64("avg_payload_bytes", round1(s.MeanPayload)).
		Float64("avg_total_bytes", round1(s.MeanTotal)).
		Float64("avg_efficiency_percent", round1(s.MeanEfficiency)).
		Int("min_total_bytes", s.MinTotal).
		Int("max_total_bytes", s.MaxTotal).
		Int64("p50_total_bytes", s.P50Total).
		Int64("p90_total_bytes", s.P90Total).
		Int64("p99_total_bytes", s.P99Total).
		Msg("Matter protocol statistics")

	for _, l := range s.Layers {
		log.Info().
			Str("layer", l.Layer).
			Float64("avg_bytes", round1(l.MeanBytes)).
			Float64("share_percent", round1(l.SharePercent)).
			Msg("OSI layer overhead")
	}
	for _, b := range s.Bins {
		log.Info().
			Str("payload_bin", b.Label).
			Int("messages", b.Count).
			Float64("avg_efficiency_percent", round1(b.MeanEfficiency)).
			Msg("Efficiency by payload size")
	}
	for _, t := range s.ByType {
		log.Info().
			Str("message_type", t.Label).
			Int("messages", t.Count).
			Float64("avg_efficiency_percent", round1(t.MeanEfficiency)).
			Msg("Efficiency by message type")
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
