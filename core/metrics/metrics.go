// Package metrics implements MetricsCore (§4.11): derived, read-only
// observability statistics computed over recent thought activity.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Descriptor classifies the normalized Cognitive Diversity Index (§4.11).
type Descriptor string

const (
	DescriptorClockwork Descriptor = "CLOCKWORK"
	DescriptorBalanced  Descriptor = "BALANCED"
	DescriptorEmergent  Descriptor = "EMERGENT"
)

// log2Of5 is log2(5), the normalizer for the five-bin entropy (§4.11).
var log2Of5 = math.Log2(5)

// binEdges are the five composite-salience bins of §4.11.
var binEdges = []float64{0.2, 0.4, 0.6, 0.8}

// windowSize bounds how many recent thought timestamps/composites
// MetricsCore retains for its sliding-window statistics.
const windowSize = 2048

// MetricsCore accumulates recent thought events and derives the §4.11
// readouts on demand.
type MetricsCore struct {
	mu sync.Mutex

	composites []float64
	timestamps []time.Time

	streamWins  map[string]int
	streamTotal int
}

// New constructs an empty MetricsCore.
func New() *MetricsCore {
	return &MetricsCore{streamWins: make(map[string]int)}
}

// Observe records one thought's composite salience and arrival time
// (called once per anchored Thought, from the CycleRunner).
func (m *MetricsCore) Observe(composite float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.composites = append(m.composites, composite)
	m.timestamps = append(m.timestamps, at)
	if len(m.composites) > windowSize {
		m.composites = m.composites[len(m.composites)-windowSize:]
		m.timestamps = m.timestamps[len(m.timestamps)-windowSize:]
	}
}

// ObserveStreamWin records that a Stage 3 competition was won by stream
// (for the stream-competition readout).
func (m *MetricsCore) ObserveStreamWin(stream string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamWins[stream]++
	m.streamTotal++
}

// DiversityScore returns the normalized (0..1) Cognitive Diversity Index,
// the entropy_delta baseline InjectionIntake probes (§4.8).
func (m *MetricsCore) DiversityScore() float64 {
	_, normalized, _ := m.diversity()
	return normalized
}

// diversity computes raw-bits, normalized, and descriptor together so
// Snapshot doesn't recompute the bin histogram twice.
func (m *MetricsCore) diversity() (rawBits, normalized float64, desc Descriptor) {
	m.mu.Lock()
	composites := append([]float64(nil), m.composites...)
	m.mu.Unlock()

	if len(composites) == 0 {
		return 0, 0, DescriptorClockwork
	}

	counts := make([]float64, 5)
	for _, c := range composites {
		counts[binIndex(c)]++
	}
	total := float64(len(composites))
	probs := make([]float64, 5)
	for i, c := range counts {
		probs[i] = c / total
	}

	rawBits = stat.Entropy(probs) / math.Ln2
	normalized = rawBits / log2Of5

	switch {
	case normalized < 0.3:
		desc = DescriptorClockwork
	case normalized < 0.6:
		desc = DescriptorBalanced
	default:
		desc = DescriptorEmergent
	}
	return rawBits, normalized, desc
}

func binIndex(composite float64) int {
	for i, edge := range binEdges {
		if composite < edge {
			return i
		}
	}
	return len(binEdges)
}

// BurstRatio returns max(inter-thought interval) / mean(inter-thought
// interval) over the retained window (§4.11).
func (m *MetricsCore) BurstRatio() float64 {
	intervals := m.interArrivalSeconds()
	if len(intervals) == 0 {
		return 0
	}

	mean := stat.Mean(intervals, nil)
	if mean == 0 {
		return 0
	}

	max := intervals[0]
	for _, iv := range intervals[1:] {
		if iv > max {
			max = iv
		}
	}
	return max / mean
}

func (m *MetricsCore) interArrivalSeconds() []float64 {
	m.mu.Lock()
	ts := append([]time.Time(nil), m.timestamps...)
	m.mu.Unlock()

	if len(ts) < 2 {
		return nil
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })

	out := make([]float64, 0, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		out = append(out, ts[i].Sub(ts[i-1]).Seconds())
	}
	return out
}

// StreamWinRate returns stream's recent share of Stage 3 competitions.
func (m *MetricsCore) StreamWinRate(stream string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.streamTotal == 0 {
		return 0
	}
	return float64(m.streamWins[stream]) / float64(m.streamTotal)
}

// Snapshot returns every §4.11 readout as a map, for the /metrics probe
// (§6.1) and the `status` CLI command (§6.6).
func (m *MetricsCore) Snapshot() map[string]any {
	rawBits, normalized, desc := m.diversity()
	m.mu.Lock()
	winRates := make(map[string]float64, len(m.streamWins))
	for stream, wins := range m.streamWins {
		winRates[stream] = float64(wins) / float64(m.streamTotal)
	}
	m.mu.Unlock()
	return map[string]any{
		"cognitive_diversity_bits":       rawBits,
		"cognitive_diversity_normalized": normalized,
		"cognitive_diversity_descriptor": string(desc),
		"burst_ratio":                    m.BurstRatio(),
		"fractality":                     m.Fractality(),
		"stream_win_rates":               winRates,
	}
}
