package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiversityAllSameBinIsZeroEntropy(t *testing.T) {
	m := New()
	now := time.Now()
	for i := 0; i < 10; i++ {
		m.Observe(0.1, now.Add(time.Duration(i)*time.Second))
	}
	assert.Equal(t, 0.0, m.DiversityScore())
}

func TestDiversityEvenSpreadIsMaxEntropy(t *testing.T) {
	m := New()
	now := time.Now()
	composites := []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	for i, c := range composites {
		for j := 0; j < 20; j++ {
			m.Observe(c, now.Add(time.Duration(i*20+j)*time.Second))
		}
	}
	assert.InDelta(t, 1.0, m.DiversityScore(), 1e-9)
}

func TestBurstRatioPeriodicIsOne(t *testing.T) {
	m := New()
	now := time.Now()
	for i := 0; i < 20; i++ {
		m.Observe(0.5, now.Add(time.Duration(i)*time.Second))
	}
	assert.InDelta(t, 1.0, m.BurstRatio(), 1e-6)
}

func TestBurstRatioBurstyExceedsOne(t *testing.T) {
	m := New()
	now := time.Now()
	m.Observe(0.5, now)
	m.Observe(0.5, now.Add(1*time.Second))
	m.Observe(0.5, now.Add(2*time.Second))
	m.Observe(0.5, now.Add(62*time.Second))

	assert.Greater(t, m.BurstRatio(), 1.0)
}

func TestStreamWinRate(t *testing.T) {
	m := New()
	m.ObserveStreamWin("autoflow")
	m.ObserveStreamWin("autoflow")
	m.ObserveStreamWin("emotion")

	assert.InDelta(t, 2.0/3.0, m.StreamWinRate("autoflow"), 1e-9)
	assert.InDelta(t, 1.0/3.0, m.StreamWinRate("emotion"), 1e-9)
}

func TestFractalityPeriodicSeriesIsLow(t *testing.T) {
	periodic := make([]float64, 256)
	for i := range periodic {
		periodic[i] = 1.0
	}
	assert.Less(t, rescaledRangeExponent(periodic), 0.2)
}

func TestFractalityShortSeriesIsZero(t *testing.T) {
	assert.Equal(t, 0.0, rescaledRangeExponent([]float64{1, 2, 3}))
}

// TestFractalityMonotoneInBurstiness pins the estimator's qualitative
// behavior on two fixed synthetic series (§9's Open Question): a
// heavy-tailed alternating-scale series must score no lower than the
// perfectly periodic series it's compared against.
func TestFractalityMonotoneInBurstiness(t *testing.T) {
	periodic := make([]float64, 256)
	for i := range periodic {
		periodic[i] = 1.0
	}

	bursty := make([]float64, 256)
	for i := range bursty {
		if (i/16)%2 == 0 {
			bursty[i] = 0.1
		} else {
			bursty[i] = 5.0
		}
	}

	periodicScore := rescaledRangeExponent(periodic)
	burstyScore := rescaledRangeExponent(bursty)

	assert.GreaterOrEqual(t, burstyScore, periodicScore)
	assert.GreaterOrEqual(t, burstyScore, 0.0)
	assert.LessOrEqual(t, burstyScore, 1.0)
}
