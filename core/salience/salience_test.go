package salience

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposite(t *testing.T) {
	t.Run("fully salient candidate reaches 1.0", func(t *testing.T) {
		s := Score{
			Importance:          1.0,
			Relevance:           1.0,
			Novelty:             1.0,
			ValenceSigned:       1.0,
			Arousal:             1.0,
			ConnectionRelevance: 1.0,
		}
		assert.InDelta(t, 1.0, s.Composite(), 1e-9)
	})

	t.Run("scenario 2 from spec: composite equals 1.0", func(t *testing.T) {
		s := Score{
			Importance:          1.0,
			Relevance:           1.0,
			Novelty:             0.5,
			ValenceSigned:       1.0,
			Arousal:             1.0,
			ConnectionRelevance: 0.5,
		}
		// 0.40*1.0 + 0.30*1.0 + 0.20*1.0 + 0.20*0.5 + 0.10*0.5 = 1.05, clamped to 1.0
		assert.InDelta(t, 1.0, s.Composite(), 1e-9)
	})

	t.Run("zero score composites to zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Score{}.Composite())
	})

	t.Run("negative valence contributes via absolute value", func(t *testing.T) {
		pos := Score{ValenceSigned: 0.5, Arousal: 1.0}
		neg := Score{ValenceSigned: -0.5, Arousal: 1.0}
		assert.Equal(t, pos.Composite(), neg.Composite())
	})

	t.Run("deterministic given identical inputs", func(t *testing.T) {
		s := Score{Importance: 0.42, Relevance: 0.1, Novelty: 0.9, ValenceSigned: -0.3, Arousal: 0.6, ConnectionRelevance: 0.2}
		assert.Equal(t, s.Composite(), s.Composite())
	})
}

func TestEmotionalIntensity(t *testing.T) {
	s := Score{ValenceSigned: -0.8, Arousal: 0.5}
	assert.InDelta(t, 0.4, s.EmotionalIntensity(), 1e-9)
}

func TestThresholdsClassify(t *testing.T) {
	th := DefaultThresholds()

	t.Run("boundary: 0.70 consolidates", func(t *testing.T) {
		assert.Equal(t, DispositionConsolidate, th.Classify(0.70))
	})
	t.Run("boundary: 0.6999 does not consolidate", func(t *testing.T) {
		assert.Equal(t, DispositionPending, th.Classify(0.6999))
	})
	t.Run("boundary: 0.30 keeps (not forgotten)", func(t *testing.T) {
		assert.Equal(t, DispositionPending, th.Classify(0.30))
	})
	t.Run("boundary: 0.2999 archives", func(t *testing.T) {
		assert.Equal(t, DispositionForget, th.Classify(0.2999))
	})
}

func TestKinshipPrior(t *testing.T) {
	kv := DefaultKinshipVocabulary()

	t.Run("core action raises floor to 0.9", func(t *testing.T) {
		s := ApplyKinshipPrior(Score{ConnectionRelevance: 0.1}, "protect", kv)
		assert.Equal(t, 0.9, s.ConnectionRelevance)
	})
	t.Run("social context raises floor to 0.7", func(t *testing.T) {
		s := ApplyKinshipPrior(Score{ConnectionRelevance: 0.1}, "family", kv)
		assert.Equal(t, 0.7, s.ConnectionRelevance)
	})
	t.Run("unmatched predicate floors at 0.4", func(t *testing.T) {
		s := ApplyKinshipPrior(Score{ConnectionRelevance: 0.1}, "weather", kv)
		assert.Equal(t, 0.4, s.ConnectionRelevance)
	})
	t.Run("never lowers an already-higher value", func(t *testing.T) {
		s := ApplyKinshipPrior(Score{ConnectionRelevance: 0.95}, "weather", kv)
		assert.Equal(t, 0.95, s.ConnectionRelevance)
	})
}
