package salience

import "strings"

// Floor is the minimum connection_relevance a kinship-vocabulary match
// raises a candidate to, before composite is computed (§4.2.2).
type Floor float64

const (
	FloorCoreAction    Floor = 0.9
	FloorSocialAction  Floor = 0.8
	FloorSocialContext Floor = 0.7
	FloorNone          Floor = 0.4
)

// KinshipVocabulary classifies predicates/symbolic ids into the three tiers
// of §4.2.2. The default vocabulary matches the example terms the spec
// lists; it is overridden by the KINSHIP_TERMS config key.
type KinshipVocabulary struct {
	CoreActions    []string // e.g. "protect", "help"
	SocialActions  []string // e.g. "share", "together"
	SocialContexts []string // e.g. "family", "friend", "bond", "trust"
}

// DefaultKinshipVocabulary returns the vocabulary implied by spec.md §4.2.2's
// example list.
func DefaultKinshipVocabulary() KinshipVocabulary {
	return KinshipVocabulary{
		CoreActions:    []string{"protect", "help"},
		SocialActions:  []string{"share", "together"},
		SocialContexts: []string{"family", "friend", "bond", "trust"},
	}
}

// Match reports the floor a predicate/symbolic id matches, if any.
func (kv KinshipVocabulary) Match(predicate string) (Floor, bool) {
	p := strings.ToLower(strings.TrimSpace(predicate))
	if p == "" {
		return 0, false
	}
	for _, term := range kv.CoreActions {
		if p == strings.ToLower(term) {
			return FloorCoreAction, true
		}
	}
	for _, term := range kv.SocialActions {
		if p == strings.ToLower(term) {
			return FloorSocialAction, true
		}
	}
	for _, term := range kv.SocialContexts {
		if p == strings.ToLower(term) {
			return FloorSocialContext, true
		}
	}
	return 0, false
}

// ApplyKinshipPrior raises connection_relevance to the matched floor BEFORE
// composite is computed, as required by §4.2.2. Non-matching input is
// raised to FloorNone only if its current value is lower — the prior never
// lowers an already-higher connection_relevance.
func ApplyKinshipPrior(s Score, predicate string, kv KinshipVocabulary) Score {
	floor, matched := kv.Match(predicate)
	if !matched {
		floor = FloorNone
	}
	if s.ConnectionRelevance < float64(floor) {
		s.ConnectionRelevance = float64(floor)
	}
	return s
}
