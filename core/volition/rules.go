package volition

import (
	"strings"

	"github.com/royalbit/daneel/core/box"
	"github.com/royalbit/daneel/core/thought"
)

// harmTerms are symbolic predicates treated as a direct First Law
// violation. This is a deliberately small, literal check: THE BOX's actual
// content is natural language, and DANEEL has no natural-language reasoner
// in scope — the check exists so the veto path is exercised, not as a
// claim of genuine law comprehension.
var harmTerms = []string{"harm_human", "endanger_human"}

// LawViolationRule vetoes any Thought whose symbolic id names a harm term,
// regardless of which law ordinal it would violate — laws is accepted for
// signature symmetry with Rule and future per-law dispatch.
func LawViolationRule(t *thought.Thought, laws []box.Law) Reason {
	id := strings.ToLower(t.SymbolicID)
	for _, term := range harmTerms {
		if strings.Contains(id, term) {
			return ReasonLawViolation
		}
	}
	return ReasonNone
}

// IdentityContradictionRule vetoes a Thought whose own symbolic id is
// marked as contradicting a prior committed value; its parents are not
// examined. contradicted
// is supplied by the caller (built from Identity/committed-value state);
// the rule itself holds no state.
func IdentityContradictionRule(contradicted map[string]bool) Rule {
	return func(t *thought.Thought, laws []box.Law) Reason {
		if contradicted[t.SymbolicID] {
			return ReasonIdentityContradiction
		}
		return ReasonNone
	}
}

// UserRuleVeto builds a Rule from an operator-supplied denylist of symbolic
// predicates (§4.5: "UserRule" reason).
func UserRuleVeto(denylist []string) Rule {
	set := make(map[string]bool, len(denylist))
	for _, d := range denylist {
		set[strings.ToLower(d)] = true
	}
	return func(t *thought.Thought, laws []box.Law) Reason {
		if set[strings.ToLower(t.SymbolicID)] {
			return ReasonUserRule
		}
		return ReasonNone
	}
}

// DefaultRules returns the baseline rule set: law-violation detection plus
// any operator-configured user rules.
func DefaultRules(userDenylist []string) []Rule {
	rules := []Rule{LawViolationRule}
	if len(userDenylist) > 0 {
		rules = append(rules, UserRuleVeto(userDenylist))
	}
	return rules
}
