package gesture

import "fmt"

// Preset open hand thresholds for the two finger counting rules. The rules
// produce different gap counts for the same physical hand.
const (
	DepthRuleMinGaps = 2
	AngleRuleMinGaps = 4
)

// Classifier maps a hand observation onto a State.
type Classifier struct {
	// MinGapsForOpenHand is the smallest finger gap count classified as OpenHand.
	MinGapsForOpenHand int
}

// NewClassifier creates a Classifier with the given open hand threshold.
func NewClassifier(minGapsForOpenHand int) (*Classifier, error) {
	if minGapsForOpenHand < 1 {
		return nil, fmt.Errorf("min gaps for open hand must be at least 1, got %d", minGapsForOpenHand)
	}
	return &Classifier{MinGapsForOpenHand: minGapsForOpenHand}, nil
}

// Classify returns NoHand when no region was selected, ClosedFist when the
// region has fewer than MinGapsForOpenHand finger gaps and OpenHand otherwise.
// gaps is ignored without a hand.
func (c *Classifier) Classify(handFound bool, gaps int) State {
	if !handFound {
		return NoHand
	}
	if gaps < c.MinGapsForOpenHand {
		return ClosedFist
	}
	return OpenHand
}
