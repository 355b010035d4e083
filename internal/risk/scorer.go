package risk

import "github.com/MikeSquared-Agency/scribe/internal/chat"

// Points attached to each kind of checkpoint.
const (
	PointServiceRisk = 50
	PointQuality     = 60
	PointComplaint   = 55
	PointApology     = 20
)

const (
	maxScore = 100

	// ApologyThreshold is the number of service apologies in one
	// conversation that raises a warning on an otherwise clean transcript.
	ApologyThreshold = 4
)

// Deduction returns the score penalty of a checkpoint raised on a message
// from sender. Customer-side hits are recorded but cost nothing.
func Deduction(sender chat.Sender, cp chat.Checkpoint) int {
	if sender != chat.SenderService {
		return 0
	}
	return cp.Point
}

// Score converts a total deduction into a 0..100 score.
func Score(deduction int) int {
	return clamp(maxScore - deduction)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
