package rotation

import (
	appErrors "github.com/mailops/console-backend/internal/errors"
)

// SenderFor returns which sender identity (1..maxSequences) handles the next
// email, given how many emails the campaign has sent so far. The assignment
// cycles 1,1,…,1,2,2,…,2,…,maxSequences,1,… in blocks of perSequence, so the
// active sender is always recomputable from the sent count alone — resuming
// after a pause reproduces the same sequence with no extra bookkeeping.
func SenderFor(sentSoFar, perSequence, maxSequences int) (int, error) {
	if perSequence < 1 {
		return 0, appErrors.NewInvalidConfiguration("emails_per_sequence", "must be at least 1")
	}
	if maxSequences < 1 {
		return 0, appErrors.NewInvalidConfiguration("max_sequences", "must be at least 1")
	}
	if sentSoFar < 0 {
		sentSoFar = 0
	}
	return (sentSoFar/perSequence)%maxSequences + 1, nil
}
