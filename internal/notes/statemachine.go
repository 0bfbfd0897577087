package notes

import (
	"fmt"

	"github.com/clinscribe/emr/pkg/types"
)

// allowedTransitions is the explicit transition table of the review
// lifecycle. Archived is terminal. Rejected notes can be corrected and
// resubmitted through Update, which is the only way a note moves
// between draft and pending_review.
var allowedTransitions = map[types.NoteStatus][]types.NoteStatus{
	types.StatusDraft:         {types.StatusPendingReview, types.StatusArchived},
	types.StatusPendingReview: {types.StatusApproved, types.StatusRejected, types.StatusArchived},
	types.StatusApproved:      {types.StatusArchived},
	types.StatusRejected:      {types.StatusDraft, types.StatusPendingReview, types.StatusArchived},
	types.StatusArchived:      {},
}

// CanTransition reports whether moving from one status to another is
// legal. A no-op transition to the same status is always allowed.
func CanTransition(from, to types.NoteStatus) bool {
	if from == to {
		return true
	}

	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a conflict error naming the attempted
// edge when the transition is illegal
func ValidateTransition(from, to types.NoteStatus) error {
	if !to.IsValid() {
		return types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("unknown note status: %s", to), map[string]interface{}{
				"status": string(to),
			})
	}

	if !CanTransition(from, to) {
		return types.NewConflictError(types.ErrCodeIllegalTransition,
			fmt.Sprintf("cannot move note from %s to %s", from, to), map[string]interface{}{
				"from_status": string(from),
				"to_status":   string(to),
			})
	}

	return nil
}

// CanReview reports whether the actor may approve or reject a pending
// note
func CanReview(actor *types.UserClaims) bool {
	return actor != nil && actor.Role.CanReviewNotes()
}

// CanArchive reports whether the actor may archive the note. Archiving
// is reserved for the note owner; administrators may archive on their
// behalf.
func CanArchive(actor *types.UserClaims, note *types.DoctorNote) bool {
	if actor == nil {
		return false
	}
	if actor.Role == types.RoleAdministrator {
		return true
	}
	return actor.UserID == note.DoctorID
}
