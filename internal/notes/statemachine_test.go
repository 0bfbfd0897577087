package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinscribe/emr/pkg/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    types.NoteStatus
		to      types.NoteStatus
		allowed bool
	}{
		{types.StatusDraft, types.StatusPendingReview, true},
		{types.StatusDraft, types.StatusArchived, true},
		{types.StatusDraft, types.StatusApproved, false},
		{types.StatusDraft, types.StatusRejected, false},

		{types.StatusPendingReview, types.StatusApproved, true},
		{types.StatusPendingReview, types.StatusRejected, true},
		{types.StatusPendingReview, types.StatusArchived, true},
		{types.StatusPendingReview, types.StatusDraft, false},

		{types.StatusApproved, types.StatusArchived, true},
		{types.StatusApproved, types.StatusRejected, false},
		{types.StatusApproved, types.StatusPendingReview, false},
		{types.StatusApproved, types.StatusDraft, false},

		{types.StatusRejected, types.StatusDraft, true},
		{types.StatusRejected, types.StatusPendingReview, true},
		{types.StatusRejected, types.StatusArchived, true},
		{types.StatusRejected, types.StatusApproved, false},

		{types.StatusArchived, types.StatusDraft, false},
		{types.StatusArchived, types.StatusPendingReview, false},
		{types.StatusArchived, types.StatusApproved, false},
		{types.StatusArchived, types.StatusRejected, false},
	}

	for _, tc := range cases {
		name := string(tc.from) + "_to_" + string(tc.to)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to))
		})
	}

	t.Run("same status is always allowed", func(t *testing.T) {
		for _, s := range []types.NoteStatus{
			types.StatusDraft,
			types.StatusPendingReview,
			types.StatusApproved,
			types.StatusRejected,
			types.StatusArchived,
		} {
			assert.True(t, CanTransition(s, s))
		}
	})
}

func TestValidateTransition(t *testing.T) {
	t.Run("legal transition returns nil", func(t *testing.T) {
		err := ValidateTransition(types.StatusPendingReview, types.StatusApproved)

		assert.NoError(t, err)
	})

	t.Run("illegal transition returns conflict with edge details", func(t *testing.T) {
		err := ValidateTransition(types.StatusApproved, types.StatusRejected)

		assert.Error(t, err)
		se, ok := types.AsServiceError(err)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeConflict, se.Type)
		assert.Equal(t, types.ErrCodeIllegalTransition, se.Code)
		assert.Equal(t, "approved", se.Details["from_status"])
		assert.Equal(t, "rejected", se.Details["to_status"])
	})

	t.Run("archived is terminal", func(t *testing.T) {
		for _, to := range []types.NoteStatus{
			types.StatusDraft,
			types.StatusPendingReview,
			types.StatusApproved,
			types.StatusRejected,
		} {
			err := ValidateTransition(types.StatusArchived, to)
			assert.Error(t, err)
		}
	})

	t.Run("unknown target status is a validation error", func(t *testing.T) {
		err := ValidateTransition(types.StatusDraft, types.NoteStatus("published"))

		assert.Error(t, err)
		se, ok := types.AsServiceError(err)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeValidation, se.Type)
	})
}

func TestCanReview(t *testing.T) {
	t.Run("reviewing roles may review", func(t *testing.T) {
		assert.True(t, CanReview(&types.UserClaims{UserID: "u1", Role: types.RoleConsultingDoctor}))
		assert.True(t, CanReview(&types.UserClaims{UserID: "u2", Role: types.RoleReviewingDoctor}))
		assert.True(t, CanReview(&types.UserClaims{UserID: "u3", Role: types.RoleAdministrator}))
	})

	t.Run("non-reviewing roles may not", func(t *testing.T) {
		assert.False(t, CanReview(&types.UserClaims{UserID: "u4", Role: types.RoleNurse}))
		assert.False(t, CanReview(&types.UserClaims{UserID: "u5", Role: types.RolePatient}))
		assert.False(t, CanReview(&types.UserClaims{UserID: "u6", Role: types.RoleClinicalStaff}))
		assert.False(t, CanReview(nil))
	})
}

func TestCanArchive(t *testing.T) {
	note := &types.DoctorNote{ID: "note-1", DoctorID: "doctor-1"}

	t.Run("note owner may archive", func(t *testing.T) {
		actor := &types.UserClaims{UserID: "doctor-1", Role: types.RoleConsultingDoctor}

		assert.True(t, CanArchive(actor, note))
	})

	t.Run("administrator may archive any note", func(t *testing.T) {
		actor := &types.UserClaims{UserID: "admin-1", Role: types.RoleAdministrator}

		assert.True(t, CanArchive(actor, note))
	})

	t.Run("other clinicians may not archive", func(t *testing.T) {
		actor := &types.UserClaims{UserID: "doctor-2", Role: types.RoleReviewingDoctor}

		assert.False(t, CanArchive(actor, note))
		assert.False(t, CanArchive(nil, note))
	})
}
