package types

// UserRole represents the different user roles in the system
type UserRole string

const (
	RolePatient          UserRole = "patient"
	RoleConsultingDoctor UserRole = "consulting_doctor"
	RoleReviewingDoctor  UserRole = "reviewing_doctor"
	RoleNurse            UserRole = "nurse"
	RoleClinicalStaff    UserRole = "clinical_staff"
	RoleAdministrator    UserRole = "administrator"
)

// CanReviewNotes reports whether the role may approve or reject a
// note that is pending review
func (r UserRole) CanReviewNotes() bool {
	switch r {
	case RoleConsultingDoctor, RoleReviewingDoctor, RoleAdministrator:
		return true
	}
	return false
}

// CanAuthorNotes reports whether the role may generate and edit notes
func (r UserRole) CanAuthorNotes() bool {
	switch r {
	case RoleConsultingDoctor, RoleReviewingDoctor:
		return true
	}
	return false
}

// UserClaims represents JWT token claims
type UserClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	OrgID    string   `json:"org_id"`
}
