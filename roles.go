package accounts

import "strings"

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleUser:  0,
		RoleAdmin: 1,
	}

	current, ok := roleHierarchy[r]
	if !ok {
		return false
	}
	required, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}
	return current >= required
}

// ParseRole accepts any casing of USER and ADMIN
func ParseRole(s string) (UserRole, error) {
	r := UserRole(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// IsValid checks if the status is ACTIVE or BLOCKED
func (s UserStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusBlocked:
		return true
	default:
		return false
	}
}

// ParseStatus accepts any casing of ACTIVE and BLOCKED
func ParseStatus(s string) (UserStatus, error) {
	st := UserStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}
