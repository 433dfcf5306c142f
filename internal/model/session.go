package model

// Session is the identity of the signed-in user as persisted by the portal.
type Session struct {
	User       User      `json:"user"`
	Employee   *Employee `json:"employee,omitempty"`
	EmployeeID *int64    `json:"employee_id,omitempty"`
}

// Valid reports whether the payload carries enough to gate routes.
func (s Session) Valid() bool {
	return s.User.Role != ""
}

// Role returns the user's role tag.
func (s Session) Role() Role {
	return s.User.Role
}

// ResolveEmployeeID is the only place the current employee id is derived:
// an explicit employee_id wins over the embedded employee record.
func (s Session) ResolveEmployeeID() (int64, bool) {
	if s.EmployeeID != nil {
		return *s.EmployeeID, true
	}
	if s.Employee != nil && s.Employee.ID != 0 {
		return s.Employee.ID, true
	}
	return 0, false
}

// DisplayName picks the best label for headers.
func (s Session) DisplayName() string {
	if s.Employee != nil {
		return s.Employee.FullName()
	}
	if s.User.Name != "" {
		return s.User.Name
	}
	return s.User.Email
}

// LoginRequest is the body posted to the authentication endpoint.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginResponse is the success body of the authentication endpoint.
type LoginResponse struct {
	Token      string    `json:"token"`
	User       *User     `json:"user"`
	Employee   *Employee `json:"employee,omitempty"`
	EmployeeID *int64    `json:"employee_id,omitempty"`
}

// Session extracts the persisted payload from a login response.
func (r LoginResponse) Session() Session {
	s := Session{Employee: r.Employee, EmployeeID: r.EmployeeID}
	if r.User != nil {
		s.User = *r.User
	}
	return s
}
