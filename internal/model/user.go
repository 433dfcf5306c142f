package model

import (
	"encoding/json"
	"strconv"
)

// User is the account record returned by the authentication endpoint.
type User struct {
	ID    int64  `json:"id"`
	Role  Role   `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// UnmarshalJSON normalizes the role tag so gating compares canonical values.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw)
	u.Role = NormalizeRole(string(raw.Role))
	return nil
}

// Employee is the staff record linked to a user. Patients have none.
type Employee struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

// FullName joins the name parts, falling back to the numeric id.
func (e Employee) FullName() string {
	switch {
	case e.FirstName != "" && e.LastName != "":
		return e.FirstName + " " + e.LastName
	case e.FirstName != "":
		return e.FirstName
	case e.LastName != "":
		return e.LastName
	}
	return "Employee #" + strconv.FormatInt(e.ID, 10)
}
