package model

import "strings"

// Role is the tag the API assigns to an account. It selects the landing page
// and gates access to shared pages.
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleDoctor           Role = "DOCTOR"
	RoleNurse            Role = "NURSE"
	RoleReceptionist     Role = "RECEPTIONIST"
	RolePharmacist       Role = "PHARMACIST"
	RoleLabTechnician    Role = "LAB_TECHNICIAN"
	RoleRadiologist      Role = "RADIOLOGIST"
	RolePatient          Role = "PATIENT"
	RoleAccountant       Role = "ACCOUNTANT"
	RoleHRManager        Role = "HR_MANAGER"
	RoleInventoryManager Role = "INVENTORY_MANAGER"
)

// Roles lists every role the portal ships a landing page for.
var Roles = []Role{
	RoleAdmin,
	RoleDoctor,
	RoleNurse,
	RoleReceptionist,
	RolePharmacist,
	RoleLabTechnician,
	RoleRadiologist,
	RolePatient,
	RoleAccountant,
	RoleHRManager,
	RoleInventoryManager,
}

// NormalizeRole upper-cases the tag and maps the spellings the API has used
// over time onto the canonical constants.
func NormalizeRole(raw string) Role {
	r := strings.ToUpper(strings.TrimSpace(raw))
	r = strings.ReplaceAll(r, "-", "_")
	r = strings.ReplaceAll(r, " ", "_")
	switch r {
	case "LAB_TECH", "LABTECH", "LABORATORIST":
		return RoleLabTechnician
	case "HR":
		return RoleHRManager
	case "INVENTORY":
		return RoleInventoryManager
	}
	return Role(r)
}

// Slug is the path segment used for the role's landing page.
func (r Role) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(r)), "_", "-")
}

// Label is a human readable name for menus and headings.
func (r Role) Label() string {
	parts := strings.Split(strings.ToLower(string(r)), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
