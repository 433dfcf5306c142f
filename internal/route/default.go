package route

import (
	"hmsportal/internal/metrics"
	"hmsportal/internal/model"
	"hmsportal/internal/nav"
	"hmsportal/internal/page"
)

const (
	admin        = model.RoleAdmin
	doctor       = model.RoleDoctor
	nurse        = model.RoleNurse
	receptionist = model.RoleReceptionist
	pharmacist   = model.RolePharmacist
	labTech      = model.RoleLabTechnician
	radiologist  = model.RoleRadiologist
	patient      = model.RolePatient
	accountant   = model.RoleAccountant
	hrManager    = model.RoleHRManager
	inventory    = model.RoleInventoryManager
)

func roles(r ...model.Role) []model.Role { return r }

func cols(pairs ...string) []page.Column {
	out := make([]page.Column, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, page.Column{Key: pairs[i], Label: pairs[i+1]})
	}
	return out
}

func text(name, label string) page.Field {
	return page.Field{Name: name, Label: label, Type: "text", Required: true}
}

func optional(name, label, typ string) page.Field {
	return page.Field{Name: name, Label: label, Type: typ}
}

func feature(slug, title string, allowed []model.Role, spec page.ResourceSpec) Entry {
	return Entry{
		Path:         nav.DashboardPath + "/" + slug,
		Title:        title,
		AllowedRoles: allowed,
		Load:         page.NewResource(spec),
	}
}

func landing(role model.Role, stats ...page.Stat) Entry {
	return Entry{
		Path:    nav.DashboardPath + "/" + role.Slug(),
		Title:   role.Label() + " Dashboard",
		Landing: role,
		Load:    page.NewLanding(role, stats...),
	}
}

func stat(label, endpoint, slug string) page.Stat {
	return page.Stat{Label: label, Endpoint: endpoint, Path: nav.DashboardPath + "/" + slug}
}

// DefaultEntries is the portal's route surface.
func DefaultEntries() []Entry {
	return []Entry{
		{Path: nav.LoginPath, Title: "Sign in", Public: true, View: page.ViewLogin},
		{Path: nav.UnauthorizedPath, Title: "Not allowed", Public: true, View: page.ViewUnauthorized},
		{Path: nav.DashboardPath, Title: "Dashboard"},

		landing(admin,
			stat("Patients", "/patients", "patients"),
			stat("Staff", "/employees", "staff"),
			stat("Users", "/users", "users")),
		landing(doctor,
			stat("Appointments", "/appointments", "appointments"),
			stat("Lab orders", "/lab-orders", "laboratory"),
			stat("Prescriptions", "/prescriptions", "prescriptions")),
		landing(nurse,
			stat("Admissions", "/admissions", "admissions"),
			stat("Beds", "/beds", "beds")),
		landing(receptionist,
			stat("Appointments", "/appointments", "appointments"),
			stat("Patients", "/patients", "patients")),
		landing(pharmacist,
			stat("Prescriptions", "/prescriptions", "prescriptions"),
			stat("Medicines", "/medicines", "pharmacy")),
		landing(labTech,
			stat("Lab orders", "/lab-orders", "laboratory")),
		landing(radiologist,
			stat("Radiology orders", "/radiology-orders", "radiology")),
		landing(patient,
			stat("Appointments", "/patients/me/appointments", "my-appointments"),
			stat("Invoices", "/patients/me/invoices", "my-invoices")),
		landing(accountant,
			stat("Invoices", "/invoices", "billing"),
			stat("Insurance claims", "/insurance-claims", "insurance-claims")),
		landing(hrManager,
			stat("Staff", "/employees", "staff"),
			stat("Leave requests", "/leave-requests", "leave-requests")),
		landing(inventory,
			stat("Items", "/inventory-items", "inventory"),
			stat("Purchase orders", "/purchase-orders", "purchase-orders")),

		// Clinical
		feature("patients", "Patients", roles(admin, doctor, nurse, receptionist), page.ResourceSpec{
			Endpoint: "/patients",
			Columns:  cols("id", "ID", "name", "Name", "gender", "Gender", "date_of_birth", "Born", "phone", "Phone"),
			Fields: []page.Field{
				text("name", "Name"),
				optional("gender", "Gender", "text"),
				optional("date_of_birth", "Date of birth", "date"),
				optional("phone", "Phone", "text"),
				optional("address", "Address", "textarea"),
			},
		}),
		feature("appointments", "Appointments", roles(admin, doctor, nurse, receptionist), page.ResourceSpec{
			Endpoint: "/appointments",
			Columns:  cols("id", "ID", "patient", "Patient", "doctor", "Doctor", "scheduled_at", "When", "status", "Status"),
			Fields: []page.Field{
				{Name: "patient_id", Label: "Patient ID", Type: "number", Required: true},
				{Name: "doctor_id", Label: "Doctor ID", Type: "number", Required: true},
				{Name: "scheduled_at", Label: "When", Type: "datetime-local", Required: true},
				optional("reason", "Reason", "textarea"),
			},
		}),
		feature("doctor-schedules", "Doctor Schedules", roles(admin, doctor, receptionist), page.ResourceSpec{
			Endpoint: "/doctor-schedules",
			Columns:  cols("doctor", "Doctor", "day_of_week", "Day", "start_time", "From", "end_time", "To"),
			Fields: []page.Field{
				{Name: "doctor_id", Label: "Doctor ID", Type: "number", Required: true},
				text("day_of_week", "Day"),
				text("start_time", "From"),
				text("end_time", "To"),
			},
		}),
		feature("medical-records", "Medical Records", roles(admin, doctor, nurse), page.ResourceSpec{
			Endpoint: "/medical-records",
			Columns:  cols("id", "ID", "patient", "Patient", "diagnosis", "Diagnosis", "created_at", "Recorded"),
			Fields: []page.Field{
				{Name: "patient_id", Label: "Patient ID", Type: "number", Required: true},
				text("diagnosis", "Diagnosis"),
				optional("notes", "Notes", "textarea"),
			},
		}),
		feature("admissions", "Admissions", roles(admin, doctor, nurse, receptionist), page.ResourceSpec{
			Endpoint: "/admissions",
			Columns:  cols("id", "ID", "patient", "Patient", "ward", "Ward", "bed", "Bed", "admitted_at", "Admitted", "status", "Status"),
			Fields: []page.Field{
				{Name: "patient_id", Label: "Patient ID", Type: "number", Required: true},
				{Name: "bed_id", Label: "Bed ID", Type: "number", Required: true},
				optional("reason", "Reason", "textarea"),
			},
		}),
		feature("wards", "Wards", roles(admin, nurse), page.ResourceSpec{
			Endpoint: "/wards",
			Columns:  cols("id", "ID", "name", "Name", "floor", "Floor", "capacity", "Capacity"),
			Fields: []page.Field{
				text("name", "Name"),
				optional("floor", "Floor", "number"),
				optional("capacity", "Capacity", "number"),
			},
		}),
		feature("beds", "Beds", roles(admin, nurse, receptionist), page.ResourceSpec{
			Endpoint: "/beds",
			Columns:  cols("id", "ID", "ward", "Ward", "number", "Number", "status", "Status"),
			Fields: []page.Field{
				{Name: "ward_id", Label: "Ward ID", Type: "number", Required: true},
				text("number", "Number"),
			},
		}),
		feature("vitals", "Vitals", roles(doctor, nurse), page.ResourceSpec{
			Endpoint: "/vitals",
			Columns:  cols("patient", "Patient", "temperature", "Temp", "pulse", "Pulse", "blood_pressure", "BP", "recorded_at", "Recorded"),
			Fields: []page.Field{
				{Name: "patient_id", Label: "Patient ID", Type: "number", Required: true},
				optional("temperature", "Temperature", "number"),
				optional("pulse", "Pulse", "number"),
				optional("blood_pressure", "Blood pressure", "text"),
			},
		}),
		feature("nursing-notes", "Nursing Notes", roles(doctor, nurse), page.ResourceSpec{
			Endpoint: "/nursing-notes",
			Columns:  cols("patient", "Patient", "note", "Note", "created_at", "Written"),
			Fields: []page.Field{
				{Name: "patient_id", Label: "Patient ID", Type: "number", Required: true},
				{Name: "note", Label: "Note", Type: "textarea", Required: true},
			},
		}),

		// Pharmacy
		feature("prescriptions", "Prescriptions", roles(admin, doctor, pharmacist), page.ResourceSpec{
			Endpoint: "/prescriptions",
			Columns:  cols("id", "ID", "patient", "Patient", "medicine", "Medicine", "dosage", "Dosage", "status", "Status"),
			Fields: []page.Field{
				{Name: "patient_id", Label: "Patient ID", Type: "number", Required: true},
				{Name: "medicine_id", Label: "Medicine ID", Type: "number", Required: true},
				text("dosage", "Dosage"),
				optional("instructions", "Instructions", "textarea"),
			},
		}),
		feature("pharmacy", "Pharmacy", roles(admin, pharmacist), page.ResourceSpec{
			Endpoint: "/medicines",
			Columns:  cols("id", "ID", "name", "Name", "form", "Form", "stock", "Stock", "unit_price", "Price"),
			Fields: []page.Field{
				text("name", "Name"),
				optional("form", "Form", "text"),
				optional("stock", "Stock", "number"),
				optional("unit_price", "Unit price", "number"),
			},
		}),
		feature("dispensing", "Dispensing", roles(pharmacist), page.ResourceSpec{
			Endpoint: "/dispensations",
			Columns:  cols("prescription", "Prescription", "medicine", "Medicine", "quantity", "Qty", "dispensed_at", "When"),
			Fields: []page.Field{
				{Name: "prescription_id", Label: "Prescription ID", Type: "number", Required: true},
				{Name: "quantity", Label: "Quantity", Type: "number", Required: true},
			},
		}),

		// Diagnostics
		feature("laboratory", "Laboratory", roles(admin, doctor, labTech), page.ResourceSpec{
			Endpoint: "/lab-orders",
			Columns:  cols("id", "ID", "patient", "Patient", "test_name", "Test", "priority", "Priority", "status", "Status"),
			Fields: []page.Field{
				{Name: "patient_id", Label: "Patient ID", Type: "number", Required: true},
				text("test_name", "Test"),
				optional("priority", "Priority", "text"),
			},
		}),
		feature("lab-results", "Lab Results", roles(admin, doctor, labTech), page.ResourceSpec{
			Endpoint: "/lab-results",
			Columns:  cols("order_id", "Order", "test_name", "Test", "result", "Result", "reference_range", "Range"),
			Fields: []page.Field{
				{Name: "order_id", Label: "Order ID", Type: "number", Required: true},
				text("result", "Result"),
				optional("reference_range", "Reference range", "text"),
			},
		}),
		feature("radiology", "Radiology", roles(admin, doctor, radiologist), page.ResourceSpec{
			Endpoint: "/radiology-orders",
			Columns:  cols("id", "ID", "patient", "Patient", "modality", "Modality", "body_part", "Body part", "status", "Status"),
			Fields: []page.Field{
				{Name: "patient_id", Label: "Patient ID", Type: "number", Required: true},
				text("modality", "Modality"),
				text("body_part", "Body part"),
			},
		}),
		feature("radiology-reports", "Radiology Reports", roles(admin, doctor, radiologist), page.ResourceSpec{
			Endpoint: "/radiology-reports",
			Columns:  cols("order_id", "Order", "findings", "Findings", "impression", "Impression"),
			Fields: []page.Field{
				{Name: "order_id", Label: "Order ID", Type: "number", Required: true},
				{Name: "findings", Label: "Findings", Type: "textarea", Required: true},
				optional("impression", "Impression", "textarea"),
			},
		}),

		// Finance
		{
			Path:         nav.DashboardPath + "/billing",
			Title:        "Billing",
			AllowedRoles: roles(admin, accountant, receptionist),
			Load: page.NewInvoices(page.ResourceSpec{
				Endpoint: "/invoices",
				Fields: []page.Field{
					{Name: "patient_id", Label: "Patient ID", Type: "number", Required: true},
					{Name: "total_amount", Label: "Total", Type: "number", Required: true},
					optional("due_date", "Due date", "date"),
				},
			}),
		},
		feature("payments", "Payments", roles(admin, accountant), page.ResourceSpec{
			Endpoint: "/payments",
			Columns:  cols("id", "ID", "invoice_id", "Invoice", "amount", "Amount", "method", "Method", "paid_at", "Paid"),
			Fields: []page.Field{
				{Name: "invoice_id", Label: "Invoice ID", Type: "number", Required: true},
				{Name: "amount", Label: "Amount", Type: "number", Required: true},
				text("method", "Method"),
			},
		}),
		feature("insurance-claims", "Insurance Claims", roles(admin, accountant), page.ResourceSpec{
			Endpoint: "/insurance-claims",
			Columns:  cols("id", "ID", "patient", "Patient", "provider", "Provider", "amount", "Amount", "status", "Status"),
			Fields: []page.Field{
				{Name: "invoice_id", Label: "Invoice ID", Type: "number", Required: true},
				text("provider", "Provider"),
				optional("policy_number", "Policy number", "text"),
			},
		}),
		feature("expenses", "Expenses", roles(admin, accountant), page.ResourceSpec{
			Endpoint: "/expenses",
			Columns:  cols("category", "Category", "description", "Description", "amount", "Amount", "spent_at", "Date"),
			Fields: []page.Field{
				text("category", "Category"),
				{Name: "amount", Label: "Amount", Type: "number", Required: true},
				optional("description", "Description", "textarea"),
			},
		}),
		feature("payroll", "Payroll", roles(admin, hrManager, accountant), page.ResourceSpec{
			Endpoint: "/payroll",
			Columns:  cols("employee", "Employee", "period", "Period", "gross_pay", "Gross", "net_pay", "Net", "status", "Status"),
			Fields: []page.Field{
				{Name: "employee_id", Label: "Employee ID", Type: "number", Required: true},
				text("period", "Period"),
				{Name: "gross_pay", Label: "Gross pay", Type: "number", Required: true},
			},
		}),
		feature("reports", "Reports", roles(admin, accountant), page.ResourceSpec{
			Endpoint: "/reports",
			Columns:  cols("name", "Report", "period", "Period", "generated_at", "Generated"),
			ReadOnly: true,
		}),

		// Staff
		feature("staff", "Staff", roles(admin, hrManager), page.ResourceSpec{
			Endpoint: "/employees",
			Columns:  cols("id", "ID", "first_name", "First name", "last_name", "Last name", "department", "Department", "position", "Position"),
			Fields: []page.Field{
				text("first_name", "First name"),
				text("last_name", "Last name"),
				optional("department", "Department", "text"),
				optional("position", "Position", "text"),
			},
		}),
		feature("departments", "Departments", roles(admin, hrManager), page.ResourceSpec{
			Endpoint: "/departments",
			Columns:  cols("id", "ID", "name", "Name", "head", "Head"),
			Fields:   []page.Field{text("name", "Name")},
		}),
		feature("attendance", "Attendance", roles(admin, hrManager), page.ResourceSpec{
			Endpoint: "/attendance",
			Columns:  cols("employee", "Employee", "date", "Date", "check_in", "In", "check_out", "Out"),
			Fields: []page.Field{
				{Name: "employee_id", Label: "Employee ID", Type: "number", Required: true},
				{Name: "date", Label: "Date", Type: "date", Required: true},
			},
		}),
		feature("leave-requests", "Leave Requests", roles(admin, hrManager), page.ResourceSpec{
			Endpoint: "/leave-requests",
			Columns:  cols("employee", "Employee", "from_date", "From", "to_date", "To", "status", "Status"),
			Fields: []page.Field{
				{Name: "employee_id", Label: "Employee ID", Type: "number", Required: true},
				{Name: "from_date", Label: "From", Type: "date", Required: true},
				{Name: "to_date", Label: "To", Type: "date", Required: true},
				optional("reason", "Reason", "textarea"),
			},
		}),

		// Inventory
		feature("inventory", "Inventory", roles(admin, inventory, pharmacist), page.ResourceSpec{
			Endpoint: "/inventory-items",
			Columns:  cols("id", "ID", "name", "Item", "category", "Category", "quantity", "Qty", "reorder_level", "Reorder at"),
			Fields: []page.Field{
				text("name", "Item"),
				optional("category", "Category", "text"),
				optional("quantity", "Quantity", "number"),
				optional("reorder_level", "Reorder level", "number"),
			},
		}),
		feature("suppliers", "Suppliers", roles(admin, inventory), page.ResourceSpec{
			Endpoint: "/suppliers",
			Columns:  cols("id", "ID", "name", "Name", "contact", "Contact", "phone", "Phone"),
			Fields: []page.Field{
				text("name", "Name"),
				optional("contact", "Contact", "text"),
				optional("phone", "Phone", "text"),
			},
		}),
		feature("purchase-orders", "Purchase Orders", roles(admin, inventory, accountant), page.ResourceSpec{
			Endpoint: "/purchase-orders",
			Columns:  cols("id", "ID", "supplier", "Supplier", "total", "Total", "status", "Status"),
			Fields: []page.Field{
				{Name: "supplier_id", Label: "Supplier ID", Type: "number", Required: true},
				optional("notes", "Notes", "textarea"),
			},
		}),

		// Administration
		feature("users", "Users", roles(admin), page.ResourceSpec{
			Endpoint: "/users",
			Columns:  cols("id", "ID", "email", "Email", "role", "Role"),
			Fields: []page.Field{
				{Name: "email", Label: "Email", Type: "email", Required: true},
				text("role", "Role"),
				{Name: "password", Label: "Initial password", Type: "password", Required: true},
			},
		}),
		feature("audit-logs", "Audit Logs", roles(admin), page.ResourceSpec{
			Endpoint: "/audit-logs",
			Columns:  cols("created_at", "When", "user", "User", "action", "Action", "entity", "Entity"),
			ReadOnly: true,
		}),

		// Patient self service
		feature("my-appointments", "My Appointments", roles(patient), page.ResourceSpec{
			Endpoint: "/patients/me/appointments",
			Columns:  cols("doctor", "Doctor", "scheduled_at", "When", "status", "Status"),
			Fields: []page.Field{
				{Name: "doctor_id", Label: "Doctor ID", Type: "number", Required: true},
				{Name: "scheduled_at", Label: "When", Type: "datetime-local", Required: true},
				optional("reason", "Reason", "textarea"),
			},
		}),
		feature("my-prescriptions", "My Prescriptions", roles(patient), page.ResourceSpec{
			Endpoint: "/patients/me/prescriptions",
			Columns:  cols("medicine", "Medicine", "dosage", "Dosage", "instructions", "Instructions"),
			ReadOnly: true,
		}),
		feature("my-lab-results", "My Lab Results", roles(patient), page.ResourceSpec{
			Endpoint: "/patients/me/lab-results",
			Columns:  cols("test_name", "Test", "result", "Result", "reference_range", "Range"),
			ReadOnly: true,
		}),
		{
			Path:         nav.DashboardPath + "/my-invoices",
			Title:        "My Invoices",
			AllowedRoles: roles(patient),
			Load:         page.NewInvoices(page.ResourceSpec{Endpoint: "/patients/me/invoices", ReadOnly: true}),
		},

		// Every signed-in role
		{
			Path:  nav.DashboardPath + "/profile",
			Title: "My Profile",
			Load:  page.NewProfile("/employees"),
		},
	}
}

// Default builds the table of DefaultEntries.
func Default(rec metrics.Recorder) (*Table, error) {
	return NewTable(DefaultEntries(), rec)
}
