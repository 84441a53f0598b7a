package resources

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/JonMunkholm/solarerp/internal/core"
)

// UserRoles are the back-office and customer roles a user may hold.
var UserRoles = []string{
	"admin",
	"inventory_manager",
	"supply_manager",
	"finance_manager",
	"employee_manager",
	"customer",
}

// EmployeeStatuses is the employment state of a staff member.
var EmployeeStatuses = []string{"active", "on_leave", "terminated"}

// MinPasswordLength is the shortest password accepted for a user.
const MinPasswordLength = 8

// PasswordCost is the bcrypt cost used for user passwords.
var PasswordCost = bcrypt.DefaultCost

func init() {
	registerUsers()
	registerEmployees()
}

func registerUsers() {
	core.Register(core.ResourceDefinition{
		Info: core.ResourceInfo{
			Key:         "users",
			Group:       "People",
			Label:       "Users",
			UniqueKey:   []string{"username"},
			DefaultSort: core.SortSpec{Column: "username", Dir: "asc"},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "username", Label: "Username", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "full_name", Label: "Full Name", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "email", Label: "Email", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "role", Label: "Role", Type: core.FieldEnum, EnumValues: UserRoles, Default: "customer"},
			{Name: "phone", Label: "Phone", Type: core.FieldText},
			{Name: "address", Label: "Address", Type: core.FieldText},
			{Name: "password", Label: "Password", Type: core.FieldText, Required: true, WriteOnly: true},
			{Name: "password_hash", Type: core.FieldText, Hidden: true},
			{Name: "active", Label: "Active", Type: core.FieldBool, Default: true},
		},
		Derive:  deriveUser,
		Prepare: hashPassword,
	})
}

// deriveUser normalizes login and contact fields.
func deriveUser(rec core.Record, _ core.HookEnv) error {
	lower(rec, "username")
	lower(rec, "email")
	if phone, ok := rec["phone"].(string); ok {
		rec["phone"] = NormalizePhone(phone)
	}

	return checkEmail(rec, "email")
}

// hashPassword replaces a supplied password with its bcrypt hash.
func hashPassword(rec core.Record, create bool) error {
	raw, ok := rec["password"].(string)
	if !ok || raw == "" {
		if create {
			var errs core.ValidationErrors
			errs.Add("password", "required field is empty")
			return errs.Err()
		}
		return nil
	}
	if len(strings.TrimSpace(raw)) < MinPasswordLength {
		var errs core.ValidationErrors
		errs.Add("password", "must be at least %d characters", MinPasswordLength)
		return errs.Err()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), PasswordCost)
	if err != nil {
		return err
	}
	rec["password_hash"] = string(hash)
	delete(rec, "password")
	return nil
}

// CheckPassword reports whether password matches a stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func registerEmployees() {
	core.Register(core.ResourceDefinition{
		Info: core.ResourceInfo{
			Key:         "employees",
			Group:       "People",
			Label:       "Employees",
			UniqueKey:   []string{"employee_no"},
			DateField:   "hired_on",
			DefaultSort: core.SortSpec{Column: "employee_no", Dir: "asc"},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "employee_no", Label: "Employee No", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "full_name", Label: "Full Name", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "email", Label: "Email", Type: core.FieldText, Searchable: true},
			{Name: "phone", Label: "Phone", Type: core.FieldText},
			{Name: "position", Label: "Position", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "department", Label: "Department", Type: core.FieldText, Searchable: true},
			{Name: "basic_salary", Label: "Basic Salary", Type: core.FieldNumeric, Min: nonNegative, Default: decimalZero},
			{Name: "hired_on", Label: "Hired On", Type: core.FieldDate},
			{Name: "status", Label: "Status", Type: core.FieldEnum, EnumValues: EmployeeStatuses, Default: "active"},
		},
		Derive: func(rec core.Record, _ core.HookEnv) error {
			upper(rec, "employee_no")
			lower(rec, "email")
			if phone, ok := rec["phone"].(string); ok {
				rec["phone"] = NormalizePhone(phone)
			}
			return checkEmail(rec, "email")
		},
	})
}
