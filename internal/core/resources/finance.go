package resources

import (
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/solarerp/internal/core"
)

var (
	// PaymentMethods mirrors the methods accepted at checkout.
	PaymentMethods = core.PaymentMethods

	PaymentStatuses   = []string{"pending", "completed", "failed", "refunded"}
	SalaryStatuses    = []string{"pending", "paid"}
	TaxStatuses       = []string{"pending", "filed", "paid"}
	ExpenseCategories = []string{"utilities", "rent", "transport", "maintenance", "marketing", "office", "other"}
)

func init() {
	registerPayments()
	registerSalaries()
	registerTaxes()
	registerExpenses()
}

func registerPayments() {
	core.Register(core.ResourceDefinition{
		Info: core.ResourceInfo{
			Key:       "payments",
			Group:     "Finance",
			Label:     "Payments",
			UniqueKey: []string{"payment_ref"},
			DateField: "paid_on",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "payment_ref", Label: "Payment Ref", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "customer_name", Label: "Customer", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "customer_email", Label: "Customer Email", Type: core.FieldText, Searchable: true},
			{Name: "amount", Label: "Amount", Type: core.FieldNumeric, Required: true, Min: positive},
			{Name: "method", Label: "Method", Type: core.FieldEnum, EnumValues: PaymentMethods, Default: "cash"},
			{Name: "status", Label: "Status", Type: core.FieldEnum, EnumValues: PaymentStatuses, Default: "pending"},
			{Name: "paid_on", Label: "Paid On", Type: core.FieldDate},
			{Name: "order_ref", Label: "Order Ref", Type: core.FieldText, Searchable: true},
			{Name: "description", Label: "Description", Type: core.FieldText},
		},
		Derive: func(rec core.Record, _ core.HookEnv) error {
			upper(rec, "payment_ref")
			lower(rec, "customer_email")
			return checkEmail(rec, "customer_email")
		},
	})
}

func registerSalaries() {
	core.Register(core.ResourceDefinition{
		Info: core.ResourceInfo{
			Key:         "salaries",
			Group:       "Finance",
			Label:       "Salaries",
			UniqueKey:   []string{"employee_no", "pay_month"},
			DateField:   "paid_on",
			DefaultSort: core.SortSpec{Column: "pay_month", Dir: "desc"},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "employee_no", Label: "Employee No", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "pay_month", Label: "Pay Month", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "basic_salary", Label: "Basic Salary", Type: core.FieldNumeric, Min: nonNegative, Default: decimalZero},
			{Name: "allowances", Label: "Allowances", Type: core.FieldNumeric, Min: nonNegative, Default: decimalZero},
			{Name: "deductions", Label: "Deductions", Type: core.FieldNumeric, Min: nonNegative, Default: decimalZero},
			{Name: "net_salary", Label: "Net Salary", Type: core.FieldNumeric, ReadOnly: true},
			{Name: "status", Label: "Status", Type: core.FieldEnum, EnumValues: SalaryStatuses, Default: "pending"},
			{Name: "paid_on", Label: "Paid On", Type: core.FieldDate},
		},
		Derive: deriveSalary,
	})
}

// NetSalary is basic + allowances - deductions.
func NetSalary(basic, allowances, deductions decimal.Decimal) decimal.Decimal {
	return basic.Add(allowances).Sub(deductions)
}

// deriveSalary validates the pay month and computes net_salary, which may
// not go negative.
func deriveSalary(rec core.Record, _ core.HookEnv) error {
	var errs core.ValidationErrors
	upper(rec, "employee_no")
	requireMonth(rec, "pay_month", &errs)

	net := NetSalary(
		core.DecimalValue(rec, "basic_salary"),
		core.DecimalValue(rec, "allowances"),
		core.DecimalValue(rec, "deductions"),
	)
	if net.IsNegative() {
		errs.Add("deductions", "must not exceed basic salary plus allowances")
	}
	rec["net_salary"] = net.Round(2)
	return errs.Err()
}

func registerTaxes() {
	core.Register(core.ResourceDefinition{
		Info: core.ResourceInfo{
			Key:         "taxes",
			Group:       "Finance",
			Label:       "Taxes",
			UniqueKey:   []string{"tax_ref"},
			DateField:   "due_on",
			DefaultSort: core.SortSpec{Column: "period", Dir: "desc"},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "tax_ref", Label: "Tax Ref", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "period", Label: "Period", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "taxable_amount", Label: "Taxable Amount", Type: core.FieldNumeric, Min: nonNegative, Default: decimalZero},
			{Name: "rate", Label: "Rate", Type: core.FieldNumeric, Min: nonNegative, Max: bound(1), Scale: 4},
			{Name: "tax_amount", Label: "Tax Amount", Type: core.FieldNumeric, ReadOnly: true},
			{Name: "status", Label: "Status", Type: core.FieldEnum, EnumValues: TaxStatuses, Default: "pending"},
			{Name: "due_on", Label: "Due On", Type: core.FieldDate},
			{Name: "paid_on", Label: "Paid On", Type: core.FieldDate},
		},
		Derive: deriveTax,
	})
}

// deriveTax fills the rate from the configured default and computes
// tax_amount = taxable_amount * rate to 2 places.
func deriveTax(rec core.Record, env core.HookEnv) error {
	var errs core.ValidationErrors
	upper(rec, "tax_ref")
	requireMonth(rec, "period", &errs)

	if rec["rate"] == nil {
		rec["rate"] = env.TaxRate.Round(4)
	}
	rate := core.DecimalValue(rec, "rate")
	rec["tax_amount"] = core.DecimalValue(rec, "taxable_amount").Mul(rate).Round(2)
	return errs.Err()
}

func registerExpenses() {
	core.Register(core.ResourceDefinition{
		Info: core.ResourceInfo{
			Key:         "expenses",
			Group:       "Finance",
			Label:       "Expenses",
			DateField:   "spent_on",
			DefaultSort: core.SortSpec{Column: "spent_on", Dir: "desc"},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "title", Label: "Title", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "category", Label: "Category", Type: core.FieldEnum, EnumValues: ExpenseCategories, Default: "other"},
			{Name: "amount", Label: "Amount", Type: core.FieldNumeric, Required: true, Min: positive},
			{Name: "spent_on", Label: "Spent On", Type: core.FieldDate, Required: true},
			{Name: "vendor", Label: "Vendor", Type: core.FieldText, Searchable: true},
			{Name: "description", Label: "Description", Type: core.FieldText, Searchable: true},
		},
	})
}
