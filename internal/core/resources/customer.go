package resources

import "github.com/JonMunkholm/solarerp/internal/core"

// FeedbackStatuses tracks how far a piece of feedback has been handled.
var FeedbackStatuses = []string{"new", "reviewed", "resolved"}

func init() {
	registerFeedback()
}

func registerFeedback() {
	core.Register(core.ResourceDefinition{
		Info: core.ResourceInfo{
			Key:   "feedback",
			Group: "Customer",
			Label: "Feedback",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "customer_name", Label: "Customer", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "email", Label: "Email", Type: core.FieldText, Searchable: true},
			{Name: "rating", Label: "Rating", Type: core.FieldInteger, Required: true, Min: bound(1), Max: bound(5)},
			{Name: "subject", Label: "Subject", Type: core.FieldText, Searchable: true},
			{Name: "message", Label: "Message", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "item_code", Label: "Item Code", Type: core.FieldText, Searchable: true},
			{Name: "status", Label: "Status", Type: core.FieldEnum, EnumValues: FeedbackStatuses, Default: "new"},
		},
		Derive: func(rec core.Record, _ core.HookEnv) error {
			upper(rec, "item_code")
			lower(rec, "email")
			return checkEmail(rec, "email")
		},
	})
}
