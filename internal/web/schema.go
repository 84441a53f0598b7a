package web

import (
	"encoding/json"
	"strconv"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/JonMunkholm/solarerp/internal/core"
)

const schemaVersion = "https://json-schema.org/draft/2020-12/schema"

// PeriodQuery documents the from/to parameters of the finance endpoints.
type PeriodQuery struct {
	From string `json:"from,omitempty" jsonschema:"format=date,description=Inclusive start; defaults to 1 January of the current year"`
	To   string `json:"to,omitempty" jsonschema:"format=date,description=Inclusive end; defaults to 31 December"`
}

// requestSchemas are the request bodies published under /api/schema/{name}.
var requestSchemas = map[string]any{
	"checkout":  core.CheckoutRequest{},
	"cart-item": core.CartItemRequest{},
	"period":    PeriodQuery{},
}

// reflectSchema builds an inline schema for a request type.
func reflectSchema(v any) *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return r.Reflect(v)
}

// ResourceSchema describes a resource's writable record as JSON Schema, so the
// SPA can render and pre-validate its add/edit forms. Properties keep field
// declaration order.
func ResourceSchema(def core.ResourceDefinition) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	var required []string

	for _, spec := range def.FieldSpecs {
		if spec.Hidden {
			continue
		}
		props.Set(spec.Name, fieldSchema(spec))
		if spec.Required && spec.Writable() {
			required = append(required, spec.Name)
		}
	}

	return &jsonschema.Schema{
		Version:              schemaVersion,
		ID:                   jsonschema.ID("/api/resources/" + def.Info.Path + "/schema"),
		Title:                def.Info.Label,
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

func fieldSchema(spec core.FieldSpec) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Title:     spec.DisplayLabel(),
		ReadOnly:  spec.ReadOnly,
		WriteOnly: spec.WriteOnly,
	}

	switch spec.Type {
	case core.FieldEnum:
		s.Type = "string"
		for _, v := range spec.EnumValues {
			s.Enum = append(s.Enum, v)
		}
	case core.FieldDate:
		s.Type = "string"
		s.Format = "date"
	case core.FieldNumeric:
		s.Type = "number"
	case core.FieldInteger:
		s.Type = "integer"
	case core.FieldBool:
		s.Type = "boolean"
	default:
		s.Type = "string"
	}

	if spec.Min != nil {
		s.Minimum = jsonNumber(*spec.Min)
	}
	if spec.Max != nil {
		s.Maximum = jsonNumber(*spec.Max)
	}
	if spec.Default != nil {
		s.Default = core.OutputValue(spec, spec.Default)
	}
	return s
}

func jsonNumber(f float64) json.Number {
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64))
}

// resourceSummary is one entry of GET /api/resources.
type resourceSummary struct {
	Key         string                                    `json:"key"`
	Path        string                                    `json:"path"`
	Group       string                                    `json:"group"`
	Label       string                                    `json:"label"`
	UniqueKey   []string                                  `json:"uniqueKey,omitempty"`
	DateField   string                                    `json:"dateField,omitempty"`
	DefaultSort core.SortSpec                             `json:"defaultSort"`
	Fields      *orderedmap.OrderedMap[string, fieldInfo] `json:"fields"`
}

type fieldInfo struct {
	Label      string   `json:"label"`
	Type       string   `json:"type"`
	Required   bool     `json:"required,omitempty"`
	EnumValues []string `json:"enumValues,omitempty"`
	ReadOnly   bool     `json:"readOnly,omitempty"`
	WriteOnly  bool     `json:"writeOnly,omitempty"`
	Searchable bool     `json:"searchable,omitempty"`
}

func summarize(def core.ResourceDefinition) resourceSummary {
	fields := orderedmap.New[string, fieldInfo]()
	for _, spec := range def.FieldSpecs {
		if spec.Hidden {
			continue
		}
		fields.Set(spec.Name, fieldInfo{
			Label:      spec.DisplayLabel(),
			Type:       spec.Type.String(),
			Required:   spec.Required,
			EnumValues: spec.EnumValues,
			ReadOnly:   spec.ReadOnly,
			WriteOnly:  spec.WriteOnly,
			Searchable: spec.Searchable,
		})
	}
	return resourceSummary{
		Key:         def.Info.Key,
		Path:        def.Info.Path,
		Group:       def.Info.Group,
		Label:       def.Info.Label,
		UniqueKey:   def.Info.UniqueKey,
		DateField:   def.Info.DateField,
		DefaultSort: def.Info.DefaultSort,
		Fields:      fields,
	}
}
