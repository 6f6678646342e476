package ai

import (
	"encoding/json"

	"google.golang.org/genai"
)

// SchemaType names a JSON value type in a response schema.
type SchemaType string

const (
	TypeObject SchemaType = "object"
	TypeArray  SchemaType = "array"
	TypeString SchemaType = "string"
	TypeNumber SchemaType = "number"
)

// Schema is a backend-neutral response schema. Property order is kept in
// Order so every backend sees fields in the same sequence.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Order       []string
	Items       *Schema
	Required    []string
}

// MarshalJSON renders s as strict JSON Schema (OpenAI structured outputs).
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.jsonSchema())
}

func (s *Schema) jsonSchema() map[string]any {
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Type == TypeObject {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.jsonSchema()
		}
		out["properties"] = props
		out["required"] = s.Required
		out["additionalProperties"] = false
	}
	if s.Items != nil {
		out["items"] = s.Items.jsonSchema()
	}
	return out
}

// genaiSchema converts s into the Gemini SDK schema type.
func (s *Schema) genaiSchema() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description:      s.Description,
		Required:         s.Required,
		PropertyOrdering: s.Order,
	}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	case TypeNumber:
		out.Type = genai.TypeNumber
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = p.genaiSchema()
		}
	}
	if s.Items != nil {
		out.Items = s.Items.genaiSchema()
	}
	return out
}

// analysisSchemaName identifies the schema to backends that require a name.
const analysisSchemaName = "mineral_analysis"

// analysisSchema is the fixed output contract of AnalyzeSample.
var analysisSchema = &Schema{
	Type:  TypeObject,
	Order: []string{"rockName", "description", "identifiedMinerals", "economicPotential"},
	Properties: map[string]*Schema{
		"rockName": {
			Type:        TypeString,
			Description: "The primary name of the rock type (e.g., Granite, Basalt, Sandstone).",
		},
		"description": {
			Type:        TypeString,
			Description: "A brief geological description of the rock sample, including texture and general characteristics.",
		},
		"identifiedMinerals": {
			Type:        TypeArray,
			Description: "A list of minerals identified in the rock sample.",
			Items: &Schema{
				Type:  TypeObject,
				Order: []string{"name", "percentage", "description"},
				Properties: map[string]*Schema{
					"name": {
						Type:        TypeString,
						Description: "The name of the mineral (e.g., Quartz, Feldspar).",
					},
					"percentage": {
						Type:        TypeNumber,
						Description: "The estimated percentage of this mineral in the sample.",
					},
					"description": {
						Type:        TypeString,
						Description: "A short description of the mineral's appearance or properties.",
					},
				},
				Required: []string{"name", "percentage", "description"},
			},
		},
		"economicPotential": {
			Type:        TypeString,
			Description: "A brief analysis of the potential economic significance or use of this rock and its minerals.",
		},
	},
	Required: []string{"rockName", "description", "identifiedMinerals", "economicPotential"},
}
