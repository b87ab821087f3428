package tools

// Schema is the subset of JSON Schema used to describe tool inputs.
type Schema struct {
	// Type is the JSON Schema type: "object", "string", "integer",
	// "number" or "array".
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Default     any                `json:"default,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	// Items describes the element type for array schemas.
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties describes the value type for map-typed object schemas.
	AdditionalProperties *Schema `json:"additionalProperties,omitempty"`
}

func object(required []string, properties map[string]*Schema) *Schema {
	return &Schema{Type: "object", Properties: properties, Required: required}
}

func str(description string) *Schema { return &Schema{Type: "string", Description: description} }

func stringList(description string) *Schema {
	return &Schema{Type: "array", Description: description, Items: &Schema{Type: "string"}}
}

func allocations(description string) *Schema {
	zero := 0.0
	return &Schema{
		Type:                 "object",
		Description:          description,
		AdditionalProperties: &Schema{Type: "number", Minimum: &zero},
	}
}

func integer(description string, def, lo, hi int) *Schema {
	lower, upper := float64(lo), float64(hi)
	return &Schema{Type: "integer", Description: description, Default: def, Minimum: &lower, Maximum: &upper}
}

var userIDSchema = str("Unique identifier for the user")
