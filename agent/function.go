package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/etnz/allocation/tools"
	"google.golang.org/genai"
)

// ToolFunction exposes a tool to an expert.
type ToolFunction struct {
	Tool tools.Tool
}

func (f *ToolFunction) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        f.Tool.Name,
		Description: f.Tool.Description,
		Parameters:  genaiSchema(f.Tool.InputSchema),
		Response: &genai.Schema{
			Type:        genai.TypeString,
			Description: "The result of the tool, markdown or JSON.",
		},
	}
}

func (f *ToolFunction) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	arguments, err := json.Marshal(toolArgs(f.Tool.InputSchema, args))
	if err != nil {
		return errorResponse(id, f.Tool.Name, fmt.Errorf("invalid arguments: %w", err))
	}
	res, err := f.Tool.Call(ctx, arguments)
	if err != nil {
		classified := tools.Classify(err)
		return &genai.FunctionResponse{
			ID:   id,
			Name: f.Tool.Name,
			Response: map[string]any{
				"error":     err.Error(),
				"category":  string(classified.Category),
				"retryable": classified.Retryable(),
			},
		}
	}
	output := res.Text
	if len(res.Image) > 0 {
		output = fmt.Sprintf("Rendered a %s image of %d bytes. It cannot be shown in this conversation, suggest the user runs `pfm chart`.", res.MIMEType, len(res.Image))
	}
	return &genai.FunctionResponse{
		ID:       id,
		Name:     f.Tool.Name,
		Response: map[string]any{"output": output},
	}
}

var genaiTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"string":  genai.TypeString,
	"integer": genai.TypeInteger,
	"number":  genai.TypeNumber,
	"array":   genai.TypeArray,
	"boolean": genai.TypeBoolean,
}

// genaiSchema converts a tool input schema to a Gemini schema.
//
// Gemini schemas cannot describe maps: a map of allocations is declared as a
// list of {id, percent} objects, and toolArgs turns it back into a map.
func genaiSchema(s *tools.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	if s.AdditionalProperties != nil {
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: s.Description,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id":      {Type: genai.TypeString, Description: "The stock symbol or bond identifier."},
					"percent": genaiSchema(s.AdditionalProperties),
				},
				PropertyOrdering: []string{"id", "percent"},
				Required:         []string{"id", "percent"},
			},
		}
	}

	g := &genai.Schema{
		Type:        genaiTypes[s.Type],
		Description: s.Description,
		Default:     s.Default,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
		Required:    s.Required,
		Items:       genaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		g.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			g.Properties[name] = genaiSchema(p)
		}
		g.PropertyOrdering = slices.Sorted(maps.Keys(s.Properties))
	}
	return g
}

// toolArgs converts the arguments of a call declared with genaiSchema back
// to the arguments of the tool.
func toolArgs(s *tools.Schema, args map[string]any) map[string]any {
	res := make(map[string]any, len(args))
	for name, v := range args {
		p, ok := s.Properties[name]
		if !ok || p.AdditionalProperties == nil {
			res[name] = v
			continue
		}
		items, ok := v.([]any)
		if !ok {
			// let the tool report the type error.
			res[name] = v
			continue
		}
		m := make(map[string]any, len(items))
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := entry["id"].(string); ok {
				m[id] = entry["percent"]
			}
		}
		res[name] = m
	}
	return res
}
