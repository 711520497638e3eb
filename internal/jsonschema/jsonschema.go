// Package jsonschema derives JSON Schema documents from Go types via
// reflection. The schemas are used to advertise tool parameters to providers;
// validation of model output against a schema is a separate concern handled
// by a full validator.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Schema is a declarative JSON Schema value. Only the subset needed to
// describe tool parameters is modeled.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	// Items defines the element schema for array types.
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties describes map value schemas, or forbids unknown keys.
	AdditionalProperties any   `json:"additionalProperties,omitempty"`
	Enum                 []any `json:"enum,omitempty"`
	// Ref and Defs implement references for recursive types.
	Ref  string             `json:"$ref,omitempty"`
	Defs map[string]*Schema `json:"$defs,omitempty"`
}

// For generates the schema for type T. Struct fields use their json tag name
// (fields tagged "-" are skipped), a field is required unless it is a pointer
// or carries omitempty, and a `jsonschema:"description=..."` tag sets the
// field description. Recursive struct types become $defs references.
func For[T any]() *Schema {
	gen := &generator{
		visited:    make(map[reflect.Type]string),
		defs:       make(map[string]*Schema),
		referenced: make(map[string]bool),
	}

	root := reflect.TypeFor[T]()
	schema := gen.typeSchema(root, true)

	// A root struct referenced from one of its own fields needs a $defs
	// entry for the reference to resolve. Store a copy so the document stays
	// acyclic.
	if name, seen := gen.visited[rootStruct(root)]; seen && gen.referenced[name] {
		if _, stored := gen.defs[name]; !stored {
			rootCopy := *schema
			rootCopy.Defs = nil
			gen.defs[name] = &rootCopy
		}
	}

	if len(gen.defs) > 0 {
		schema.Defs = gen.defs
	}
	return schema
}

// rootStruct unwraps pointers to the underlying struct type, or returns the
// type unchanged.
func rootStruct(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

type generator struct {
	visited    map[reflect.Type]string
	defs       map[string]*Schema
	referenced map[string]bool
}

func (g *generator) typeSchema(t reflect.Type, isRoot bool) *Schema {
	switch t.Kind() {
	case reflect.Pointer:
		return g.typeSchema(t.Elem(), isRoot)

	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: g.typeSchema(t.Elem(), false)}

	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: g.typeSchema(t.Elem(), false)}

	case reflect.Struct:
		return g.structSchema(t, isRoot)

	default:
		// Interfaces and anything else reflect cannot pin down.
		return &Schema{Type: "object"}
	}
}

func (g *generator) structSchema(t reflect.Type, isRoot bool) *Schema {
	if defName, seen := g.visited[t]; seen {
		g.referenced[defName] = true
		return &Schema{Ref: "#/$defs/" + defName}
	}

	defName := defNameFor(t)
	g.visited[t] = defName

	schema := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty, skip := jsonFieldName(field)
		if skip {
			continue
		}

		fieldSchema := g.typeSchema(field.Type, false)
		if desc := descriptionTag(field.Tag); desc != "" && fieldSchema.Ref == "" {
			fieldSchema.Description = desc
		}
		schema.Properties[name] = fieldSchema

		if field.Type.Kind() != reflect.Pointer && !omitEmpty {
			schema.Required = append(schema.Required, name)
		}
	}

	// Non-root structs (and anything referenced again later) live in $defs so
	// recursive shapes resolve.
	if !isRoot {
		g.defs[defName] = schema
		return &Schema{Ref: "#/$defs/" + defName}
	}
	return schema
}

func defNameFor(t reflect.Type) string {
	if t.Name() != "" {
		return strings.ToLower(t.Name())
	}
	return "anonymous"
}

// jsonFieldName resolves the effective property name from the json tag.
func jsonFieldName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	name = field.Name
	if tag != "" {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
		}
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				omitEmpty = true
			}
		}
	}
	return name, omitEmpty, false
}

// descriptionTag extracts description=... from a jsonschema struct tag.
func descriptionTag(tag reflect.StructTag) string {
	for _, item := range strings.Split(tag.Get("jsonschema"), ",") {
		if value, found := strings.CutPrefix(item, "description="); found {
			return value
		}
	}
	return ""
}

// Document returns the schema as unmarshaled JSON values (maps and slices),
// the shape a JSON Schema validator expects as its resource document.
func (s *Schema) Document() (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to rebuild schema document: %w", err)
	}
	return doc, nil
}

// String returns the compact JSON representation of the schema.
func (s *Schema) String() string {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(raw)
}
