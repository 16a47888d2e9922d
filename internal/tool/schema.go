package tool

import (
	"reflect"
	"strings"
)

// SchemaFor derives a JSON schema object from an argument struct. Property
// names come from json tags, descriptions from description tags; validate
// tags mark required fields and oneof lists become enums.
func SchemaFor(args any) map[string]any {
	t := reflect.TypeOf(args)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	properties := make(map[string]any)
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if t == nil || t.Kind() != reflect.Struct {
		return schema
	}

	required := make([]string, 0)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		prop := map[string]any{"type": jsonType(field.Type)}
		if d := field.Tag.Get("description"); d != "" {
			prop["description"] = d
		}

		for _, rule := range strings.Split(field.Tag.Get("validate"), ",") {
			switch {
			case rule == "required":
				required = append(required, name)
			case strings.HasPrefix(rule, "oneof="):
				prop["enum"] = strings.Fields(strings.TrimPrefix(rule, "oneof="))
			}
		}
		properties[name] = prop
	}

	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonType(t.Elem())
	default:
		return "string"
	}
}
