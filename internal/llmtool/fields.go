package llmtool

import (
	"fmt"
	"reflect"
	"strings"
)

// FieldsFromStruct builds prompt fields from a Go struct. The name comes from
// the json tag, the description from prompt_desc and the type from
// prompt_type (or the Go type). A prompt:"optional" tag clears Required and
// prompt:"-" skips the field.
func FieldsFromStruct(v any) ([]PromptField, error) {
	if v == nil {
		return nil, fmt.Errorf("llmtool: struct is nil")
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("llmtool: expected struct, got %s", t.Kind())
	}
	fields := make([]PromptField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		prompt := strings.TrimSpace(f.Tag.Get("prompt"))
		if prompt == "-" {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		typ := strings.TrimSpace(f.Tag.Get("prompt_type"))
		if typ == "" {
			typ = typeString(f.Type)
		}
		fields = append(fields, PromptField{
			Name:        name,
			Type:        typ,
			Required:    prompt != "optional",
			Description: strings.TrimSpace(f.Tag.Get("prompt_desc")),
		})
	}
	return fields, nil
}

// MustFieldsFromStruct panics on error; useful for prompt spec literals.
func MustFieldsFromStruct(v any) []PromptField {
	fields, err := FieldsFromStruct(v)
	if err != nil {
		panic(err)
	}
	return fields
}

func typeString(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "[]" + typeString(t.Elem())
	case reflect.Map:
		return "object"
	default:
		return t.Kind().String()
	}
}
