package codegen

import (
	"fmt"
	"strings"
)

// StructValidator checks annotated structs before code is generated for them
type StructValidator struct {
	knownTags       []string
	unsupportedType []string
}

// NewStructValidator creates a new struct validator
func NewStructValidator() *StructValidator {
	return &StructValidator{
		knownTags:       []string{"", "-"},
		unsupportedType: []string{"func", "chan ", "interface{...}", "any", "error", "unsafe.Pointer"},
	}
}

// Validate returns every problem found on info. An empty result means code
// can be generated.
func (v *StructValidator) Validate(info StructInfo) []string {
	errors := append([]string(nil), info.ValidationErrors...)
	if !info.IsValid && len(errors) > 0 {
		return errors
	}

	if info.HasMethod {
		errors = append(errors, fmt.Sprintf("%s already declares StructioFields", info.StructName))
	}

	for _, field := range info.Fields {
		errors = append(errors, v.ValidateField(info.StructName, field)...)
	}

	if len(info.Listed()) == 0 {
		errors = append(errors, fmt.Sprintf("%s has no fields to list", info.StructName))
	}

	return errors
}

// ValidateField validates the tag and type of a single field
func (v *StructValidator) ValidateField(structName string, field FieldInfo) []string {
	var errors []string

	if !v.isKnownTag(field.Tag) {
		errors = append(errors, fmt.Sprintf("unknown tag '%s' on field '%s.%s'", field.Tag, structName, field.Name))
	}

	if !field.Skipped && v.isUnsupportedType(field.Type) {
		errors = append(errors, fmt.Sprintf("field '%s.%s' of type %s cannot be encoded; tag it `structio:\"-\"`", structName, field.Name, field.Type))
	}

	if field.Embedded && field.Name == "" {
		errors = append(errors, fmt.Sprintf("cannot name embedded field of type %s in %s", field.Type, structName))
	}

	return errors
}

func (v *StructValidator) isKnownTag(tag string) bool {
	for _, known := range v.knownTags {
		if tag == known {
			return true
		}
	}
	return false
}

func (v *StructValidator) isUnsupportedType(typ string) bool {
	for _, bad := range v.unsupportedType {
		if typ == bad || (strings.HasSuffix(bad, " ") && strings.HasPrefix(typ, bad)) {
			return true
		}
	}
	return false
}

// ValidationError represents a validation error
type ValidationError struct {
	Struct  string
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("struct '%s': %s", ve.Struct, ve.Message)
}

// Errors converts the validation messages of info into errors
func Errors(info StructInfo) []error {
	out := make([]error, len(info.ValidationErrors))
	for i, msg := range info.ValidationErrors {
		out[i] = ValidationError{Struct: info.StructName, Message: msg}
	}
	return out
}
