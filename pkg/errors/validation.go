package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// Reserved JSON member names used by the entity wire format. Attributes
// must not shadow them.
var reservedNames = map[string]bool{
	"_entityName":     true,
	"_instanceName":   true,
	"__securityToken": true,
}

// identifierRegex matches a single attribute or enum constant name.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// entityNameRegex matches meta-class names, which may carry a
// namespace prefix separated by '$' or '_' (e.g. "sales$Order").
var entityNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// ValidateEntityName validates a meta-class name.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - Maximum length of 256 characters
//   - Letters, digits, '_' and '$' only
func ValidateEntityName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "entity name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidName, "entity name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidName, "entity name contains invalid characters: %q", name)
		}
	}

	if !entityNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid entity name: %q", name)
	}

	return nil
}

// ValidatePropertyName validates an attribute name. Reserved wire names
// are rejected so that an attribute can never be confused with a header
// field of the JSON representation.
func ValidatePropertyName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "property name cannot be empty")
	}

	if reservedNames[name] {
		return New(ErrCodeInvalidName, "property name %q is reserved", name)
	}

	if !identifierRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid property name: %q", name)
	}

	return nil
}

// ValidatePropertyPath validates a dotted attribute path such as
// "customer.address.city". Every segment must be a valid property name.
func ValidatePropertyPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidName, "property path cannot be empty")
	}

	for _, segment := range strings.Split(path, ".") {
		if err := ValidatePropertyName(segment); err != nil {
			return Wrap(ErrCodeInvalidName, err, "invalid property path %q", path)
		}
	}

	return nil
}

// ValidateEnumConstant validates an enum constant name.
func ValidateEnumConstant(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "enum constant cannot be empty")
	}

	if !identifierRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid enum constant: %q", name)
	}

	return nil
}
