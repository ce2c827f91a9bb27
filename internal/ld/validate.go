package ld

import (
	"fmt"
	"regexp"
)

// ValidationError is a single structural or SHACL-lite failure, tagged
// with the code the HTTP surface maps onto a 4xx response.
type ValidationError struct {
	Code     string `json:"code"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message"`
}

// ValidationResult is the outcome of a validation pass: zero or more
// fatal errors and zero or more non-fatal warnings.
type ValidationResult struct {
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []ValidationError `json:"warnings,omitempty"`
}

// OK reports whether the result carries no errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// ValidateResource checks the structural invariants every resource must
// satisfy: a string id and a non-empty primary type. A missing @context
// is a warning only, since context may be inherited.
func ValidateResource(node map[string]any) ValidationResult {
	var res ValidationResult
	rawID, hasID := node["id"]
	if !hasID {
		res.Errors = append(res.Errors, ValidationError{Code: "MISSING_ID", Message: "resource is missing id"})
	} else if _, ok := rawID.(string); !ok {
		res.Errors = append(res.Errors, ValidationError{Code: "INVALID_IRI", Message: "id must be a string"})
	}

	if len(TypesOf(node)) == 0 {
		res.Errors = append(res.Errors, ValidationError{Code: "MISSING_TYPE", Message: "resource is missing a primary type"})
	}

	if _, ok := node["@context"]; !ok {
		res.Warnings = append(res.Warnings, ValidationError{Code: "MISSING_CONTEXT", Message: "resource has no @context; relying on inherited context"})
	}
	return res
}

// ValidateOperation checks an affordance's method and title, in addition
// to the base resource checks it inherits conceptually (an operation is
// not independently identified, so only method/title are required here).
func ValidateOperation(op map[string]any) ValidationResult {
	var res ValidationResult
	method, _ := op["method"].(string)
	if method == "" {
		res.Errors = append(res.Errors, ValidationError{Code: "MISSING_METHOD", Message: "operation is missing method"})
	} else if !AllowedMethods[method] {
		res.Errors = append(res.Errors, ValidationError{Code: "INVALID_METHOD", Message: fmt.Sprintf("method %q is not in the allowed set", method)})
	}
	title, _ := op["title"].(string)
	if title == "" {
		res.Errors = append(res.Errors, ValidationError{Code: "MISSING_TITLE", Message: "operation is missing title"})
	}
	return res
}

// ValidateInput checks a request payload against a set of SHACL-lite
// property shapes. A missing optional field short-circuits the rest of
// its checks; a missing required field is fatal and skips further checks
// for that property.
func ValidateInput(payload map[string]any, shapes []PropertyShape) ValidationResult {
	var res ValidationResult
	for _, shape := range shapes {
		value, present := payload[shape.Property]
		if !present {
			if shape.Required {
				res.Errors = append(res.Errors, ValidationError{
					Code: "MISSING_REQUIRED_PROPERTY", Path: shape.Property,
					Message: fmt.Sprintf("%s is required", shape.Property),
				})
			}
			continue
		}
		if err := checkDatatype(shape, value); err != nil {
			res.Errors = append(res.Errors, ValidationError{Code: "INVALID_PROPERTY_TYPE", Path: shape.Property, Message: err.Error()})
			continue
		}
		for _, err := range checkShaclConstraints(shape, value) {
			res.Errors = append(res.Errors, ValidationError{Code: "SHACL_VIOLATION", Path: shape.Property, Message: err})
		}
	}
	return res
}

func checkDatatype(shape PropertyShape, value any) error {
	if shape.Datatype == "" {
		return nil
	}
	switch shape.Datatype {
	case "string", "datetime", "uri":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s must be a string", shape.Property)
		}
	case "integer":
		switch n := value.(type) {
		case float64:
			if n != float64(int64(n)) {
				return fmt.Errorf("%s must be an integer", shape.Property)
			}
		case int, int64:
		default:
			return fmt.Errorf("%s must be an integer", shape.Property)
		}
	case "decimal":
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("%s must be numeric", shape.Property)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s must be a boolean", shape.Property)
		}
	}
	return nil
}

func checkShaclConstraints(shape PropertyShape, value any) []string {
	var errs []string
	if s, ok := value.(string); ok {
		if shape.MinLength != nil && len(s) < *shape.MinLength {
			errs = append(errs, fmt.Sprintf("%s must have length >= %d", shape.Property, *shape.MinLength))
		}
		if shape.MaxLength != nil && len(s) > *shape.MaxLength {
			errs = append(errs, fmt.Sprintf("%s must have length <= %d", shape.Property, *shape.MaxLength))
		}
		if shape.Pattern != "" {
			if ok, err := regexp.MatchString(shape.Pattern, s); err != nil || !ok {
				errs = append(errs, fmt.Sprintf("%s does not match required pattern", shape.Property))
			}
		}
	}
	if n, ok := numeric(value); ok {
		if shape.MinInclusive != nil && n < *shape.MinInclusive {
			errs = append(errs, fmt.Sprintf("%s must be >= %v", shape.Property, *shape.MinInclusive))
		}
		if shape.MaxInclusive != nil && n > *shape.MaxInclusive {
			errs = append(errs, fmt.Sprintf("%s must be <= %v", shape.Property, *shape.MaxInclusive))
		}
	}
	if len(shape.In) > 0 && !inSet(value, shape.In) {
		errs = append(errs, fmt.Sprintf("%s must be one of the allowed values", shape.Property))
	}
	return errs
}

func numeric(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func inSet(value any, set []any) bool {
	for _, candidate := range set {
		if candidate == value {
			return true
		}
	}
	return false
}
