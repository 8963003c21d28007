// Package schema derives a JSON Schema from a Go type and uses it twice: as
// format instructions embedded in the model prompt, and as the contract the
// model's reply is checked against.  Changing the struct tags changes both.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/invopop/jsonschema"
)

// ErrMalformed is returned when the reply holds no parseable JSON object.
var ErrMalformed = errors.New("model reply is not valid JSON")

// FieldError reports a reply that is valid JSON but does not satisfy the
// schema.  Field is a path such as "medications[0].name"; it is "(root)"
// when the document itself has the wrong shape.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("schema validation failed at %s: %s", e.Field, e.Reason)
}

const rootPath = "(root)"

// Schema is immutable after New and safe for concurrent use.
type Schema struct {
	root         *jsonschema.Schema
	instructions string
	validate     *validator.Validate
}

// New reflects the JSON Schema of v, which must be a struct or a pointer to
// one.  Fields without omitempty are required and unknown properties are
// rejected.
func New(v any) (*Schema, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %T is not a struct", v)
	}

	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	root := r.Reflect(v)
	root.Version = ""
	root.ID = ""

	doc, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("schema: marshaling %s: %w", t.Name(), err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)
	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		return nil, fmt.Errorf("schema: registering notblank: %w", err)
	}

	return &Schema{
		root:         root,
		instructions: formatInstructions(doc),
		validate:     validate,
	}, nil
}

// FormatInstructions returns the prompt fragment describing the expected
// output.  It is computed once in New.
func (s *Schema) FormatInstructions() string {
	return s.instructions
}

// Required lists the top-level properties the reply must contain.
func (s *Schema) Required() []string {
	return append([]string(nil), s.root.Required...)
}

// Decode extracts the JSON object from a model reply, checks it against the
// schema, and decodes it into dst.  It returns an error wrapping ErrMalformed
// when no JSON can be recovered and a *FieldError for any schema violation.
// dst is only meaningful when Decode returns nil.
func (s *Schema) Decode(reply string, dst any) error {
	doc := ExtractJSON(reply)
	if doc == "" {
		return fmt.Errorf("%w: no JSON object found in reply", ErrMalformed)
	}

	if err := checkNode(s.root, json.RawMessage(doc), ""); err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(doc), dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &FieldError{
				Field:  orRoot(typeErr.Field),
				Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			}
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &FieldError{Field: namespacePath(fe.Namespace()), Reason: constraintReason(fe)}
		}
		return fmt.Errorf("schema: validating reply: %w", err)
	}
	return nil
}

// checkNode walks raw alongside its schema node.  Required properties must
// be present and non-null, unknown properties are rejected, and scalar types
// must match.  Null is accepted for optional properties.
func checkNode(node *jsonschema.Schema, raw json.RawMessage, path string) error {
	if node == nil {
		return nil
	}
	switch node.Type {
	case "object":
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			return &FieldError{Field: orRoot(path), Reason: "expected object"}
		}
		for _, name := range node.Required {
			v, ok := obj[name]
			if !ok || isNull(v) {
				return &FieldError{Field: join(path, name), Reason: "missing required field"}
			}
		}
		names := make([]string, 0, len(obj))
		for name := range obj {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			var prop *jsonschema.Schema
			if node.Properties != nil {
				prop, _ = node.Properties.Get(name)
			}
			if prop == nil {
				return &FieldError{Field: join(path, name), Reason: "unknown field"}
			}
			if isNull(obj[name]) {
				continue
			}
			if err := checkNode(prop, obj[name], join(path, name)); err != nil {
				return err
			}
		}
	case "array":
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return &FieldError{Field: orRoot(path), Reason: "expected array"}
		}
		for i, item := range items {
			if err := checkNode(node.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case "string", "boolean", "integer", "number":
		if got := jsonKind(raw); got != node.Type && !(node.Type == "number" && got == "integer") {
			return &FieldError{Field: orRoot(path), Reason: fmt.Sprintf("expected %s, got %s", node.Type, got)}
		}
	}
	return nil
}

// jsonKind names the JSON type of a raw value using schema vocabulary.
func jsonKind(raw json.RawMessage) string {
	v := strings.TrimSpace(string(raw))
	if v == "" {
		return "nothing"
	}
	switch v[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	}
	if strings.ContainsAny(v, ".eE") {
		return "number"
	}
	return "integer"
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func orRoot(path string) string {
	if path == "" {
		return rootPath
	}
	return path
}

// jsonFieldName makes validator report JSON names instead of Go names.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// namespacePath drops the leading struct name validator puts on every
// namespace: "VisitSummary.medications[0].name" -> "medications[0].name".
func namespacePath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return orRoot("")
}

func constraintReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}
