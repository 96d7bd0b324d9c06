// Package task defines the immutable task context supplied to the
// decision core once per decision point. A context is a flat mapping
// from attribute name to a string, number, or boolean value; it is
// copied on construction and never mutated afterwards.
package task

import "fmt"

// Well-known attribute names. Rule tables may reference any attribute,
// but these are the ones the default tables key off.
const (
	KeyToolName        = "tool_name"
	KeyUserIntent      = "user_intent"
	KeyOperationType   = "operation_type"
	KeyComplexityScore = "complexity_score"
	KeyFileCount       = "file_count"
	KeyTestType        = "test_type"
	KeyPatternType     = "pattern_type"
	KeyHasUIComponents = "has_ui_components"
	KeyHasExternalDeps = "has_external_deps"
	KeyRequiresTesting = "requires_testing"
	KeyPatternBased    = "pattern_based"
)

// InvalidContextError reports a malformed task context attribute.
type InvalidContextError struct {
	Key    string
	Reason string
}

func (e *InvalidContextError) Error() string {
	if e.Key == "" {
		return "invalid task context: " + e.Reason
	}
	return fmt.Sprintf("invalid task context attribute %q: %s", e.Key, e.Reason)
}

// Context is an immutable attribute mapping. The zero value is an empty
// context.
type Context struct {
	attrs map[string]interface{}
}

// New validates and copies attrs into a Context. Attribute values must be
// strings, booleans, or numbers; anything else is an InvalidContextError.
func New(attrs map[string]interface{}) (Context, error) {
	if attrs == nil {
		return Context{}, nil
	}
	copied := make(map[string]interface{}, len(attrs))
	for key, val := range attrs {
		if key == "" {
			return Context{}, &InvalidContextError{Reason: "empty attribute name"}
		}
		switch v := val.(type) {
		case string, bool, int, int32, int64, float32, float64:
			copied[key] = v
		default:
			return Context{}, &InvalidContextError{Key: key, Reason: fmt.Sprintf("unsupported value type %T", val)}
		}
	}
	return Context{attrs: copied}, nil
}

// MustNew is New for hand-written literals in tests; it panics on error.
func MustNew(attrs map[string]interface{}) Context {
	tc, err := New(attrs)
	if err != nil {
		panic(err)
	}
	return tc
}

// Len returns the number of attributes.
func (c Context) Len() int { return len(c.attrs) }

// Has reports whether an attribute is present.
func (c Context) Has(key string) bool {
	_, ok := c.attrs[key]
	return ok
}

// String returns the attribute as a string.
func (c Context) String(key string) (string, bool) {
	s, ok := c.attrs[key].(string)
	return s, ok
}

// Bool returns the attribute as a boolean. Absent or non-boolean
// attributes read as false.
func (c Context) Bool(key string) bool {
	b, _ := c.attrs[key].(bool)
	return b
}

// Float returns the attribute as a float64, converting integer values.
func (c Context) Float(key string) (float64, bool) {
	switch v := c.attrs[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Int returns the attribute as an int, truncating float values.
func (c Context) Int(key string) (int, bool) {
	f, ok := c.Float(key)
	return int(f), ok
}

// ToolName returns the tool_name attribute, or "".
func (c Context) ToolName() string {
	s, _ := c.String(KeyToolName)
	return s
}

// Intent returns the user_intent attribute, or "".
func (c Context) Intent() string {
	s, _ := c.String(KeyUserIntent)
	return s
}

// OperationType returns the operation_type attribute, or "".
func (c Context) OperationType() string {
	s, _ := c.String(KeyOperationType)
	return s
}

// ComplexityScore returns the complexity_score attribute clamped to
// [0, 1], or 0 when absent.
func (c Context) ComplexityScore() float64 {
	f, ok := c.Float(KeyComplexityScore)
	if !ok {
		return 0
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// FileCount returns the file_count attribute, or 0.
func (c Context) FileCount() int {
	n, _ := c.Int(KeyFileCount)
	return n
}
