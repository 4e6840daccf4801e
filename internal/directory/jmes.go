package directory

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"
)

// EvalAny returns the raw value selected by the JMESPath expression.
// It will return nil and no error if the expression does not match anything.
func EvalAny(expression string, obj map[string]any) (any, error) {
	v, err := jmespath.Search(expression, obj)
	if err != nil {
		return nil, fmt.Errorf("jmespath: %w", err)
	}
	return v, nil
}

// EvalString coerces the selection to string; non-string values are JSON-encoded.
// A missing value yields "".
func EvalString(expression string, obj map[string]any) (string, error) {
	v, err := EvalAny(expression, obj)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	default:
		b, _ := json.Marshal(t)
		return string(b), nil
	}
}

// Matches evaluates a boolean filter expression. An empty expression matches everything;
// a non-boolean or failing expression matches nothing.
func Matches(expression string, obj map[string]any) bool {
	if expression == "" {
		return true
	}
	v, err := EvalAny(expression, obj)
	if err != nil {
		return false
	}
	matched, ok := v.(bool)
	return ok && matched
}
