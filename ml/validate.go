package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedRequest is returned when a payload is not a JSON object at all.
var ErrMalformedRequest = errors.New("malformed request")

type Reason string

const (
	ReasonMissing    Reason = "missing"
	ReasonType       Reason = "type_error"
	ReasonOutOfRange Reason = "out_of_range"
)

// Violation is one field-level problem found by Validate.
type Violation struct {
	Field   string `json:"field"`
	Reason  Reason `json:"type"`
	Message string `json:"message"`
	Input   any    `json:"input,omitempty"`
}

// ValidationError lists every violation found in a payload, in Schema order.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s (%s)", v.Field, v.Reason))
	}
	return fmt.Sprintf("invalid input: %d violation(s): %s", len(e.Violations), strings.Join(parts, ", "))
}

// Fields returns the names of the offending fields.
func (e *ValidationError) Fields() []string {
	names := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		names[i] = v.Field
	}
	return names
}

// DecodeRequest reads a single JSON object from r. Numbers are kept as
// json.Number so integer fields can be checked exactly.
func DecodeRequest(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedRequest)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", ErrMalformedRequest)
	}
	return obj, nil
}

// Validate checks presence, type and bounds of every Schema field. Keys that
// are not part of the schema are ignored.
func Validate(raw map[string]any) (CustomerFeatures, error) {
	if raw == nil {
		return CustomerFeatures{}, fmt.Errorf("%w: no feature map", ErrMalformedRequest)
	}

	values := make([]float64, len(Schema))
	var violations []Violation
	for i, field := range Schema {
		input, ok := raw[field.Name]
		if !ok {
			violations = append(violations, Violation{
				Field:   field.Name,
				Reason:  ReasonMissing,
				Message: "field required",
			})
			continue
		}

		n, ok := toNumber(input)
		if !ok || (field.Kind == KindInt && n != math.Trunc(n)) {
			violations = append(violations, Violation{
				Field:   field.Name,
				Reason:  ReasonType,
				Message: "value is not a valid " + field.Kind.String(),
				Input:   input,
			})
			continue
		}

		if msg, ok := checkBounds(field, n); !ok {
			violations = append(violations, Violation{
				Field:   field.Name,
				Reason:  ReasonOutOfRange,
				Message: msg,
				Input:   input,
			})
			continue
		}
		values[i] = n
	}

	if len(violations) > 0 {
		return CustomerFeatures{}, &ValidationError{Violations: violations}
	}
	return featuresFromValues(values), nil
}

func checkBounds(field Field, n float64) (string, bool) {
	if n < field.Min {
		return "ensure this value is greater than or equal to " + formatBound(field.Min), false
	}
	if field.bounded() && n > field.Max {
		return "ensure this value is less than or equal to " + formatBound(field.Max), false
	}
	return "", true
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func toNumber(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int32:
		n = float64(t)
	case int64:
		n = float64(t)
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
