package ml

import "math"

type FieldKind int

const (
	KindInt FieldKind = iota
	KindReal
)

func (k FieldKind) String() string {
	if k == KindInt {
		return "integer"
	}
	return "number"
}

// Field describes one entry of the customer feature schema. Bounds are inclusive.
type Field struct {
	Name string
	Kind FieldKind
	Min  float64
	Max  float64
}

func (f Field) bounded() bool {
	return !math.IsInf(f.Max, 1)
}

var unbounded = math.Inf(1)

// Schema is the fixed feature layout the classifier was trained on. The order
// is the column order of the feature vector.
var Schema = []Field{
	{Name: "age", Kind: KindInt, Min: 18, Max: 100},
	{Name: "tenure_months", Kind: KindInt, Min: 0, Max: 120},
	{Name: "monthly_charges", Kind: KindReal, Min: 0, Max: 1000},
	{Name: "total_charges", Kind: KindReal, Min: 0, Max: unbounded},
	{Name: "support_tickets", Kind: KindInt, Min: 0, Max: 100},
	{Name: "login_frequency", Kind: KindInt, Min: 0, Max: 1000},
	{Name: "feature_usage", Kind: KindReal, Min: 0, Max: 1},
	{Name: "gender_encoded", Kind: KindInt, Min: 0, Max: 1},
	{Name: "location_encoded", Kind: KindInt, Min: 0, Max: 2},
	{Name: "contract_type_encoded", Kind: KindInt, Min: 0, Max: 2},
	{Name: "internet_service_encoded", Kind: KindInt, Min: 0, Max: 2},
	{Name: "payment_method_encoded", Kind: KindInt, Min: 0, Max: 2},
	{Name: "charges_per_month", Kind: KindReal, Min: 0, Max: unbounded},
	{Name: "support_per_month", Kind: KindReal, Min: 0, Max: unbounded},
	{Name: "login_per_month", Kind: KindReal, Min: 0, Max: unbounded},
	{Name: "is_new_customer", Kind: KindInt, Min: 0, Max: 1},
	{Name: "is_high_value", Kind: KindInt, Min: 0, Max: 1},
	{Name: "has_tech_support", Kind: KindInt, Min: 0, Max: 1},
	{Name: "has_device_protection", Kind: KindInt, Min: 0, Max: 1},
	{Name: "tenure_charges_interaction", Kind: KindReal, Min: 0, Max: unbounded},
	{Name: "support_value_ratio", Kind: KindReal, Min: 0, Max: unbounded},
}

func FeatureNames() []string {
	names := make([]string, len(Schema))
	for i, f := range Schema {
		names[i] = f.Name
	}
	return names
}

func featureIndex() map[string]int {
	idx := make(map[string]int, len(Schema))
	for i, f := range Schema {
		idx[f.Name] = i
	}
	return idx
}
