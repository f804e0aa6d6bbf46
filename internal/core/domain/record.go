package domain

// FieldOrigin tells whether a field value came from a real source or from a
// schema default.
type FieldOrigin string

const (
	FieldOriginSource    FieldOrigin = "source"
	FieldOriginDefaulted FieldOrigin = "defaulted"
)

// FieldValue is one field of a record, tagged with where it came from.
// Keeping the tag internal preserves the completeness invariant without
// leaking an ambiguous null into persistence.
type FieldValue struct {
	Value  string      `json:"value"`
	Origin FieldOrigin `json:"origin"`
	Source string      `json:"source,omitempty"` // source name, set when Origin is source
}

// Record is the normalized output for one company. Every required schema
// field is always present in Fields; a field no source supplied holds its
// documented default, never an absence.
type Record struct {
	Symbol     string                `json:"symbol"`
	Fields     map[string]FieldValue `json:"fields"`
	SourceURL  string                `json:"source_url"`
	Confidence float64               `json:"confidence_score"`
}

// CompletenessReport describes, per record, which required fields a source
// supplied and which had to be defaulted.
type CompletenessReport struct {
	Supplied  []string `json:"supplied"`
	Defaulted []string `json:"defaulted"`
}

// Ratio returns the fraction of required fields populated from a real
// source rather than a default.
func (r CompletenessReport) Ratio() float64 {
	total := len(r.Supplied) + len(r.Defaulted)
	if total == 0 {
		return 0
	}
	return float64(len(r.Supplied)) / float64(total)
}
