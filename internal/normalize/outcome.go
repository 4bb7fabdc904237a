package normalize

// Evidence records why an extractor produced a value: the matched text
// span and the rule or alias that fired. Travels with every extracted
// field so any merge decision can be reconstructed later.
type Evidence struct {
	Span string `json:"span,omitempty"`
	Rule string `json:"rule,omitempty"`
}

// Outcome is the shared result shape of every extractor. Matched is
// false for a NoMatch outcome; the pipeline then continues with the
// field's zero/unknown default instead of aborting the posting.
type Outcome struct {
	Matched    bool     `json:"matched"`
	Confidence float64  `json:"confidence"`
	Evidence   Evidence `json:"evidence,omitzero"`
}

// NoMatch is the zero-confidence outcome extractors return when they
// cannot resolve a field.
func NoMatch() Outcome {
	return Outcome{}
}

// Match builds a positive outcome with the given confidence and evidence.
func Match(confidence float64, span, rule string) Outcome {
	return Outcome{
		Matched:    true,
		Confidence: confidence,
		Evidence: Evidence{
			Span: span,
			Rule: rule,
		},
	}
}
