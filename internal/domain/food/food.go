// Package food defines the knowledge base record types and the shapes
// shared between matching, enrichment, and response assembly.
package food

import "strconv"

// Category groups food records. The set is open: datasets introduce
// their own groupings, so unknown values are kept as-is.
type Category string

const (
	CategoryCereal    Category = "cereal"
	CategoryPulse     Category = "pulse"
	CategoryVegetable Category = "vegetable"
	CategoryOther     Category = "other"
)

// Nutrition holds per-100g macronutrient values. Fields are nil when the
// source row did not carry them.
type Nutrition struct {
	Calories *float64 `json:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty"`
	Fats     *float64 `json:"fats,omitempty"`
}

// Empty reports whether no nutrient value is present.
func (n Nutrition) Empty() bool {
	return n.Calories == nil && n.Protein == nil && n.Carbs == nil && n.Fats == nil
}

// Ayurveda holds the traditional classification of a food. All fields
// are optional free-text tags from the dataset.
type Ayurveda struct {
	Rasa         string `json:"rasa,omitempty"`          // taste
	Virya        string `json:"virya,omitempty"`         // potency
	Guna         string `json:"guna,omitempty"`          // quality/texture
	Vipaka       string `json:"vipaka,omitempty"`        // post-digestive effect
	DoshaEffects string `json:"dosha_effects,omitempty"` // vata/pitta/kapha suitability
}

// Empty reports whether no ayurvedic property is present.
func (a Ayurveda) Empty() bool {
	return a.Rasa == "" && a.Virya == "" && a.Guna == "" && a.Vipaka == "" && a.DoshaEffects == ""
}

// Record is one knowledge base entry. Records are immutable after load;
// the store hands out shared pointers.
type Record struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"` // may carry a Devanagari variant in parentheses
	Category  Category  `json:"category"`
	Content   string    `json:"content"`
	Nutrition Nutrition `json:"nutrition"`
	Ayurveda  Ayurveda  `json:"ayurveda"`
}

// Match is one ranked matcher candidate.
type Match struct {
	Record       *Record  `json:"record"`
	Score        float64  `json:"score"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// SourceKind is the closed set of source origins in an answer.
type SourceKind string

const (
	SourceLocal SourceKind = "knowledge_base"
	SourceWeb   SourceKind = "web_search"
)

// Source is a citation attached to an answer. Similarity is set for
// local matches, Link for web results; the two shapes never mix.
type Source struct {
	Title      string     `json:"title"`
	Content    string     `json:"content,omitempty"`
	Kind       SourceKind `json:"source"`
	Link       string     `json:"link,omitempty"`
	Similarity string     `json:"similarity,omitempty"`
}

// FormatValue renders a nutrient value the way the dataset shows it:
// whole numbers without a trailing ".0".
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
