package sentiment

import "strings"

// Category is a sentiment label for a piece of feedback.
type Category string

// The closed set of categories a piece of feedback can carry.
const (
	Positive Category = "Positive"
	Negative Category = "Negative"
	Neutral  Category = "Neutral"
)

// Categories returns every category in scoring order. Predict evaluates
// categories in exactly this order, which is what breaks exact score ties.
func Categories() []Category {
	return []Category{Positive, Negative, Neutral}
}

// ParseCategory maps s onto one of the fixed categories, ignoring case.
func ParseCategory(s string) (Category, bool) {
	for _, cat := range Categories() {
		if strings.EqualFold(s, string(cat)) {
			return cat, true
		}
	}
	return "", false
}
