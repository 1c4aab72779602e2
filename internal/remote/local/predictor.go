package local

import (
	"context"
	"strings"
	"unicode"

	"expensedesk/internal/core"
)

// FallbackCategory is answered when no keyword matches.
const FallbackCategory = "Miscellaneous"

// DefaultCategories is the vocabulary the prediction service answers with.
var DefaultCategories = []string{
	"Travel",
	"Meals & Entertainment",
	"Office Supplies",
	"Software & Subscriptions",
	"Transportation",
	"Utilities",
	"Marketing & Advertising",
	"Professional Services",
	"Training & Education",
	"Miscellaneous",
}

type keywordRule struct {
	category string
	keywords []string
}

var defaultRules = []keywordRule{
	{"Travel", []string{"flight", "hotel", "airbnb", "trip", "travel", "airfare", "lodging"}},
	{"Transportation", []string{"taxi", "uber", "lyft", "train", "bus", "parking", "fuel", "gas", "toll"}},
	{"Meals & Entertainment", []string{"lunch", "dinner", "breakfast", "coffee", "restaurant", "meal", "drinks"}},
	{"Office Supplies", []string{"paper", "pens", "printer", "toner", "stationery", "desk", "chair"}},
	{"Software & Subscriptions", []string{"license", "subscription", "saas", "software", "cloud", "hosting"}},
	{"Utilities", []string{"electricity", "water", "internet", "phone", "utility"}},
	{"Marketing & Advertising", []string{"ads", "advertising", "campaign", "marketing", "promotion"}},
	{"Professional Services", []string{"consulting", "consultant", "legal", "lawyer", "accountant", "audit", "contractor"}},
	{"Training & Education", []string{"course", "training", "conference", "workshop", "book", "certification"}},
}

// KeywordPredictor answers category predictions from a fixed keyword table.
// It implements remote.CategoryPredictor.
type KeywordPredictor struct {
	rules []keywordRule
}

func NewKeywordPredictor() *KeywordPredictor {
	return &KeywordPredictor{rules: defaultRules}
}

func (p *KeywordPredictor) PredictCategory(ctx context.Context, title string, _ core.Money, description string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	words := tokenize(title + " " + description)
	for _, r := range p.rules {
		for _, kw := range r.keywords {
			if _, ok := words[kw]; ok {
				return r.category, nil
			}
		}
	}
	return FallbackCategory, nil
}

// tokenize lower-cases text into a word set; a trailing plural "s" also
// registers the singular form.
func tokenize(text string) map[string]struct{} {
	words := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = struct{}{}
		if len(w) > 3 && strings.HasSuffix(w, "s") {
			words[strings.TrimSuffix(w, "s")] = struct{}{}
		}
	}
	return words
}
