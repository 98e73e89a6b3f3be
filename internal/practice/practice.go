// Package practice picks suggested practices for a daily check-in.
package practice

import "strings"

type Category string

const (
	Rest       Category = "Rest"
	Structure  Category = "Structure"
	Expression Category = "Expression"
	Reflection Category = "Reflection"
)

// order is the fixed output order of Suggest.
var order = []Category{Rest, Structure, Expression, Reflection}

// NeutralScore is assumed when a check-in has no alignment score. It sits
// between the low and high bands and triggers no score rule.
const NeutralScore = 5

const (
	MinScore = 1
	MaxScore = 10
)

var emotionTriggers = map[Category][]string{
	Rest:       {"Tired", "Anxious"},
	Structure:  {"Uncertain"},
	Expression: {"Inspired", "Energized"},
}

// Suggest applies every rule independently and returns the union in fixed
// order with no duplicates. Reflection appears only when nothing else does.
func Suggest(emotions []string, score *int) []Category {
	s := NeutralScore
	if score != nil {
		s = *score
	}

	matched := map[Category]bool{
		Rest:       s <= 4 || hasAny(emotions, emotionTriggers[Rest]),
		Structure:  (s <= 6 && s != NeutralScore) || hasAny(emotions, emotionTriggers[Structure]),
		Expression: s >= 7 || hasAny(emotions, emotionTriggers[Expression]),
	}

	var out []Category
	for _, category := range order {
		if matched[category] {
			out = append(out, category)
		}
	}
	if len(out) == 0 {
		out = append(out, Reflection)
	}
	return out
}

func hasAny(emotions []string, triggers []string) bool {
	for _, emotion := range emotions {
		emotion = strings.TrimSpace(emotion)
		for _, trigger := range triggers {
			if strings.EqualFold(emotion, trigger) {
				return true
			}
		}
	}
	return false
}

type Content struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
}

var library = map[Category]Content{
	Rest: {
		ID:       "rest-reset",
		Category: Rest,
		Title:    "Five-minute reset",
		Body:     "Step away from the screen, breathe slowly for five minutes and let one task wait until tomorrow.",
	},
	Structure: {
		ID:       "structure-plan",
		Category: Structure,
		Title:    "Plan the next three moves",
		Body:     "Write down the three smallest next steps and put the first one on your calendar today.",
	},
	Expression: {
		ID:       "expression-create",
		Category: Expression,
		Title:    "Create while it is warm",
		Body:     "Spend twenty minutes making something with the energy you have: a post, a sketch, an outline.",
	},
	Reflection: {
		ID:       "reflection-journal",
		Category: Reflection,
		Title:    "Reflect on what is working",
		Body:     "Open your journal and note one thing that felt aligned this week and why.",
	},
}

// Recommend returns the content for the highest-precedence category.
func Recommend(categories []Category) Content {
	for _, category := range order {
		for _, c := range categories {
			if c == category {
				return library[category]
			}
		}
	}
	return library[Reflection]
}

// ContentFor returns the content for one category.
func ContentFor(category Category) (Content, bool) {
	c, ok := library[category]
	return c, ok
}

// ValidScore reports whether score is within 1..10.
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}
