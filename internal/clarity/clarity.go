// Package clarity scores the Clarity Check quiz: twelve Likert answers
// grouped into four dimensions and five archetype choices.
package clarity

import (
	"fmt"
	"strings"
)

const (
	AnswerCount = 12
	ChoiceCount = 5
	MinAnswer   = 1
	MaxAnswer   = 5
)

type Dimension string

const (
	DimensionPurpose  Dimension = "purpose"
	DimensionSelf     Dimension = "self_trust"
	DimensionCapacity Dimension = "capacity"
	DimensionAction   Dimension = "aligned_action"
)

// Dimensions lists the four groups in question order: answers 0-2 belong to
// the first, 3-5 to the second and so on.
var Dimensions = []Dimension{DimensionPurpose, DimensionSelf, DimensionCapacity, DimensionAction}

var dimensionLabels = map[Dimension]string{
	DimensionPurpose:  "Clarity of Purpose",
	DimensionSelf:     "Self-Trust",
	DimensionCapacity: "Energy & Capacity",
	DimensionAction:   "Aligned Action",
}

func (d Dimension) Label() string {
	return dimensionLabels[d]
}

type Identity string

const (
	Visionary  Identity = "Visionary"
	Builder    Identity = "Builder"
	Nurturer   Identity = "Nurturer"
	Strategist Identity = "Strategist"
	Creator    Identity = "Creator"
)

// identityPrecedence is the tie-break order. Earlier entries win ties.
var identityPrecedence = []struct {
	letter   string
	identity Identity
}{
	{"A", Visionary},
	{"B", Builder},
	{"C", Nurturer},
	{"D", Strategist},
	{"E", Creator},
}

type DimensionScore struct {
	Dimension Dimension `json:"dimension"`
	Label     string    `json:"label"`
	Score     int       `json:"score"`
}

type Scores struct {
	Dimensions []DimensionScore `json:"dimensions"`
	Total      int              `json:"total"`
}

// ByDimension returns the dimension scores keyed by dimension.
func (s Scores) ByDimension() map[Dimension]int {
	out := make(map[Dimension]int, len(s.Dimensions))
	for _, d := range s.Dimensions {
		out[d.Dimension] = d.Score
	}
	return out
}

type Result struct {
	Answers  [AnswerCount]int    `json:"answers"`
	Choices  [ChoiceCount]string `json:"choices"`
	Scores   Scores              `json:"scores"`
	Identity Identity            `json:"identityType"`
}

// DimensionScores sums each fixed group of three answers. It performs no
// validation; callers check the answer domain first.
func DimensionScores(answers [AnswerCount]int) Scores {
	per := AnswerCount / len(Dimensions)
	scores := Scores{Dimensions: make([]DimensionScore, 0, len(Dimensions))}
	for i, dim := range Dimensions {
		sum := 0
		for _, answer := range answers[i*per : (i+1)*per] {
			sum += answer
		}
		scores.Dimensions = append(scores.Dimensions, DimensionScore{Dimension: dim, Label: dim.Label(), Score: sum})
		scores.Total += sum
	}
	return scores
}

// IdentityType returns the plurality archetype. Ties go to the earlier
// letter in A..E order. Letters outside A..E are not counted, so a set of
// only unknown letters resolves to Visionary.
func IdentityType(choices [ChoiceCount]string) Identity {
	counts := make(map[string]int, len(identityPrecedence))
	for _, choice := range choices {
		counts[strings.ToUpper(strings.TrimSpace(choice))]++
	}
	best := identityPrecedence[0].identity
	bestCount := -1
	for _, entry := range identityPrecedence {
		if n := counts[entry.letter]; n > bestCount {
			best, bestCount = entry.identity, n
		}
	}
	return best
}

// ValidationError collects every problem with a submission.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid clarity check: " + strings.Join(e.Problems, "; ")
}

// Validate checks counts and domains and converts the slices to the fixed
// arrays the scorers take.
func Validate(answers []int, choices []string) ([AnswerCount]int, [ChoiceCount]string, error) {
	var outAnswers [AnswerCount]int
	var outChoices [ChoiceCount]string
	var problems []string

	if len(answers) != AnswerCount {
		problems = append(problems, fmt.Sprintf("expected %d answers, got %d", AnswerCount, len(answers)))
	} else {
		for i, answer := range answers {
			if answer < MinAnswer || answer > MaxAnswer {
				problems = append(problems, fmt.Sprintf("answer %d must be between %d and %d", i+1, MinAnswer, MaxAnswer))
			}
			outAnswers[i] = answer
		}
	}

	if len(choices) != ChoiceCount {
		problems = append(problems, fmt.Sprintf("expected %d choices, got %d", ChoiceCount, len(choices)))
	} else {
		for i, choice := range choices {
			letter := strings.ToUpper(strings.TrimSpace(choice))
			if !validLetter(letter) {
				problems = append(problems, fmt.Sprintf("choice %d must be one of A-E", i+1))
			}
			outChoices[i] = letter
		}
	}

	if len(problems) > 0 {
		return outAnswers, outChoices, &ValidationError{Problems: problems}
	}
	return outAnswers, outChoices, nil
}

func validLetter(letter string) bool {
	for _, entry := range identityPrecedence {
		if entry.letter == letter {
			return true
		}
	}
	return false
}

// Score validates and scores a submission.
func Score(answers []int, choices []string) (Result, error) {
	a, c, err := Validate(answers, choices)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Answers:  a,
		Choices:  c,
		Scores:   DimensionScores(a),
		Identity: IdentityType(c),
	}, nil
}
