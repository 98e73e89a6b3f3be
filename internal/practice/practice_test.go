package practice

import (
	"reflect"
	"testing"
)

func score(v int) *int { return &v }

func TestSuggest(t *testing.T) {
	tests := []struct {
		name     string
		emotions []string
		score    *int
		want     []Category
	}{
		{"neutral score falls back to reflection", nil, score(5), []Category{Reflection}},
		{"missing score is neutral", []string{}, nil, []Category{Reflection}},
		{"low score with inspired", []string{"Inspired"}, score(3), []Category{Rest, Structure, Expression}},
		{"score four is rest and structure", nil, score(4), []Category{Rest, Structure}},
		{"score six is structure only", nil, score(6), []Category{Structure}},
		{"score seven is expression", nil, score(7), []Category{Expression}},
		{"tired at high score", []string{"Tired"}, score(9), []Category{Rest, Expression}},
		{"uncertain at neutral", []string{"Uncertain"}, nil, []Category{Structure}},
		{"energized case-insensitive", []string{"energized"}, score(5), []Category{Expression}},
		{"overlapping triggers do not duplicate", []string{"Tired", "Anxious", "Inspired", "Energized"}, score(1), []Category{Rest, Structure, Expression}},
		{"unrelated emotion", []string{"Grateful"}, score(5), []Category{Reflection}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Suggest(tc.emotions, tc.score)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Suggest(%v, %v) = %v, want %v", tc.emotions, tc.score, got, tc.want)
			}
		})
	}
}

func TestSuggestUnionContainsRestAndExpression(t *testing.T) {
	got := Suggest([]string{"Inspired"}, score(3))
	seen := map[Category]int{}
	for _, c := range got {
		seen[c]++
	}
	if seen[Rest] != 1 || seen[Expression] != 1 {
		t.Fatalf("expected Rest and Expression exactly once, got %v", got)
	}
	if seen[Reflection] != 0 {
		t.Fatalf("reflection must not appear alongside other categories: %v", got)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		categories []Category
		want       string
	}{
		{[]Category{Expression, Rest}, "rest-reset"},
		{[]Category{Structure}, "structure-plan"},
		{[]Category{Expression}, "expression-create"},
		{[]Category{Reflection}, "reflection-journal"},
		{nil, "reflection-journal"},
	}
	for _, tc := range tests {
		if got := Recommend(tc.categories).ID; got != tc.want {
			t.Fatalf("Recommend(%v) = %s, want %s", tc.categories, got, tc.want)
		}
	}
}

func TestValidScore(t *testing.T) {
	for _, s := range []int{0, 11, -3} {
		if ValidScore(s) {
			t.Fatalf("expected %d to be invalid", s)
		}
	}
	for _, s := range []int{1, 5, 10} {
		if !ValidScore(s) {
			t.Fatalf("expected %d to be valid", s)
		}
	}
}
