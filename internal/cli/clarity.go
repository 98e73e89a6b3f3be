package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"ipurpose/api/internal/client"
	"ipurpose/api/internal/clarity"
)

type ClarityCmd struct {
	Latest bool `help:"Show your most recent result instead of taking the check."`
}

func (cmd *ClarityCmd) Run(ctx *Context) error {
	c := context.Background()
	if err := ctx.Authorize(c); err != nil {
		return err
	}
	if cmd.Latest {
		result, err := ctx.Client.LatestClarity(c)
		if err != nil {
			if client.IsCode(err, "NOT_FOUND") {
				ctx.printf("No clarity check yet. Run 'ipurpose clarity' to take it.\n")
				return nil
			}
			return err
		}
		printClarity(ctx, result)
		return nil
	}

	questions, err := ctx.Client.ClarityQuestions(c)
	if err != nil {
		return err
	}
	answers, choices, err := askClarity(questions)
	if err != nil {
		return err
	}
	result, err := ctx.Client.SubmitClarity(c, answers, choices)
	if err != nil {
		return err
	}
	printClarity(ctx, result)
	return nil
}

func askClarity(q clarity.Questionnaire) ([]int, []string, error) {
	scale := make([]huh.Option[string], 0, len(q.Scale))
	for i, label := range q.Scale {
		scale = append(scale, huh.NewOption(fmt.Sprintf("%d · %s", i+1, label), strconv.Itoa(i+1)))
	}

	rawAnswers := make([]string, len(q.Statements))
	var statements []huh.Field
	for i, s := range q.Statements {
		statements = append(statements, huh.NewSelect[string]().
			Title(s.Text).
			Options(scale...).
			Value(&rawAnswers[i]))
	}

	choices := make([]string, len(q.Choices))
	var choiceFields []huh.Field
	for i, choice := range q.Choices {
		options := make([]huh.Option[string], 0, len(choice.Options))
		for _, opt := range choice.Options {
			options = append(options, huh.NewOption(opt.Letter+" · "+opt.Text, opt.Letter))
		}
		choiceFields = append(choiceFields, huh.NewSelect[string]().
			Title(choice.Prompt).
			Options(options...).
			Value(&choices[i]))
	}

	form := huh.NewForm(
		huh.NewGroup(statements...),
		huh.NewGroup(choiceFields...),
	)
	if err := form.Run(); err != nil {
		return nil, nil, err
	}

	answers := make([]int, len(rawAnswers))
	for i, raw := range rawAnswers {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("statement %d has no answer", i+1)
		}
		answers[i] = n
	}
	return answers, choices, nil
}

func printClarity(ctx *Context, result client.ClarityResult) {
	ctx.printf("You are a %s\n\n", result.IdentityType)
	for _, d := range result.Scores.Dimensions {
		ctx.printf("  %-20s %2d\n", d.Label, d.Score)
	}
	ctx.printf("  %-20s %2d\n", "Total", result.Scores.Total)
}
