package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"ipurpose/api/internal/client"
	"ipurpose/api/internal/forms"
	"ipurpose/api/internal/practice"
)

type CheckinCmd struct {
	Emotions []string `help:"Emotions, comma separated." sep:","`
	Score    int      `help:"Alignment score from 1 to 10."`
	Need     string   `help:"What you need today."`
}

func (cmd *CheckinCmd) interactive() bool {
	return len(cmd.Emotions) == 0 || cmd.Score == 0
}

func (cmd *CheckinCmd) prompt() error {
	score := strconv.Itoa(cmd.Score)
	scoreOptions := make([]huh.Option[string], 0, 10)
	for i := 1; i <= 10; i++ {
		scoreOptions = append(scoreOptions, huh.NewOption(strconv.Itoa(i), strconv.Itoa(i)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("How are you feeling?").
				Options(huh.NewOptions(forms.Emotions...)...).
				Value(&cmd.Emotions),
			huh.NewSelect[string]().
				Title("How aligned do you feel today?").
				Options(scoreOptions...).
				Value(&score),
			huh.NewInput().
				Title("What do you need?").
				Value(&cmd.Need),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	parsed, err := strconv.Atoi(score)
	if err != nil {
		return errors.New("alignment score is required")
	}
	cmd.Score = parsed
	return nil
}

func (cmd *CheckinCmd) Run(ctx *Context) error {
	c := context.Background()
	if err := ctx.Authorize(c); err != nil {
		return err
	}
	if cmd.interactive() {
		if err := cmd.prompt(); err != nil {
			return err
		}
	}

	checkIn, err := ctx.Client.SubmitCheckIn(c, client.CheckInRequest{
		Emotions:       cmd.Emotions,
		AlignmentScore: cmd.Score,
		Need:           cmd.Need,
	})
	if err != nil {
		return err
	}
	ctx.printf("✓ Check-in recorded (%s, %d/10)\n", strings.Join(checkIn.Emotions, ", "), checkIn.AlignmentScore)
	printSuggestions(ctx, checkIn.Suggestions, checkIn.Practice)
	return nil
}

func printSuggestions(ctx *Context, categories []practice.Category, content practice.Content) {
	if len(categories) == 0 {
		return
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	ctx.printf("\nSuggested: %s\n", strings.Join(names, ", "))
	if content.Title != "" {
		ctx.printf("Try this: %s\n  %s\n", content.Title, content.Body)
	}
}

type HistoryCmd struct {
	Limit int `help:"Number of check-ins to show." default:"10"`
}

func (cmd *HistoryCmd) Run(ctx *Context) error {
	c := context.Background()
	if err := ctx.Authorize(c); err != nil {
		return err
	}
	checkIns, err := ctx.Client.ListCheckIns(c, cmd.Limit)
	if err != nil {
		return err
	}
	if len(checkIns) == 0 {
		ctx.printf("No check-ins yet.\n")
		return nil
	}
	for _, ci := range checkIns {
		line := ci.RecordedAt.Local().Format("Mon Jan 2 15:04") + "  " + strconv.Itoa(ci.AlignmentScore) + "/10  " + strings.Join(ci.Emotions, ", ")
		if ci.Need != "" {
			line += "  · " + ci.Need
		}
		ctx.printf("%s\n", line)
	}
	return nil
}

type SearchCmd struct {
	Query string `arg:"" help:"Text to search for."`
	Type  string `help:"Limit results to draft or checkin."`
	Limit int    `help:"Maximum results." default:"20"`
}

func (cmd *SearchCmd) Run(ctx *Context) error {
	c := context.Background()
	if err := ctx.Authorize(c); err != nil {
		return err
	}
	resp, err := ctx.Client.Search(c, cmd.Query, cmd.Type, cmd.Limit)
	if err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		ctx.printf("No matches for %q.\n", resp.Query)
		return nil
	}
	for _, r := range resp.Results {
		ctx.printf("[%s] %s\n", r.Type, r.Title)
		if r.Snippet != "" {
			ctx.printf("    %s\n", r.Snippet)
		}
	}
	if resp.Total > len(resp.Results) {
		ctx.printf("… %d more\n", resp.Total-len(resp.Results))
	}
	return nil
}
