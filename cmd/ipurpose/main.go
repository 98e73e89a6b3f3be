package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"ipurpose/api/internal/cli"
	"ipurpose/api/internal/logger"
)

var CLI struct {
	Version  kong.VersionFlag
	API      string `help:"iPurpose API base URL." env:"IPURPOSE_API_URL" default:"http://localhost:8787"`
	LogLevel string `help:"Log level (debug, info, warn, error)." env:"IPURPOSE_LOG_LEVEL" default:"warn"`
	LogFile  string `help:"Write logs to this file instead of stderr." env:"IPURPOSE_LOG_FILE" type:"path"`

	Signup   cli.SignupCmd   `cmd:"" help:"Create an account."`
	Verify   cli.VerifyCmd   `cmd:"" help:"Verify your email address."`
	Login    cli.LoginCmd    `cmd:"" help:"Sign in and store the session in the OS keyring."`
	Logout   cli.LogoutCmd   `cmd:"" help:"Sign out and forget the stored session."`
	Whoami   cli.WhoamiCmd   `cmd:"" help:"Show the signed-in account."`
	Forms    cli.FormsCmd    `cmd:"" help:"List forms with progress."`
	Journal  cli.JournalCmd  `cmd:"" help:"Open a form in the autosaving journal." default:"withargs"`
	Checkin  cli.CheckinCmd  `cmd:"" help:"Record a daily check-in."`
	Clarity  cli.ClarityCmd  `cmd:"" help:"Take the Clarity Check."`
	History  cli.HistoryCmd  `cmd:"" help:"Show recent check-ins."`
	Search   cli.SearchCmd   `cmd:"" help:"Search your journal and check-ins."`
	Versions cli.VersionsCmd `cmd:"" help:"List, save or compare draft versions."`
	Export   cli.ExportCmd   `cmd:"" help:"Export a draft as PDF, DOCX or HTML."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("ipurpose"),
		kong.Description("Journal, check in and plan with iPurpose from the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": "v0.1.0"},
	)

	if err := logger.Init(logger.Config{
		Level:  CLI.LogLevel,
		File:   CLI.LogFile,
		Quiet:  CLI.LogFile != "",
		Prefix: "ipurpose",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := ctx.Run(cli.NewContext(CLI.API)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
