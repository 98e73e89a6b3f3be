package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ipurpose/api/internal/client"
	"ipurpose/api/internal/forms"
	"ipurpose/api/internal/tui"
)

type FormsCmd struct{}

func (cmd *FormsCmd) Run(ctx *Context) error {
	c := context.Background()
	if err := ctx.Authorize(c); err != nil {
		return err
	}
	list, err := ctx.Client.Forms(c)
	if err != nil {
		return err
	}
	ctx.printf("Plan: %s\n\n", list.Tier)
	for _, f := range list.Forms {
		status := fmt.Sprintf("%3d%%", f.Completion)
		if f.Locked {
			status = "🔒 " + f.RequiredTier
		}
		ctx.printf("%-14s %-28s %s\n", f.Key, f.Title, status)
	}
	return nil
}

type JournalCmd struct {
	Form string `arg:"" optional:"" default:"daily-session" help:"Form to open."`
}

func (cmd *JournalCmd) Run(ctx *Context) error {
	if _, err := forms.Lookup(cmd.Form); err != nil {
		return fmt.Errorf("unknown form %q", cmd.Form)
	}
	c := context.Background()
	if err := ctx.Authorize(c); err != nil {
		return err
	}
	schema, err := ctx.Client.Schema(c, cmd.Form)
	if err != nil {
		return err
	}
	current, err := ctx.Client.LoadDraft(c, cmd.Form)
	if err != nil {
		return err
	}
	return tui.Run(schema, current.Fields, ctx.Client.DraftFlusher(cmd.Form))
}

type VersionsCmd struct {
	Form  string `arg:"" help:"Form whose versions to list."`
	Save  string `help:"Save the current draft as a named version."`
	Show  string `help:"Show the changes since a version hash."`
	Limit int    `help:"Number of versions to list." default:"20"`
}

func (cmd *VersionsCmd) Run(ctx *Context) error {
	c := context.Background()
	if err := ctx.Authorize(c); err != nil {
		return err
	}
	switch {
	case cmd.Save != "":
		version, err := ctx.Client.SaveVersion(c, cmd.Form, cmd.Save)
		if err != nil {
			return err
		}
		ctx.printf("✓ Saved %s (%s)\n", version.Name, version.Hash)
		return nil
	case cmd.Show != "":
		detail, err := ctx.Client.GetVersion(c, cmd.Form, cmd.Show)
		if err != nil {
			return err
		}
		ctx.printf("%s  %s  %d%% complete\n", detail.Version.Hash, detail.Version.Name, detail.Snapshot.Completion)
		if len(detail.Changes) == 0 {
			ctx.printf("No changes since this version.\n")
		}
		for _, change := range detail.Changes {
			ctx.printf("  %s\n    - %s\n    + %s\n", change.Key, change.Before, change.After)
		}
		return nil
	}

	versions, err := ctx.Client.ListVersions(c, cmd.Form, cmd.Limit)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		ctx.printf("No versions yet.\n")
		return nil
	}
	for _, v := range versions {
		ctx.printf("%s  %s  %s\n", v.Hash, v.CreatedAt.Local().Format("2006-01-02 15:04"), v.Name)
	}
	return nil
}

type ExportCmd struct {
	Form    string `arg:"" help:"Form to export."`
	Format  string `help:"pdf, docx or html." enum:"pdf,docx,html" default:"pdf"`
	Version string `help:"Export a saved version instead of the current draft."`
	Output  string `help:"Directory to write the file to." type:"path" default:"."`
	Archive bool   `help:"Store the export and print a download link."`
	Notify  bool   `help:"Email the download link (with --archive)."`
}

func (cmd *ExportCmd) Run(ctx *Context) error {
	c := context.Background()
	if err := ctx.Authorize(c); err != nil {
		return err
	}
	file, err := ctx.Client.Export(c, cmd.Form, client.ExportOptions{
		Format:  cmd.Format,
		Version: cmd.Version,
		Archive: cmd.Archive,
		Notify:  cmd.Notify,
	})
	if err != nil {
		return err
	}
	if file.Stored != nil {
		ctx.printf("✓ Export stored\n  %s\n  link expires %s\n", file.Stored.URL, file.Stored.ExpiresAt.Local().Format("2006-01-02 15:04"))
		return nil
	}
	path := filepath.Join(cmd.Output, filepath.Base(file.Filename))
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	ctx.printf("✓ Wrote %s\n", path)
	return nil
}
