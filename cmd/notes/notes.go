package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/notekeeper/internal/docstore"
	"github.com/mmynk/notekeeper/internal/models"
)

// Output formats for notes.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func writeNotes(w io.Writer, notes []models.Note, format string) error {
	switch format {
	case formatText:
		for _, n := range notes {
			fmt.Fprintf(w, "%s  %s  %s\n", n.ID, n.CreatedAt.Format("2006-01-02 15:04"), n.Text)
		}
		return nil
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(notes)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(notes); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func writeNote(w io.Writer, note *models.Note, format string) error {
	if format == formatText {
		fmt.Fprintf(w, "ID:      %s\n", note.ID)
		fmt.Fprintf(w, "Created: %s\n", note.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Updated: %s\n", note.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "\n%s\n", note.Text)
		return nil
	}
	return writeNotes(w, []models.Note{*note}, format)
}

// ownedNote fetches a note and hides it unless it belongs to the signed-in user.
// The remote driver gets the same answer from the server.
func (a *app) ownedNote(ctx context.Context, noteID string) (*models.Note, error) {
	u, err := a.user()
	if err != nil {
		return nil, err
	}
	note, err := a.repo.Get(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note.OwnerID != u.ID {
		return nil, fmt.Errorf("failed to get note: %w", docstore.ErrNotFound)
	}
	return note, nil
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your notes, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				u, err := a.user()
				if err != nil {
					return err
				}
				notes, err := a.repo.List(ctx, u.ID)
				if err != nil {
					return err
				}
				if len(notes) == 0 && output == formatText {
					fmt.Fprintln(cmd.OutOrStdout(), "No notes yet.")
					return nil
				}
				return writeNotes(cmd.OutOrStdout(), notes, output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text, json or yaml")
	return cmd
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add TEXT...",
		Short: "Create a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				u, err := a.user()
				if err != nil {
					return err
				}
				note, err := a.repo.Create(ctx, strings.Join(args, " "), u.ID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), note.ID)
				return nil
			})
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				note, err := a.ownedNote(ctx, args[0])
				if err != nil {
					return err
				}
				return writeNote(cmd.OutOrStdout(), note, output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text, json or yaml")
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit ID TEXT...",
		Short: "Replace the text of a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := a.ownedNote(ctx, args[0]); err != nil {
					return err
				}
				note, err := a.repo.Update(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", note.ID)
				return nil
			})
		},
	}
}

func newRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID...",
		Aliases: []string{"delete"},
		Short:   "Delete notes",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				for _, id := range args {
					if _, err := a.ownedNote(ctx, id); err != nil {
						return err
					}
					if err := a.repo.Delete(ctx, id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
				}
				return nil
			})
		},
	}
}
