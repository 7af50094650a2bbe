// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/model"
)

func (r *runner) askCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   `ask "<pesan atau /perintah>"`,
		Short: "Jalankan satu pesan atau perintah lalu keluar",
		Example: `  nexus ask "halo, apa kabar?"
  nexus ask "/gambar kucing astronot --style anime"
  nexus ask "/dengarkan" --file foto.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.ask(cmd.Context(), strings.Join(args, " "), file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Lampirkan file (gambar atau PDF)")
	return cmd
}

// ask submits one input and prints the messages it produced. A final
// error message becomes the exit status.
func (r *runner) ask(ctx context.Context, input, file string) error {
	app, err := r.newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if file != "" {
		if err := app.Orch.Submit(ctx, "/lampirkan "+file); err != nil {
			return err
		}
		if app.Orch.StagedAttachment() == "" {
			// The attach command explained why in the timeline.
			return apperr.NewBadRequest("%s", lastText(app.Timeline))
		}
	}

	start := app.Timeline.Len()
	if err := app.Orch.Submit(ctx, input); err != nil {
		return err
	}

	pr := newPrinter(r.opts.Out, r.opts.Out == os.Stdout && IsStdoutTTY(), r.cfg.UI.GlamourStyle, 80)
	var failed *model.Message
	for _, m := range app.Timeline.Messages()[start:] {
		if m.Role == model.RoleUser {
			continue
		}
		if m.GenerationStatus == model.StatusError {
			failed = &m
			fmt.Fprintln(r.opts.Err, pr.format(m))
			continue
		}
		fmt.Fprintln(r.opts.Out, pr.format(m))
	}

	if failed != nil {
		cat, ok := app.LastFailure()
		if !ok {
			cat = apperr.BadRequest
		}
		return &ErrGenerationFailed{Category: cat, Message: failed.Text}
	}
	return nil
}

func lastText(tl *model.Timeline) string {
	msgs := tl.Messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}
