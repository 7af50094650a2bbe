// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/generate"
	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/orchestrator"
	"github.com/ipapadil7-star/nexus/internal/storage"
	"github.com/ipapadil7-star/nexus/internal/util"
)

func (r *runner) macrosCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "macros",
		Aliases: []string{"perintah"},
		Short:   "Kelola perintah kustom",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Tampilkan semua perintah kustom",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.withCatalog(cmd.Context(), r.listMacros)
			},
		},
		&cobra.Command{
			Use:   "export <file.yaml>",
			Short: "Simpan perintah kustom ke file YAML",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.withCatalog(cmd.Context(), func(ctx context.Context, reg *commands.Registry) error {
					return r.exportMacros(reg, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "import <file.yaml>",
			Short: "Muat perintah kustom dari file YAML",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.withCatalog(cmd.Context(), func(ctx context.Context, reg *commands.Registry) error {
					return r.importMacros(ctx, reg, args[0])
				})
			},
		},
	)
	return cmd
}

// catalog returns a registry holding every built-in command name, so macro
// names are checked the same way the app checks them, without a backend.
func catalog(store commands.MacroStore) *commands.Registry {
	reg := commands.NewRegistry(store)
	generate.Register(reg, generate.Deps{})
	orchestrator.New(orchestrator.Deps{Timeline: model.NewTimeline(), Registry: reg})
	return reg
}

func (r *runner) withCatalog(ctx context.Context, fn func(context.Context, *commands.Registry) error) error {
	dataDir, err := r.cfg.DataDir()
	if err != nil {
		return err
	}
	db, err := storage.OpenMacroDB(filepath.Join(dataDir, "macros.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	reg := catalog(db)
	if err := reg.LoadMacros(ctx); err != nil {
		return err
	}
	return fn(ctx, reg)
}

func (r *runner) listMacros(_ context.Context, reg *commands.Registry) error {
	macros := reg.Macros()
	if len(macros) == 0 {
		fmt.Fprintln(r.opts.Out, "Belum ada perintah kustom.")
		return nil
	}
	for _, m := range macros {
		fmt.Fprintf(r.opts.Out, "/%s\t%s\n", m.Name, util.TruncateRunes(m.Text, 60))
	}
	return nil
}

func (r *runner) exportMacros(reg *commands.Registry, path string) error {
	var buf bytes.Buffer
	if err := storage.ExportMacros(&buf, reg.Macros()); err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return err
	}
	fmt.Fprintf(r.opts.Out, "%d perintah diekspor ke %s\n", len(reg.Macros()), path)
	return nil
}

func (r *runner) importMacros(ctx context.Context, reg *commands.Registry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	macros, err := storage.ImportMacros(f)
	if err != nil {
		return err
	}
	var saved int
	for _, m := range macros {
		if _, err := reg.SaveMacro(ctx, m.Name, m.Text); err != nil {
			r.logger.Info("macro skipped", zap.String("name", m.Name), zap.Error(err))
			fmt.Fprintf(r.opts.Err, "/%s dilewati: %s\n", m.Name, submitNotice(err))
			continue
		}
		saved++
	}
	fmt.Fprintf(r.opts.Out, "%d perintah diimpor.\n", saved)
	return nil
}
