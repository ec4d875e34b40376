package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/dlgedit/internal/config"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/editor"
	"github.com/gyaneshwarpardhi/dlgedit/internal/tlk"
	"github.com/gyaneshwarpardhi/dlgedit/internal/workspace"
)

// errInvalid makes the process exit non-zero after the report is printed.
var errInvalid = errors.New("one or more dialogs are invalid")

type rootOptions struct {
	verbose bool
	tlkPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "dlgtool",
		Short:        "Check, repair and export branching dialog files",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")
	root.PersistentFlags().StringVar(&opts.tlkPath, "tlk", "", "string table directory used to resolve StrRefs")

	root.AddCommand(newValidateCmd(), newRepairCmd(opts), newStructureCmd(opts), newTLKCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	var workers int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check dialog files for index violations and link-only orphans",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			conf := config.Default().Editor
			conf.ValidateWorkers = workers
			conf.ValidateQueue = len(args)
			ws := workspace.New(ctx, conf, nil, nil, slog.Default())
			defer ws.Shutdown()

			reports, err := ws.ValidateFiles(ctx, args)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range reports {
				if !r.OK() {
					failed++
				}
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(reports); err != nil {
					return err
				}
			} else {
				for _, r := range reports {
					switch {
					case r.Error != "":
						fmt.Fprintf(out, "FAIL %s: %s\n", r.Path, r.Error)
					case len(r.Violations) > 0:
						fmt.Fprintf(out, "FAIL %s: %d violation(s)\n", r.Path, len(r.Violations))
						for _, v := range r.Violations {
							fmt.Fprintf(out, "     %s\n", v)
						}
					default:
						fmt.Fprintf(out, "ok   %s (%d nodes, %d unreachable)\n", r.Path, r.Nodes, r.Unreachable)
					}
					if len(r.LinkOrphans) > 0 {
						fmt.Fprintf(out, "     link-only nodes: %v\n", r.LinkOrphans)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errInvalid, failed, len(reports))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "files validated in parallel")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")
	return cmd
}

func newRepairCmd(root *rootOptions) *cobra.Command {
	var output string
	var sweep bool
	cmd := &cobra.Command{
		Use:   "repair <file>",
		Short: "Rebuild links, recalculate indices and save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeTLK, err := openSession(args[0], root)
			if err != nil {
				return err
			}
			defer closeTLK()

			out := cmd.OutOrStdout()
			if sweep {
				removed := dialog.RemoveOrphans(s.Dialog())
				fmt.Fprintf(out, "removed %d unreachable node(s)\n", len(removed))
			}
			remaining := s.Repair()
			for _, e := range remaining {
				fmt.Fprintf(out, "unrepairable: %s\n", e)
			}
			if output == "" {
				output = args[0]
			}
			if err := s.Save(output); err != nil {
				return err
			}
			fmt.Fprintf(out, "saved %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write here instead of over the input")
	cmd.Flags().BoolVar(&sweep, "sweep", false, "also remove nodes not reachable from a conversation start")
	return cmd
}

func newStructureCmd(root *rootOptions) *cobra.Command {
	var lang int
	cmd := &cobra.Command{
		Use:   "structure <file>",
		Short: "Print the flowchart structure of a dialog as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeTLK, err := openSession(args[0], root, func(o *editor.Options) {
				o.Language = dialog.LanguageID(lang)
			})
			if err != nil {
				return err
			}
			defer closeTLK()

			st, hash, err := s.Structure()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"nodes":  st.Nodes,
				"links":  st.Links,
				"colors": s.Colors(),
				"hash":   hash,
			})
		},
	}
	cmd.Flags().IntVar(&lang, "lang", 0, "language id for display text")
	return cmd
}

func newTLKCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tlk",
		Short: "Manage the string table",
	}
	var dbPath string
	importCmd := &cobra.Command{
		Use:   "import <entries.json>",
		Short: `Load {"<strref>": "<text>"} entries into the string table`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var entries map[int64]string
			if err := json.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			t, err := tlk.Open(tlk.DefaultConfig(dbPath))
			if err != nil {
				return err
			}
			defer t.Close()
			n, err := t.Import(entries)
			if err != nil {
				return err
			}
			total, err := t.Len()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries (%d total)\n", n, total)
			return nil
		},
	}
	importCmd.Flags().StringVar(&dbPath, "db", "", "string table directory")
	_ = importCmd.MarkFlagRequired("db")
	cmd.AddCommand(importCmd)
	return cmd
}

// openSession loads path into a standalone session, wiring the string table
// when --tlk is set.
func openSession(path string, root *rootOptions, mods ...func(*editor.Options)) (*editor.Session, func(), error) {
	opts := editor.Options{AutoRepair: true, Logger: slog.Default()}
	closeTLK := func() {}
	if root.tlkPath != "" {
		t, err := tlk.Open(tlk.DefaultConfig(root.tlkPath))
		if err != nil {
			return nil, nil, err
		}
		opts.Resolver = t
		closeTLK = func() { t.Close() }
	}
	for _, m := range mods {
		m(&opts)
	}
	s, err := editor.Open("dlgtool", path, opts)
	if err != nil {
		closeTLK()
		return nil, nil, err
	}
	return s, closeTLK, nil
}
