package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kingrea/agentx/internal/config"
	"github.com/kingrea/agentx/internal/host/local"
	"github.com/kingrea/agentx/internal/procexec"
)

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "agentx",
		Short:         "Extensions for an interactive coding agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.project, "project", "", "project directory (defaults to cwd)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(
		newInitCommand(opts),
		newExtensionsCommand(opts),
		newRunCommand(opts, runCommandKind),
		newRunCommand(opts, runShortcutKind),
		newHookCommand(opts),
		newBridgeCommand(opts),
	)
	return cmd
}

func newInitCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .agentx directory with a default config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := opts.projectDir()
			if err != nil {
				return err
			}
			if err := config.InitDir(dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", filepath.Join(dir, config.ProjectDirName))
			return nil
		},
	}
}

func newExtensionsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extensions",
		Short: "List installed extensions, commands and shortcuts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EXTENSION\tVERSION\tDESCRIPTION")
			for _, info := range a.catalog.Extensions() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", info.ID, info.Version, info.Description)
			}
			fmt.Fprintln(w, "\nCOMMAND\tEXTENSION\tDESCRIPTION")
			for _, c := range a.catalog.Commands() {
				fmt.Fprintf(w, "/%s\t%s\t%s\n", c.Name, c.Extension, c.Description)
			}
			fmt.Fprintln(w, "\nSHORTCUT\tEXTENSION\tDESCRIPTION")
			for _, sc := range a.catalog.Shortcuts() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", sc.Key, sc.Extension, sc.Description)
			}
			fmt.Fprintln(w, "\nMODEL\tPROVIDER\tNAME")
			extraction := strings.ToLower(a.cfg.ExtractionModel())
			for _, m := range a.models.Models() {
				id := m.ID
				if strings.ToLower(m.ID) == extraction {
					id += " (extraction)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, m.Provider, m.Name)
			}
			return w.Flush()
		},
	}
}

type runKind int

const (
	runCommandKind runKind = iota
	runShortcutKind
)

type hostFlags struct {
	session string
	model   string
	out     string
}

func newRunCommand(opts *globalOptions, kind runKind) *cobra.Command {
	flags := &hostFlags{}
	cmd := &cobra.Command{
		Use:   "command <name> [args...]",
		Short: "Run a slash command against a session branch",
		Args:  cobra.MinimumNArgs(1),
	}
	if kind == runShortcutKind {
		cmd.Use = "shortcut <key>"
		cmd.Short = "Run the handler bound to a keyboard shortcut"
		cmd.Args = cobra.ExactArgs(1)
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		console, closeConsole := local.DetectConsole()
		defer closeConsole()

		exec := &procexec.ExecRunner{}
		if console != nil {
			exec.Stdin, exec.Stdout, exec.Stderr = console.In, console.Out, console.Out
		}
		a, err := loadApp(opts, exec)
		if err != nil {
			return err
		}
		defer a.Close()
		exec.Dir = a.cfg.ProjectDir

		messages := cmd.OutOrStdout()
		if flags.out != "" {
			f, err := os.OpenFile(flags.out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open %s: %w", flags.out, err)
			}
			defer f.Close()
			messages = f
		}
		h := local.New(local.Options{
			BranchPath: flags.session,
			Model:      flags.model,
			Messages:   messages,
			Notices:    cmd.ErrOrStderr(),
			Console:    console,
		})
		if kind == runShortcutKind {
			return a.catalog.RunShortcut(cmd.Context(), h, args[0])
		}
		return a.catalog.RunCommand(cmd.Context(), h, args[0], strings.Join(args[1:], " "))
	}
	// Everything after the command name belongs to the handler, including
	// flag-looking tokens such as --tui.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&flags.session, "session", "", "JSONL session branch file")
	cmd.Flags().StringVar(&flags.model, "model", "", "model driving the conversation")
	cmd.Flags().StringVar(&flags.out, "out", "", "append sent messages to this file instead of stdout")
	return cmd
}
