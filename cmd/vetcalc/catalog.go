package main

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/vetcalc/pkg/calculator"
	"github.com/charlie0129/vetcalc/pkg/client"
	"github.com/charlie0129/vetcalc/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewListCommand() *cobra.Command {
	var (
		opts   client.ListOptions
		typ    string
		format string
	)

	cmd := &cobra.Command{
		Use:     "list [query]",
		Aliases: []string{"ls"},
		Short:   "List calculators",
		GroupID: gCatalog,
		Long: `List calculators, grouped by their group.

An optional query matches names, descriptions and groups, ignoring case.`,
		Example: `  vetcalc list
  vetcalc list potassium
  vetcalc list --group Converters
  vetcalc list --type custom -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Query = args[0]
			}
			opts.Type = calculator.Type(typ)

			summaries, err := apiClient.ListCalculators(opts)
			if err != nil {
				return err
			}

			return printOutput(cmd.OutOrStdout(), format, summaries, func() {
				if len(summaries) == 0 {
					cmd.Println("No calculators found.")
					return
				}
				cmd.Print(renderTable([]string{"GROUP", "ID", "NAME", "TYPE"}, summaryRows(summaries)))
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Group, "group", "g", "", "only list calculators of this group")
	f.StringVarP(&typ, "type", "t", "", "only list calculators of this type (builtin, custom)")
	addOutputFlag(cmd, &format)

	return cmd
}

// summaryRows sorts summaries by group, keeping catalog order inside a
// group, and shows each group name only on its first row.
func summaryRows(summaries []calculator.Summary) [][]string {
	sorted := append([]calculator.Summary(nil), summaries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Group < sorted[j].Group })

	rows := make([][]string, len(sorted))
	group := ""
	for i, s := range sorted {
		g := ""
		if i == 0 || s.Group != group {
			g = s.Group
			group = s.Group
		}
		rows[i] = []string{g, s.ID, s.Name, string(s.Type)}
	}
	return rows
}

func NewShowCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "show [id]",
		Short:   "Show a calculator",
		GroupID: gCatalog,
		Long: `Show a calculator: its inputs, formula and help text.

Without an id, the selected calculator is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				calc *calculator.Calculator
				err  error
			)
			if len(args) == 1 {
				calc, err = apiClient.GetCalculator(args[0])
			} else {
				calc, err = apiClient.GetSelection()
			}
			if err != nil {
				return err
			}

			return printOutput(cmd.OutOrStdout(), format, calc, func() {
				printCalculator(cmd, *calc)
			})
		},
	}

	addOutputFlag(cmd, &format)

	return cmd
}

func printCalculator(cmd *cobra.Command, calc calculator.Calculator) {
	cmd.Println(bold("%s", calc.Name) + " (" + calc.ID + ")")
	cmd.Printf("  Group: %s\n", calc.Group)
	cmd.Printf("  Type: %s\n", typeText(calc.Type))
	if calc.Description != "" {
		cmd.Printf("  Description: %s\n", calc.Description)
	}
	if len(calc.Variables) > 0 {
		cmd.Println("  Inputs:")
		for _, v := range calc.Variables {
			cmd.Printf("    %s (%s) [%s]\n", v.Name, v.Unit, color.YellowString(v.Key))
		}
	}
	if calc.ResultUnit != "" {
		cmd.Printf("  Result unit: %s\n", calc.ResultUnit)
	}
	cmd.Println("  Formula:")
	for _, line := range strings.Split(strings.TrimSpace(calc.Formula), "\n") {
		cmd.Println("    " + line)
	}
	if calc.HelpText != "" {
		cmd.Println()
		cmd.Println(bold("Help:"))
		cmd.Println(calc.HelpText)
	}
}

func NewGroupsCommand() *cobra.Command {
	var (
		builtin bool
		format  string
	)

	cmd := &cobra.Command{
		Use:     "groups",
		Short:   "List calculator groups",
		GroupID: gCatalog,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := apiClient.Groups(builtin)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), format, groups, func() {
				for _, g := range groups {
					cmd.Println(g)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&builtin, "builtin", false, "only list the groups of built-in calculators")
	addOutputFlag(cmd, &format)

	return cmd
}

func NewSelectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "select [id]",
		Short:   "Select a calculator",
		GroupID: gCatalog,
		Long: `Select a calculator.

The selected calculator is used by 'vetcalc show' and 'vetcalc calc' when no id is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			calc, err := apiClient.Select(args[0])
			if err != nil {
				return err
			}
			logrus.Infof("selected %s (%s)", calc.Name, calc.ID)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear the selection",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := apiClient.ClearSelection(); err != nil {
				return err
			}
			logrus.Info("selection cleared")
			return nil
		},
	})

	return cmd
}

func NewEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "events",
		Short:   "Follow catalog changes",
		GroupID: gAdvanced,
		Long:    `Print catalog events (additions, deletions, imports, reloads, selection changes) as the daemon publishes them.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, err := apiClient.Events(ctx)
			if err != nil {
				return err
			}
			for ev := range ch {
				cmd.Printf("%s %s\n", bold("%s", ev.Name), string(ev.Data))
			}
			return nil
		},
	}
}
