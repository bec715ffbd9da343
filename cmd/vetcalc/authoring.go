package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

func NewAddCommand() *cobra.Command {
	var (
		draft       calculator.Draft
		vars        []string
		file        string
		formulaFile string
	)

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a custom calculator",
		GroupID: gAuthoring,
		Long: `Add a custom calculator.

The formula is the body of a function whose parameters are the inputs, in
order. Input keys are derived from the input names: lowercase, spaces become
underscores, other characters are dropped. It must return a number or a text.
The formula is tried once with dummy inputs before it is accepted.

A calculator can also be read from a JSON or YAML file with --file ('-' reads
standard input). Flags given next to --file override the file.`,
		Example: `  vetcalc add --name "Shock dose" --group Emergency \
    --var "Body weight:kg" --formula 'return body_weight * 90' --unit ml
  vetcalc add --file shock-dose.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := calculator.Draft{}
			if file != "" {
				var err error
				d, err = readDraft(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
			}

			f := cmd.Flags()
			if f.Changed("name") {
				d.Name = draft.Name
			}
			if f.Changed("description") {
				d.Description = draft.Description
			}
			if f.Changed("group") {
				d.Group = draft.Group
			}
			if f.Changed("unit") {
				d.ResultUnit = draft.ResultUnit
			}
			if f.Changed("help-text") {
				d.HelpText = draft.HelpText
			}
			if f.Changed("formula") {
				d.Formula = draft.Formula
			}
			if formulaFile != "" {
				b, err := os.ReadFile(formulaFile)
				if err != nil {
					return fmt.Errorf("failed to read formula: %w", err)
				}
				d.Formula = string(b)
			}
			if len(vars) > 0 {
				dv, err := parseDraftVars(vars)
				if err != nil {
					return err
				}
				d.Variables = dv
			}

			calc, err := apiClient.AddCalculator(d)
			if err != nil {
				return err
			}

			logrus.Infof("added %s (%s)", calc.Name, calc.ID)
			for _, v := range calc.Variables {
				cmd.Printf("  %s (%s) -> %s\n", v.Name, v.Unit, bold("%s", v.Key))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&draft.Name, "name", "", "calculator name")
	f.StringVar(&draft.Description, "description", "", "calculator description")
	f.StringVar(&draft.Group, "group", "", "group to list the calculator under")
	f.StringVarP(&draft.Formula, "formula", "f", "", "formula body")
	f.StringVar(&formulaFile, "formula-file", "", "read the formula body from a file")
	f.StringVarP(&draft.ResultUnit, "unit", "u", "", "result unit")
	f.StringVar(&draft.HelpText, "help-text", "", "help text")
	f.StringArrayVarP(&vars, "var", "v", nil, "input as name:unit, can be repeated, in parameter order")
	f.StringVar(&file, "file", "", "read the calculator from a JSON or YAML file")

	return cmd
}

// readDraft decodes a draft from JSON or YAML. YAML is decoded generically
// and re-encoded so the JSON field names apply to both.
func readDraft(stdin io.Reader, path string) (calculator.Draft, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return calculator.Draft{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return calculator.Draft{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	b, err := json.Marshal(generic)
	if err != nil {
		return calculator.Draft{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var d calculator.Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return calculator.Draft{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return d, nil
}

func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [id]...",
		Aliases: []string{"rm"},
		Short:   "Delete custom calculators",
		GroupID: gAuthoring,
		Long:    `Delete custom calculators. Built-in calculators cannot be deleted.`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			for _, id := range args {
				ret, err := apiClient.DeleteCalculator(id)
				if err != nil {
					return err
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
			}
			return nil
		},
	}
}

func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "import [file]",
		Short:   "Import custom calculators",
		GroupID: gAuthoring,
		Long: `Import custom calculators from an export file ('-' reads standard input).

Calculators whose id already exists, and records that are not custom
calculators, are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			n, err := apiClient.Import(data)
			if err != nil {
				return err
			}
			logrus.Infof("imported %d calculator(s)", n)
			return nil
		},
	}
}

func NewExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Export custom calculators",
		GroupID: gAuthoring,
		Long: `Export all custom calculators to a JSON file.

By default the file is written to the current directory under a name carrying
today's date. Use --file - to write to standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, filename, err := apiClient.Export()
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if output == "" {
				output = filepath.Base(filename)
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			logrus.Infof("exported custom calculators to %s", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "file", "", "file to write to")

	return cmd
}
