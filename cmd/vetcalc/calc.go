package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

func NewCalcCommand() *cobra.Command {
	var (
		vars        []string
		interactive bool
		format      string
	)

	cmd := &cobra.Command{
		Use:     "calc [id]",
		Aliases: []string{"run"},
		Short:   "Run a calculator",
		GroupID: gCatalog,
		Long: `Run a calculator with the given inputs.

Inputs are passed as key=value, where key is the input key shown by 'vetcalc show'.
Without an id, the selected calculator is used.

With --interactive, vetcalc shows a form and calculates locally. Press enter to
calculate, tab to move between fields and '?' to show or hide the help text.
When the input is not a terminal, it asks for every input in turn instead.`,
		Example: `  vetcalc calc builtin-kg-to-lbs --var kg=12.5
  vetcalc calc builtin-anion-gap --var Na=145 --var Cl=110 --var HCO3=24
  vetcalc calc builtin-drip-rate-calculator -i`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, inputs, err := parseVars(vars)
			if err != nil {
				return err
			}

			var calc *calculator.Calculator
			if len(args) == 1 {
				calc, err = apiClient.GetCalculator(args[0])
			} else {
				calc, err = apiClient.GetSelection()
			}
			if err != nil {
				return err
			}

			if interactive {
				return runInteractive(cmd, *calc, inputs)
			}

			result, err := apiClient.Evaluate(calc.ID, inputs)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), format, result, func() {
				printResult(cmd, *result)
			})
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&vars, "var", "v", nil, "input as key=value, can be repeated")
	f.BoolVarP(&interactive, "interactive", "i", false, "ask for the inputs and calculate locally")
	addOutputFlag(cmd, &format)

	return cmd
}

// runInteractive drives a Form: a terminal UI when the input is a terminal,
// line prompts otherwise. Values given as flags prefill the form.
func runInteractive(cmd *cobra.Command, calc calculator.Calculator, prefill map[string]string) error {
	form := calculator.NewForm(calc)
	form.OnTransition = func(from, to calculator.FormState) {
		logrus.WithFields(logrus.Fields{"from": from, "to": to}).Trace("form state changed")
	}
	for k, v := range prefill {
		if err := form.SetInput(k, v); err != nil {
			return err
		}
	}

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p := tea.NewProgram(newCalcModel(form), tea.WithInput(f), tea.WithOutput(cmd.OutOrStdout()))
		if _, err := p.Run(); err != nil {
			return pkgerrors.Wrap(err, "interactive form failed")
		}
		// Keep the last result on screen after the UI is gone.
		if r, ok := form.Result(); ok {
			printResult(cmd, r)
		}
		return nil
	}
	return runPrompts(cmd, form)
}

// runPrompts asks for every missing field in turn until a calculation
// succeeds.
func runPrompts(cmd *cobra.Command, form *calculator.Form) error {
	calc := form.Calculator()
	in := bufio.NewReader(cmd.InOrStdin())
	cmd.Println(bold("%s", calc.Name))
	if calc.Description != "" {
		cmd.Println(calc.Description)
	}

	for {
		for _, v := range form.Missing() {
			text, err := prompt(cmd, in, form, fmt.Sprintf("%s (%s): ", v.Name, v.Unit))
			if err != nil {
				return err
			}
			if err := form.SetInput(v.Key, text); err != nil {
				return err
			}
		}

		result := form.Submit()
		printResult(cmd, result)
		if result.OK() {
			return nil
		}

		// Any failed calculation asks again for every field, keeping the old
		// text as the default.
		for _, v := range calc.Variables {
			old := form.Value(v.Key)
			text, err := prompt(cmd, in, form, fmt.Sprintf("%s (%s) [%s]: ", v.Name, v.Unit, old))
			if err != nil {
				return err
			}
			if text == "" {
				text = old
			}
			if err := form.SetInput(v.Key, text); err != nil {
				return err
			}
		}
	}
}

// prompt reads one line. A lone '?' toggles help and asks again.
func prompt(cmd *cobra.Command, in *bufio.Reader, form *calculator.Form, label string) (string, error) {
	for {
		cmd.Print(label)
		line, err := in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return "", fmt.Errorf("input closed")
			}
			return "", err
		}
		line = strings.TrimSpace(line)
		if line != "?" {
			return line, nil
		}
		if form.ToggleHelp() {
			cmd.Println(form.Calculator().HelpText)
		} else if form.Calculator().HelpText == "" {
			cmd.Println("No help for this calculator.")
		}
	}
}

func NewEvalCommand() *cobra.Command {
	var (
		vars        []string
		formulaText string
		resultUnit  string
		format      string
	)

	cmd := &cobra.Command{
		Use:         "eval",
		Short:       "Evaluate a formula without the daemon",
		GroupID:     gAuthoring,
		Annotations: map[string]string{annotationOffline: "true"},
		Long: `Evaluate a formula body without the daemon.

Every --var names one formula parameter, in order, with its value. Use this to
try a formula before adding it with 'vetcalc add'.`,
		Example: `  vetcalc eval --formula 'return weight * 2.20462' --var weight=10
  vetcalc eval --formula 'if (k < 3.5) { return "low" } return "ok"' --var k=3.1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, inputs, err := parseVars(vars)
			if err != nil {
				return err
			}

			calc := calculator.Calculator{
				ID:         "eval",
				Name:       "eval",
				Formula:    formulaText,
				ResultUnit: resultUnit,
				Type:       calculator.TypeCustom,
			}
			for _, k := range keys {
				calc.Variables = append(calc.Variables, calculator.Variable{Name: k, Key: k})
			}

			prog := calculator.Prepare(calc)
			if err := prog.Err(); err != nil {
				return err
			}
			if err := prog.Validate(); err != nil {
				logrus.Warnf("formula would be rejected by 'vetcalc add': %v", err)
			}

			result := prog.Evaluate(inputs)
			return printOutput(cmd.OutOrStdout(), format, result, func() {
				printResult(cmd, result)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&formulaText, "formula", "f", "", "formula body")
	f.StringArrayVarP(&vars, "var", "v", nil, "parameter as key=value, can be repeated")
	f.StringVarP(&resultUnit, "unit", "u", "", "result unit")
	addOutputFlag(cmd, &format)
	_ = cmd.MarkFlagRequired("formula")

	return cmd
}
