package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/charlie0129/vetcalc/pkg/calculator"
	"github.com/charlie0129/vetcalc/pkg/version"
)

// annotationOffline marks commands that work without the daemon.
const annotationOffline = "vetcalc/offline"

type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
)

func addOutputFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "output", "o", string(outputTable), "output format (table, json, yaml)")
}

// printOutput writes v as JSON or YAML, or calls table for the human format.
func printOutput(w io.Writer, format string, v any, table func()) error {
	switch outputFormat(format) {
	case outputTable, "":
		table()
		return nil
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// parseVars reads repeated key=value flags, keeping their order.
func parseVars(pairs []string) ([]string, map[string]string, error) {
	keys := make([]string, 0, len(pairs))
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, nil, fmt.Errorf("invalid variable %q, expected key=value", p)
		}
		if _, dup := values[k]; dup {
			return nil, nil, fmt.Errorf("variable %q given twice", k)
		}
		keys = append(keys, k)
		values[k] = v
	}
	return keys, values, nil
}

// parseDraftVars reads repeated "name:unit" flags.
func parseDraftVars(specs []string) ([]calculator.DraftVariable, error) {
	vars := make([]calculator.DraftVariable, 0, len(specs))
	for _, s := range specs {
		name, unit, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("invalid variable %q, expected name:unit", s)
		}
		vars = append(vars, calculator.DraftVariable{Name: name, Unit: unit})
	}
	return vars, nil
}

func getVersion() (string, string, error) {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

func printResult(cmd *cobra.Command, r calculator.Result) {
	switch r.Kind {
	case calculator.ResultNumber:
		out := r.Display
		if r.Unit != "" {
			out += " " + r.Unit
		}
		cmd.Println(color.New(color.Bold, color.FgGreen).Sprint(out))
	case calculator.ResultText:
		cmd.Println(color.New(color.Bold).Sprint(r.Display))
	default:
		cmd.Println(color.New(color.Bold, color.FgRed).Sprint(r.Display))
	}
}

func typeText(t calculator.Type) string {
	if t == calculator.TypeCustom {
		return color.CyanString(string(t))
	}
	return string(t)
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
