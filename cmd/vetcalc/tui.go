package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle   = lipgloss.NewStyle().Italic(true).Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Width(28)
	focusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	numberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	textStyle   = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// calcModel is the terminal form of 'vetcalc calc -i'. Every keystroke goes
// through the calculator.Form, so an edit clears the shown result.
type calcModel struct {
	form   *calculator.Form
	vars   []calculator.Variable
	inputs []textinput.Model
	focus  int
	quit   bool
}

func newCalcModel(form *calculator.Form) calcModel {
	calc := form.Calculator()
	m := calcModel{
		form:   form,
		vars:   calc.Variables,
		inputs: make([]textinput.Model, len(calc.Variables)),
	}
	for i, v := range calc.Variables {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = v.Unit
		ti.CharLimit = 64
		ti.Width = 20
		ti.SetValue(form.Value(v.Key))
		m.inputs[i] = ti
	}
	m.setFocus(0)
	return m
}

func (m *calcModel) setFocus(i int) {
	if len(m.inputs) == 0 {
		return
	}
	m.focus = (i + len(m.inputs)) % len(m.inputs)
	for j := range m.inputs {
		if j == m.focus {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

func (m calcModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m calcModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateFocused(msg)
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.quit = true
		return m, tea.Quit
	case "?":
		m.form.ToggleHelp()
		return m, nil
	case "tab", "down":
		m.setFocus(m.focus + 1)
		return m, nil
	case "shift+tab", "up":
		m.setFocus(m.focus - 1)
		return m, nil
	case "enter":
		m.form.Submit()
		return m, nil
	}
	return m.updateFocused(msg)
}

func (m calcModel) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	before := m.inputs[m.focus].Value()
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if after := m.inputs[m.focus].Value(); after != before {
		// The key always belongs to the form.
		_ = m.form.SetInput(m.vars[m.focus].Key, after)
	}
	return m, cmd
}

func (m calcModel) View() string {
	if m.quit {
		return ""
	}
	calc := m.form.Calculator()

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(calc.Name) + "\n")
	if calc.Description != "" {
		sb.WriteString(mutedStyle.Render(calc.Description) + "\n")
	}
	if m.form.HelpVisible() {
		sb.WriteString(helpStyle.Render(calc.HelpText) + "\n")
	}
	sb.WriteString("\n")

	for i, v := range m.vars {
		label := fmt.Sprintf("%s (%s)", v.Name, v.Unit)
		if i == m.focus {
			label = focusStyle.Render(label)
		}
		sb.WriteString(labelStyle.Render(label) + " " + m.inputs[i].View() + "\n")
	}

	if r, ok := m.form.Result(); ok {
		sb.WriteString("\n" + renderResult(r) + "\n")
	}

	hint := "enter calculate • tab next field • esc quit"
	if calc.HelpText != "" {
		hint += " • ? help"
	}
	sb.WriteString("\n" + mutedStyle.Render(hint) + "\n")
	return sb.String()
}

func renderResult(r calculator.Result) string {
	switch r.Kind {
	case calculator.ResultNumber:
		out := r.Display
		if r.Unit != "" {
			out += " " + r.Unit
		}
		return numberStyle.Render(out)
	case calculator.ResultText:
		return textStyle.Render(r.Display)
	default:
		return errorStyle.Render(r.Display)
	}
}
