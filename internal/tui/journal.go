// Package tui is the terminal journal: one text input per field slot, with
// every edit handed to a draft controller that autosaves when typing stops.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"ipurpose/api/internal/draft"
	"ipurpose/api/internal/forms"
)

// FlushedMsg reports the outcome of one autosave.
type FlushedMsg struct {
	Fields forms.FieldMap
	Err    error
}

type saveState int

const (
	saveIdle saveState = iota
	savePending
	saveDone
	saveFailed
)

type slot struct {
	key   string
	label string
	step  int
	input textinput.Model
}

// Model edits one form. The controller owns the field map; the inputs only
// mirror it.
type Model struct {
	schema  forms.Schema
	ctrl    *draft.Controller
	slots   []slot
	focus   int
	state   saveState
	lastErr error
	width   int
}

func slotsFor(schema forms.Schema, values forms.FieldMap) []slot {
	var out []slot
	for stepIdx, step := range schema.Steps {
		for _, field := range step.Fields {
			switch field.Variant {
			case forms.VariantGrid:
				for _, row := range field.Rows {
					for _, col := range field.Columns {
						out = append(out, newSlot(forms.GridKey(field.Key, row, col), fmt.Sprintf("%s · %s / %s", field.Label, row, col), stepIdx, "", values))
					}
				}
			case forms.VariantCheckboxes:
				out = append(out, newSlot(field.Key, field.Label, stepIdx, strings.Join(field.Options, ", "), values))
			default:
				out = append(out, newSlot(field.Key, field.Label, stepIdx, field.Placeholder, values))
			}
		}
	}
	return out
}

func newSlot(key, label string, step int, placeholder string, values forms.FieldMap) slot {
	input := textinput.New()
	input.Prompt = "› "
	input.Placeholder = placeholder
	input.CharLimit = 2000
	input.Width = 72
	input.SetValue(values[key])
	return slot{key: key, label: label, step: step, input: input}
}

func NewJournal(schema forms.Schema, ctrl *draft.Controller) Model {
	m := Model{
		schema: schema,
		ctrl:   ctrl,
		slots:  slotsFor(schema, ctrl.Snapshot()),
	}
	if len(m.slots) > 0 {
		m.slots[0].input.Focus()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case FlushedMsg:
		if msg.Err != nil {
			m.state = saveFailed
			m.lastErr = msg.Err
		} else if m.ctrl.Pending() {
			m.state = savePending
		} else {
			m.state = saveDone
			m.lastErr = nil
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab, tea.KeyDown, tea.KeyEnter:
			m.moveFocus(1)
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.moveFocus(-1)
			return m, nil
		}
	}

	if len(m.slots) == 0 {
		return m, nil
	}
	current := &m.slots[m.focus]
	before := current.input.Value()
	var cmd tea.Cmd
	current.input, cmd = current.input.Update(msg)
	if after := current.input.Value(); after != before {
		m.ctrl.SetField(current.key, after)
		m.state = savePending
	}
	return m, cmd
}

func (m *Model) moveFocus(delta int) {
	if len(m.slots) == 0 {
		return
	}
	m.slots[m.focus].input.Blur()
	m.focus = (m.focus + delta + len(m.slots)) % len(m.slots)
	m.slots[m.focus].input.Focus()
}

// Focused returns the key of the slot being edited.
func (m Model) Focused() string {
	if len(m.slots) == 0 {
		return ""
	}
	return m.slots[m.focus].key
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.schema.Title))
	b.WriteString("\n")

	currentStep := -1
	for i, s := range m.slots {
		if s.step != currentStep {
			currentStep = s.step
			step := m.schema.Steps[s.step]
			b.WriteString(stepStyle.Render(step.Title))
			b.WriteString("\n")
			if step.Prompt != "" {
				b.WriteString(promptStyle.Render(step.Prompt))
				b.WriteString("\n")
			}
		}
		label := labelStyle
		if i == m.focus {
			label = focusedLabelStyle
		}
		b.WriteString(label.Render(s.label))
		b.WriteString("\n")
		b.WriteString(s.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString(helpStyle.Render("tab/↓ next • shift+tab/↑ previous • esc quit"))
	return docStyle.Render(b.String())
}

func (m Model) statusLine() string {
	completion := forms.CompletionPercent(m.schema, m.ctrl.Snapshot())
	progress := fmt.Sprintf("%d%% complete", completion)
	switch m.state {
	case savePending:
		return pendingStyle.Render("Saving… · "+progress) + "\n"
	case saveDone:
		return savedStyle.Render("Saved · "+progress) + "\n"
	case saveFailed:
		return errorStyle.Render(fmt.Sprintf("Save failed: %v", m.lastErr)) + " · " + progress + "\n"
	default:
		return labelStyle.Render(progress) + "\n"
	}
}

// Run opens the journal for one form until the user quits. Edits still
// inside the quiet period when the journal closes are dropped.
func Run(schema forms.Schema, initial forms.FieldMap, flusher draft.Flusher) error {
	var program *tea.Program
	ctrl := draft.New(flusher,
		draft.WithForm(schema.Key),
		draft.WithOnFlush(func(fields forms.FieldMap, err error) {
			if program != nil {
				program.Send(FlushedMsg{Fields: fields, Err: err})
			}
		}),
	)
	ctrl.Load(initial)
	defer ctrl.Close()

	program = tea.NewProgram(NewJournal(schema, ctrl), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
