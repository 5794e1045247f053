package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/navid4x/ghesta/internal/jalali"
	"github.com/navid4x/ghesta/internal/models"
	"github.com/navid4x/ghesta/internal/syncer"
)

const (
	formFieldCreditor = iota
	formFieldDescription
	formFieldAmount
	formFieldStart
	formFieldCount
	formFieldRecurrence
	formFieldReminder
	formFieldNotes
	formFieldMax
)

var recurrenceOptions = []models.Recurrence{
	models.RecurrenceMonthly,
	models.RecurrenceWeekly,
	models.RecurrenceDaily,
	models.RecurrenceYearly,
	models.RecurrenceNever,
}

type formState struct {
	editID        string
	inputs        []textinput.Model
	focus         int
	recurrenceIdx int
	err           string
}

func newFormState() formState {
	creditor := textinput.New()
	creditor.Placeholder = "creditor"
	creditor.Width = 40

	description := textinput.New()
	description.Placeholder = "description"
	description.Width = 40

	amount := textinput.New()
	amount.Placeholder = "total amount, e.g. ۱۲٬۰۰۰٬۰۰۰ or 12000000"
	amount.Width = 40

	start := textinput.New()
	start.Placeholder = "start date YYYY/MM/DD (Jalali)"
	start.Width = 40

	count := textinput.New()
	count.Placeholder = "installment count"
	count.Width = 40

	reminder := textinput.New()
	reminder.Placeholder = "reminder lead days (default 3)"
	reminder.Width = 40

	notes := textinput.New()
	notes.Placeholder = "notes (optional)"
	notes.Width = 40

	f := formState{
		inputs: []textinput.Model{creditor, description, amount, start, count, reminder, notes},
	}
	f.inputs[0].Focus()
	return f
}

func editFormState(row installmentRow) formState {
	f := newFormState()
	f.editID = row.id
	f.inputs[0].SetValue(row.creditor)
	f.inputs[1].SetValue(row.description)
	f.inputs[2].SetValue(strconv.FormatInt(row.totalAmount, 10))
	f.inputs[3].SetValue(row.startJalali)
	f.inputs[4].SetValue(strconv.Itoa(row.count))
	f.inputs[5].SetValue(strconv.Itoa(row.reminder))
	f.inputs[6].SetValue(row.notes)
	for i, option := range recurrenceOptions {
		if option == row.recurrence {
			f.recurrenceIdx = i
		}
	}
	return f
}

// inputIndex maps a focus position to its textinput slot; the recurrence
// selector sits between count and reminder and has no input.
func inputIndex(focus int) (int, bool) {
	switch {
	case focus < formFieldRecurrence:
		return focus, true
	case focus == formFieldRecurrence:
		return 0, false
	default:
		return focus - 1, true
	}
}

func (f formState) onLastField() bool {
	return f.focus == formFieldMax-1
}

func (f *formState) focusNext() {
	f.setFocus((f.focus + 1) % formFieldMax)
}

func (f *formState) focusPrev() {
	f.setFocus((f.focus + formFieldMax - 1) % formFieldMax)
}

func (f *formState) setFocus(focus int) {
	f.focus = focus
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	if idx, ok := inputIndex(f.focus); ok {
		f.inputs[idx].Focus()
	}
}

func (f formState) focusCmd() tea.Cmd {
	return textinput.Blink
}

func (f formState) update(msg tea.Msg) (formState, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && f.focus == formFieldRecurrence {
		switch key.String() {
		case "left", "h":
			f.recurrenceIdx = (f.recurrenceIdx + len(recurrenceOptions) - 1) % len(recurrenceOptions)
			return f, nil
		case "right", "l", " ":
			f.recurrenceIdx = (f.recurrenceIdx + 1) % len(recurrenceOptions)
			return f, nil
		}
		return f, nil
	}

	idx, ok := inputIndex(f.focus)
	if !ok {
		return f, nil
	}
	var cmd tea.Cmd
	f.inputs[idx], cmd = f.inputs[idx].Update(msg)
	return f, cmd
}

func (f formState) recurrence() models.Recurrence {
	return recurrenceOptions[f.recurrenceIdx]
}

func (f formState) params(userID string) (syncer.CreateParams, error) {
	creditor := strings.TrimSpace(f.inputs[0].Value())
	if creditor == "" {
		return syncer.CreateParams{}, fmt.Errorf("creditor is required")
	}

	amount, err := jalali.ParseCurrency(strings.TrimSpace(f.inputs[2].Value()))
	if err != nil {
		return syncer.CreateParams{}, fmt.Errorf("total amount: %w", err)
	}

	start := strings.TrimSpace(f.inputs[3].Value())
	if _, err := jalali.Parse(start); err != nil {
		return syncer.CreateParams{}, fmt.Errorf("start date: %w", err)
	}

	recurrence := f.recurrence()
	count := 1
	if recurrence != models.RecurrenceNever {
		count, err = strconv.Atoi(strings.TrimSpace(f.inputs[4].Value()))
		if err != nil || count < 1 {
			return syncer.CreateParams{}, fmt.Errorf("installment count must be a positive number")
		}
	}

	reminder := 3
	if raw := strings.TrimSpace(f.inputs[5].Value()); raw != "" {
		reminder, err = strconv.Atoi(raw)
		if err != nil || reminder < 0 {
			return syncer.CreateParams{}, fmt.Errorf("reminder days must be a non-negative number")
		}
	}

	return syncer.CreateParams{
		UserID:       userID,
		Creditor:     creditor,
		Description:  strings.TrimSpace(f.inputs[1].Value()),
		TotalAmount:  amount,
		StartJalali:  start,
		Count:        count,
		Recurrence:   recurrence,
		ReminderDays: reminder,
		Notes:        strings.TrimSpace(f.inputs[6].Value()),
	}, nil
}
