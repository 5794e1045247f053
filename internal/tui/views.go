package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/navid4x/ghesta/internal/jalali"
	"github.com/navid4x/ghesta/internal/models"
	"github.com/navid4x/ghesta/internal/syncer"
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F47A60")).
			Padding(1, 2)
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD54A")).
			Bold(true)
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Bold(true)
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5CCB76")).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F15B5B")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD54A"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8D88A8"))
	rowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	selectedRow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true).Underline(true)
	deletedRow   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B6580")).Strikethrough(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F15B5B"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8D88A8"))
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.screen {
	case screenForm:
		body = m.renderForm()
	case screenFailures:
		body = m.renderFailures()
	default:
		body = m.renderList()
	}

	frame := frameStyle
	if m.width > 0 {
		frame = frame.Width(max(40, m.width-frame.GetHorizontalBorderSize()))
	}
	return frame.Render(body)
}

func (m model) renderStatusLine() string {
	state := offlineStyle.Render("offline")
	if m.reachable {
		state = onlineStyle.Render("online")
	}
	parts := []string{labelStyle.Render("remote: ") + state}

	if m.syncing {
		parts = append(parts, m.spin.View()+"syncing")
	} else if m.pendingOps > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d pending", m.pendingOps)))
	} else {
		parts = append(parts, dimStyle.Render("synced"))
	}

	if len(m.failures) > 0 {
		parts = append(parts, errStyle.Render(fmt.Sprintf("%d failed (press f)", len(m.failures))))
	}
	if m.fromCache {
		parts = append(parts, dimStyle.Render("cached"))
	}
	return strings.Join(parts, dimStyle.Render("  ·  "))
}

func (m model) renderList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ghesta — اقساط"))
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString(m.spin.View() + "loading installments...\n")
	} else if m.loadErr != "" {
		b.WriteString(errStyle.Render("load failed: "+m.loadErr) + "\n")
	} else if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("no installments yet — press n to add one") + "\n")
	} else {
		visible := m.visibleRows()
		end := m.offset + visible
		if end > len(m.rows) {
			end = len(m.rows)
		}
		for i := m.offset; i < end; i++ {
			b.WriteString(m.renderRow(i))
			b.WriteString("\n")
		}
		if len(m.rows) > visible {
			b.WriteString(dimStyle.Render(fmt.Sprintf("%d–%d of %d", m.offset+1, end, len(m.rows))) + "\n")
		}
	}

	if m.paneOpen {
		if row, ok := m.currentRow(); ok {
			b.WriteString("\n")
			b.WriteString(m.renderPayments(row))
		}
	}

	if m.feedback != "" {
		b.WriteString("\n" + warnStyle.Render(m.feedback))
	}
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("↑/↓ move · enter payments · space toggle paid · n new · e edit · d delete · u restore · s sync · r reload · q quit"))
	return b.String()
}

func (m model) renderRow(i int) string {
	row := m.rows[i]

	progress := fmt.Sprintf("%s/%s",
		jalali.ToPersianDigits(fmt.Sprintf("%d", row.paidCount)),
		jalali.ToPersianDigits(fmt.Sprintf("%d", row.count)))
	next := "—"
	if row.nextDue != "" {
		next = jalali.ToPersianDigits(row.nextDue)
	}
	line := fmt.Sprintf("%-24s %16s ریال  %s  سررسید بعدی %s",
		truncate(row.creditor, 24),
		jalali.FormatCurrency(row.totalAmount),
		progress,
		next)
	if row.deleted {
		line += "  (deleted)"
		if row.deletedAt != nil {
			line += dimStyle.Render("  restorable until " + syncer.ExpiresAt(*row.deletedAt).Format("2006-01-02"))
		}
	}

	style := rowStyle
	if row.deleted {
		style = deletedRow
	}
	if i == m.cursor {
		prefix := lipgloss.NewStyle().Foreground(lipgloss.Color("#F47A60")).Bold(true).Render("> ")
		return prefix + selectedRow.Render(line)
	}
	return "  " + style.Render(line)
}

func (m model) renderPayments(row installmentRow) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(row.creditor))
	if row.description != "" {
		b.WriteString(dimStyle.Render("  " + row.description))
	}
	b.WriteString("\n")
	for i, p := range row.payments {
		if p.DeletedAt != nil {
			continue
		}
		mark := "[ ]"
		if p.IsPaid {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s  %s ریال", mark,
			jalali.ToPersianDigits(p.DueDateJalali),
			jalali.FormatCurrency(p.Amount))
		if p.IsPaid && p.PaidAt != nil {
			line += dimStyle.Render("  paid " + p.PaidAt.Format("2006-01-02"))
		}
		if i == m.payCursor {
			b.WriteString(selectedRow.Render(line))
		} else {
			b.WriteString(rowStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) renderForm() string {
	var b strings.Builder
	if m.form.editID != "" {
		b.WriteString(titleStyle.Render("edit installment"))
	} else {
		b.WriteString(titleStyle.Render("new installment"))
	}
	b.WriteString("\n\n")

	labels := []string{"creditor", "description", "total amount", "start date", "count", "recurrence", "reminder days", "notes"}
	for focus, label := range labels {
		marker := "  "
		if focus == m.form.focus {
			marker = lipgloss.NewStyle().Foreground(lipgloss.Color("#F47A60")).Bold(true).Render("> ")
		}
		b.WriteString(marker + labelStyle.Render(fmt.Sprintf("%-14s", label)))
		if focus == formFieldRecurrence {
			b.WriteString(m.renderRecurrenceSelector())
		} else if idx, ok := inputIndex(focus); ok {
			b.WriteString(m.form.inputs[idx].View())
		}
		b.WriteString("\n")
	}

	if m.form.err != "" {
		b.WriteString("\n" + errStyle.Render(m.form.err))
	}
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("tab next field · ←/→ recurrence · enter on last field saves · esc cancels"))
	return b.String()
}

func (m model) renderRecurrenceSelector() string {
	var parts []string
	for i, option := range recurrenceOptions {
		label := recurrenceLabel(option)
		if i == m.form.recurrenceIdx {
			parts = append(parts, selectedRow.Render("["+label+"]"))
		} else {
			parts = append(parts, dimStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func recurrenceLabel(r models.Recurrence) string {
	switch r {
	case models.RecurrenceDaily:
		return "daily"
	case models.RecurrenceWeekly:
		return "weekly"
	case models.RecurrenceMonthly:
		return "monthly"
	case models.RecurrenceYearly:
		return "yearly"
	default:
		return "once"
	}
}

func (m model) renderFailures() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("permanently failed operations"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("these changes could not reach the remote store after repeated retries"))
	b.WriteString("\n\n")

	for i, op := range m.failures {
		line := fmt.Sprintf("%-16s %s  queued %s  %d attempts",
			string(op.Kind), op.EntityID, op.CreatedAt.Format("2006-01-02 15:04"), op.RetryCount)
		if i == m.failCursor {
			b.WriteString(selectedRow.Render("> " + line))
		} else {
			b.WriteString(rowStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("enter dismiss · esc back"))
	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
