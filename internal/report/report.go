package report

import (
	"fmt"
	"io"
	"strconv"

	"Go2NetProfile/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Header is the column order shared by every summary output.
var Header = []string{"Activity", "Unique_Flows", "Total_Packets", "Total_Bytes"}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// Row formats one summary in Header order.
func Row(s model.FlowSummary) []string {
	return []string{
		s.Activity,
		strconv.FormatUint(s.UniqueFlows, 10),
		strconv.FormatUint(s.TotalPackets, 10),
		strconv.FormatUint(s.TotalBytes, 10),
	}
}

// Table renders the summaries as a bordered terminal table.
func Table(summaries []model.FlowSummary) string {
	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = Row(s)
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))).
		Headers(Header...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
	return t.Render()
}

// Print writes a titled summary table to w.
func Print(w io.Writer, run model.Run, summaries []model.FlowSummary) error {
	title := titleStyle.Render(fmt.Sprintf("Activity summary (run %s)", run.ID))
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, title, Table(summaries)))
	return err
}
