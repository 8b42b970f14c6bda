package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kmoselund/qpermute/pkg/search"
)

// =============================================================================
// Watch - Live Search View
// =============================================================================

// statusInterval is how often the watch view polls the driver for status.
const statusInterval = 250 * time.Millisecond

// statusTickMsg triggers a status poll.
type statusTickMsg time.Time

// searchDoneMsg carries the result of the search goroutine.
type searchDoneMsg struct {
	summary search.Summary
	err     error
}

// watchModel is the bubbletea model for the live search view. Quitting the
// view cancels the search; the final summary is printed after the program
// exits.
type watchModel struct {
	driver   *search.Driver
	cancel   context.CancelFunc
	status   search.Status
	summary  search.Summary
	err      error
	start    time.Time
	width    int
	done     bool
	stopping bool
}

// newWatchModel creates a watch model polling driver. cancel stops the
// running search when the user quits the view.
func newWatchModel(driver *search.Driver, cancel context.CancelFunc) watchModel {
	return watchModel{
		driver: driver,
		cancel: cancel,
		status: driver.Status(),
		start:  time.Now(),
		width:  80,
	}
}

// statusTick schedules the next status poll.
func statusTick() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

// Init starts the poll loop.
func (m watchModel) Init() tea.Cmd {
	return statusTick()
}

// Update handles messages.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done && !m.stopping {
				m.stopping = true
				m.cancel()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case statusTickMsg:
		if m.done {
			return m, nil
		}
		m.status = m.driver.Status()
		return m, statusTick()

	case searchDoneMsg:
		m.done = true
		m.summary = msg.summary
		m.err = msg.err
		m.status = m.driver.Status()
		return m, tea.Quit
	}

	return m, nil
}

// View renders the live status and the solutions found so far.
func (m watchModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n  " + StyleTitle.Render("qpermute search") + "\n\n")

	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(10)

	state := "running"
	if m.stopping {
		state = "stopping"
	}
	b.WriteString("  " + keyStyle.Render("State") + StyleValue.Render(state) + "\n")
	b.WriteString("  " + keyStyle.Render("Orders") +
		StyleNumber.Render(fmt.Sprintf("%d/%d", m.status.OrdersTried, m.status.Orders)) + "\n")
	b.WriteString("  " + keyStyle.Render("Tested") +
		StyleNumber.Render(fmt.Sprintf("%d", m.status.Tested)) + "\n")
	b.WriteString("  " + keyStyle.Render("Elapsed") +
		StyleValue.Render(time.Since(m.start).Round(time.Second).String()) + "\n")
	if len(m.status.Current) > 0 {
		b.WriteString("  " + keyStyle.Render("Placing") +
			StyleHighlight.Render(strings.Join(m.status.Current, " "+iconArrow+" ")) + "\n")
	}
	b.WriteString("\n")

	if len(m.status.Solutions) > 0 {
		b.WriteString(m.solutionsTable())
		b.WriteString("\n")
	}

	b.WriteString("\n  " + StyleDim.Render("press q to stop the search") + "\n")
	return b.String()
}

// solutionsTable renders the solutions found so far as a bordered table.
func (m watchModel) solutionsTable() string {
	rows := make([][]string, 0, len(m.status.Solutions))
	for i, sol := range m.status.Solutions {
		newick := truncate(sol.Newick, m.width-22)
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), sol.Hash, newick})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Hash", "Newick").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			switch col {
			case 1:
				return lipgloss.NewStyle().Foreground(colorCyan)
			case 2:
				return lipgloss.NewStyle().Foreground(colorWhite)
			}
			return lipgloss.NewStyle().Foreground(colorDim)
		})

	return t.Render()
}

// truncate shortens s to max runes, ending with an ellipsis when cut.
func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// runWatch runs the search under the live view. It returns the search
// summary; a search the user stopped from the view returns without error,
// while an outer cancellation (such as SIGINT) is propagated.
func runWatch(ctx context.Context, driver *search.Driver) (search.Summary, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newWatchModel(driver, cancel))
	go func() {
		sum, err := driver.Search(wctx)
		p.Send(searchDoneMsg{summary: sum, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return search.Summary{}, err
	}

	m, ok := finalModel.(watchModel)
	if !ok {
		return search.Summary{}, nil
	}
	if m.err != nil && !errors.Is(m.err, context.Canceled) {
		return m.summary, m.err
	}
	if err := ctx.Err(); err != nil {
		return m.summary, err
	}
	return m.summary, nil
}
