package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	cliapi "tsa-volume-tracker/internal/cli"
	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/series"
)

// KeyMap represents the key bindings for the interactive table
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Details key.Binding
	Help    key.Binding
	Quit    key.Binding
	Close   key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Details: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
	}
}

var volumeColumns = []string{"DATE", "DAY", "VOLUME", "YOY"}

// InteractiveTable is the bubbletea model for browsing daily volumes.
// Rows are shown newest first; year-over-year figures are computed
// locally from the loaded observations, so days whose prior-year
// counterpart falls outside the query window show "n/a".
type InteractiveTable struct {
	table    table.Model
	volumes  []database.DailyVolume // newest first, matches row order
	srs      *series.Series
	query    cliapi.VolumeQuery
	client   *cliapi.Client
	keys     KeyMap
	loading  bool
	spinner  spinner.Model
	err      error
	message  string
	showHelp bool
	quitting bool
	config   *cliapi.Config
	useColor bool
}

// NewInteractiveTable creates a new interactive table
func NewInteractiveTable(volumes []database.DailyVolume, query cliapi.VolumeQuery, client *cliapi.Client, config *cliapi.Config) *InteractiveTable {
	ordered, srs := orderForDisplay(volumes)
	rows := buildRows(ordered, srs)

	columns := make([]table.Column, len(volumeColumns))
	for i, title := range volumeColumns {
		columns[i] = table.Column{
			Title: title,
			Width: calculateColumnWidth(title, rows, i),
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	useColor := !config.NoColor && isatty.IsTerminal(os.Stdout.Fd()) &&
		termenv.EnvColorProfile() != termenv.Ascii

	if useColor {
		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(false)
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
		t.SetStyles(s)
	}

	return &InteractiveTable{
		table:    t,
		volumes:  ordered,
		srs:      srs,
		query:    query,
		client:   client,
		keys:     DefaultKeyMap(),
		spinner:  s,
		config:   config,
		useColor: useColor,
	}
}

// Init initializes the interactive table
func (m InteractiveTable) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m InteractiveTable) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			return m.handleRefresh()

		case key.Matches(msg, m.keys.Up):
			m.table, cmd = m.table.Update(msg)
			return m, cmd

		case key.Matches(msg, m.keys.Down):
			m.table, cmd = m.table.Update(msg)
			return m, cmd

		case key.Matches(msg, m.keys.Details):
			return m.handleDetails()

		case key.Matches(msg, m.keys.Close):
			m.message = ""
			m.err = nil
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		return m, nil

	case volumesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.message = fmt.Sprintf("Error refreshing volumes: %v", msg.err)
		} else {
			m = m.reloadRows(msg.volumes)
			m.message = fmt.Sprintf("Refreshed - %d days loaded", len(msg.volumes))
		}
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

// View renders the interactive table
func (m InteractiveTable) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder

	if m.showHelp {
		b.WriteString(m.helpView())
		b.WriteString("\n")
	}

	if m.loading {
		b.WriteString(fmt.Sprintf("%s Loading...\n", m.spinner.View()))
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.message != "" {
		if m.err != nil {
			if m.useColor {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.message))
			} else {
				b.WriteString(m.message)
			}
		} else {
			if m.useColor {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render(m.message))
			} else {
				b.WriteString(m.message)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())

	return b.String()
}

// helpView returns the help view
func (m InteractiveTable) helpView() string {
	help := strings.Builder{}
	help.WriteString("Help:\n")
	help.WriteString("  ↑/k         - Move up\n")
	help.WriteString("  ↓/j         - Move down\n")
	help.WriteString("  r           - Re-fetch volumes from the server\n")
	help.WriteString("  enter       - View day details\n")
	help.WriteString("  esc         - Close details\n")
	help.WriteString("  ?           - Toggle help\n")
	help.WriteString("  q/ctrl+c    - Quit\n")
	return help.String()
}

// statusLine returns the status line
func (m InteractiveTable) statusLine() string {
	if len(m.volumes) == 0 {
		return "No volume data found"
	}

	selected := m.table.Cursor()
	total := len(m.volumes)
	return fmt.Sprintf("Day %d of %d | Press ? for help", selected+1, total)
}

// calculateColumnWidth sizes a column from its title and a sample of rows
func calculateColumnWidth(title string, rows []table.Row, col int) int {
	width := len(title)

	samples := len(rows)
	if samples > 10 {
		samples = 10
	}

	for i := 0; i < samples; i++ {
		if len(rows[i][col]) > width {
			width = len(rows[i][col])
		}
	}

	if width < 8 {
		width = 8
	}
	if width > 50 {
		width = 50
	}

	return width
}

// orderForDisplay reverses ascending API order to newest-first and
// builds the series used for year-over-year lookups.
func orderForDisplay(volumes []database.DailyVolume) ([]database.DailyVolume, *series.Series) {
	ordered := make([]database.DailyVolume, len(volumes))
	copy(ordered, volumes)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Date.After(ordered[j].Date)
	})

	obs := make([]series.Observation, len(volumes))
	for i, v := range volumes {
		obs[i] = v.Observation()
	}
	return ordered, series.FromObservations(obs)
}

func buildRows(ordered []database.DailyVolume, srs *series.Series) []table.Row {
	rows := make([]table.Row, len(ordered))
	for i, v := range ordered {
		rows[i] = volumeToRow(v, srs)
	}
	return rows
}

// volumeToRow converts a daily volume to a table row
func volumeToRow(v database.DailyVolume, srs *series.Series) table.Row {
	yoy := "n/a"
	if growth, ok := srs.GrowthOn(v.Date); ok {
		yoy = fmt.Sprintf("%+.2f%%", growth.Pct)
	}

	return table.Row{
		v.Date.Format("2006-01-02"),
		v.Date.Weekday().String()[:3],
		cliapi.FormatCount(v.Volume),
		yoy,
	}
}

// volumesLoadedMsg is sent when a refresh fetch completes
type volumesLoadedMsg struct {
	volumes []database.DailyVolume
	err     error
}

// handleRefresh re-fetches the volume list with the original query
func (m InteractiveTable) handleRefresh() (InteractiveTable, tea.Cmd) {
	if m.loading {
		return m, nil
	}

	m.loading = true
	m.message = ""
	m.err = nil

	return m, tea.Batch(
		m.spinner.Tick,
		m.fetchVolumes(),
	)
}

func (m InteractiveTable) fetchVolumes() tea.Cmd {
	return func() tea.Msg {
		volumes, err := m.client.GetVolumes(m.query)
		return volumesLoadedMsg{volumes: volumes, err: err}
	}
}

// reloadRows rebuilds the table from freshly fetched volumes and jumps
// the cursor back to the newest day.
func (m InteractiveTable) reloadRows(volumes []database.DailyVolume) InteractiveTable {
	m.volumes, m.srs = orderForDisplay(volumes)
	m.table.SetRows(buildRows(m.volumes, m.srs))
	m.table.SetCursor(0)
	return m
}

// handleDetails shows the selected day's details
func (m InteractiveTable) handleDetails() (InteractiveTable, tea.Cmd) {
	if len(m.volumes) == 0 {
		m.message = "No days to view"
		return m, nil
	}

	selected := m.table.Cursor()
	if selected >= len(m.volumes) {
		m.message = "Invalid selection"
		return m, nil
	}

	v := m.volumes[selected]

	yoyLine := "YoY change: n/a (no prior-year observation)"
	if growth, ok := m.srs.GrowthOn(v.Date); ok {
		yoyLine = fmt.Sprintf("Prior year: %s (%s travelers)\nYoY change: %+.2f%%",
			growth.PriorDate.Format("2006-01-02"),
			cliapi.FormatCount(growth.PriorVolume),
			growth.Pct)
	}

	m.message = fmt.Sprintf(`
%s (%s)
Volume: %s travelers
Source page: %d
Scraped: %s
%s
`,
		v.Date.Format("2006-01-02"),
		v.Date.Weekday(),
		cliapi.FormatCount(v.Volume),
		v.SourceYear,
		v.ScrapedAt.Format("2006-01-02 15:04:05"),
		yoyLine,
	)
	m.err = nil
	return m, nil
}

// runInteractiveTable runs the interactive table
func runInteractiveTable(volumes []database.DailyVolume, query cliapi.VolumeQuery, client *cliapi.Client, config *cliapi.Config) error {
	interactiveTable := NewInteractiveTable(volumes, query, client, config)

	p := tea.NewProgram(interactiveTable, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
