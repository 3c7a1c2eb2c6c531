package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F5F")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF5F5F")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)

	severityStyles = map[string]lipgloss.Style{
		"low":      lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		"medium":   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		"high":     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800")).Bold(true),
		"critical": lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
	}
)

type view int

const (
	alertsView view = iota
	detailView
	enrichmentView
)

const viewCount = 3

type keyMap struct {
	Tab   key.Binding
	Enter key.Binding
	Ack   key.Binding
	Quit  key.Binding
	Up    key.Binding
	Down  key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open alert"),
	),
	Ack: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "acknowledge"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Ack, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Enter, k.Ack},
		{k.Up, k.Down, k.Quit},
	}
}

// apiClient talks to a running sentinel instance.
type apiClient struct {
	baseURL string
	client  *http.Client
}

type alertListResponse struct {
	Alerts []model.Alert `json:"alerts"`
	Count  int           `json:"count"`
}

type enrichmentStatus struct {
	Ready            bool   `json:"ready"`
	LastRefreshed    string `json:"last_refreshed"`
	VaultHosts       int    `json:"vault_hosts"`
	CriticalAccounts int    `json:"critical_accounts"`
}

func (c *apiClient) fetchAlerts() ([]model.Alert, error) {
	resp, err := c.client.Get(c.baseURL + "/alerts?limit=200")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alerts request returned %s", resp.Status)
	}
	var body alertListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Alerts, nil
}

func (c *apiClient) fetchEnrichment() (enrichmentStatus, error) {
	var status enrichmentStatus
	resp, err := c.client.Get(c.baseURL + "/enrichment/status")
	if err != nil {
		return status, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("enrichment request returned %s", resp.Status)
	}
	err = json.NewDecoder(resp.Body).Decode(&status)
	return status, err
}

func (c *apiClient) acknowledge(id string) error {
	resp, err := c.client.Post(c.baseURL+"/alerts/"+id+"/ack", "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ack request returned %s", resp.Status)
	}
	return nil
}

type tuiModel struct {
	api         *apiClient
	currentView view
	alertTable  table.Model
	alerts      []model.Alert
	enrichment  enrichmentStatus
	selected    *model.Alert
	help        help.Model
	keys        keyMap
	width       int
	height      int
	message     string
	messageErr  bool
	startTime   time.Time
}

type tickMsg time.Time

type alertsMsg struct {
	alerts []model.Alert
	err    error
}

type enrichmentMsg struct {
	status enrichmentStatus
	err    error
}

type ackDoneMsg struct {
	id  string
	err error
}

func tickCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) fetchAlertsCmd() tea.Cmd {
	return func() tea.Msg {
		alerts, err := m.api.fetchAlerts()
		return alertsMsg{alerts: alerts, err: err}
	}
}

func (m tuiModel) fetchEnrichmentCmd() tea.Cmd {
	return func() tea.Msg {
		status, err := m.api.fetchEnrichment()
		return enrichmentMsg{status: status, err: err}
	}
}

func (m tuiModel) ackCmd(id string) tea.Cmd {
	return func() tea.Msg {
		return ackDoneMsg{id: id, err: m.api.acknowledge(id)}
	}
}

func initialModel(api *apiClient) tuiModel {
	columns := []table.Column{
		{Title: "Time", Width: 19},
		{Title: "Detection", Width: 22},
		{Title: "Severity", Width: 10},
		{Title: "Host", Width: 18},
		{Title: "Description", Width: 48},
		{Title: "Ack", Width: 4},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(14),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF5F5F")).
		Bold(false)
	t.SetStyles(s)

	return tuiModel{
		api:        api,
		alertTable: t,
		help:       help.New(),
		keys:       keys,
		startTime:  time.Now(),
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(m.fetchAlertsCmd(), m.fetchEnrichmentCmd(), tickCmd())
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		return m, tea.Batch(m.fetchAlertsCmd(), m.fetchEnrichmentCmd(), tickCmd())

	case alertsMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Failed to fetch alerts: %v", msg.err)
			m.messageErr = true
		} else {
			m.alerts = msg.alerts
			m.refreshTable()
		}

	case enrichmentMsg:
		if msg.err == nil {
			m.enrichment = msg.status
		}

	case ackDoneMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Acknowledge failed: %v", msg.err)
			m.messageErr = true
		} else {
			m.message = "Alert " + msg.id + " acknowledged"
			m.messageErr = false
			cmds = append(cmds, m.fetchAlertsCmd())
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount

		case key.Matches(msg, m.keys.Enter):
			if m.currentView == alertsView {
				if a := m.selectedAlert(); a != nil {
					m.selected = a
					m.currentView = detailView
				}
			}

		case key.Matches(msg, m.keys.Ack):
			if a := m.selectedAlert(); a != nil && !a.Acknowledged {
				cmds = append(cmds, m.ackCmd(a.ID))
			}
		}
	}

	if m.currentView == alertsView {
		m.alertTable, cmd = m.alertTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *tuiModel) selectedAlert() *model.Alert {
	idx := m.alertTable.Cursor()
	if idx < 0 || idx >= len(m.alerts) {
		return nil
	}
	return &m.alerts[idx]
}

func (m *tuiModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.alerts))
	for _, a := range m.alerts {
		ack := ""
		if a.Acknowledged {
			ack = "yes"
		}
		rows = append(rows, table.Row{
			a.TriggeredAt.Local().Format("2006-01-02 15:04:05"),
			string(a.DetectionType),
			a.Severity.String(),
			a.HostID,
			a.Description,
			ack,
		})
	}
	m.alertTable.SetRows(rows)
}

func (m tuiModel) View() string {
	if m.width == 0 {
		return "Connecting..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Sentinel - Auth Threat Dashboard"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case alertsView:
		s.WriteString(m.renderAlerts())
	case detailView:
		s.WriteString(m.renderDetail())
	case enrichmentView:
		s.WriteString(m.renderEnrichment())
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("x " + m.message))
		} else {
			s.WriteString(successStyle.Render("+ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m tuiModel) renderTabs() string {
	tabs := []string{"Alerts", "Detail", "Enrichment"}
	var rendered []string
	for i, tab := range tabs {
		if view(i) == m.currentView {
			rendered = append(rendered, activeTabStyle.Render(tab))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m tuiModel) renderAlerts() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Alerts (%d)", len(m.alerts))))
	s.WriteString("\n\n")
	s.WriteString(m.alertTable.View())
	return contentStyle.Render(s.String())
}

func (m tuiModel) renderDetail() string {
	if m.selected == nil {
		return contentStyle.Render(helpStyle.Render("No alert selected. Pick one in the Alerts view."))
	}
	a := m.selected

	sevStyle, ok := severityStyles[a.Severity.String()]
	if !ok {
		sevStyle = lipgloss.NewStyle()
	}

	detail := fmt.Sprintf(`ID:          %s
Detection:   %s
Severity:    %s
Triggered:   %s
Host:        %s
Nodes:       %s
Edges:       %s
Acknowledged: %t

%s`,
		a.ID,
		a.DetectionType,
		sevStyle.Render(a.Severity.String()),
		a.TriggeredAt.Local().Format(time.RFC3339),
		a.HostID,
		strings.Join(a.NodeIDs, ", "),
		strings.Join(a.EdgeIDs, ", "),
		a.Acknowledged,
		a.Description,
	)

	return contentStyle.Render(statsBoxStyle.Render(detail))
}

func (m tuiModel) renderEnrichment() string {
	ready := "no"
	if m.enrichment.Ready {
		ready = "yes"
	}

	status := fmt.Sprintf(`Enrichment Cache
________________
Ready:             %s
Last refreshed:    %s
Vault hosts:       %d
Critical accounts: %d`,
		ready,
		m.enrichment.LastRefreshed,
		m.enrichment.VaultHosts,
		m.enrichment.CriticalAccounts,
	)

	return contentStyle.Render(statsBoxStyle.Render(status))
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Sentinel API base URL")
	flag.Parse()

	api := &apiClient{
		baseURL: strings.TrimRight(*baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}

	p := tea.NewProgram(initialModel(api), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
