// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kineto Labs

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kinetolab/dxl/pkg/bus"
)

var (
	monitorRegisters []string
	monitorInterval  time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <id>",
	Short: "Live register monitor TUI",
	Long: `Poll a device's registers continuously and display them in a live view.

The selected registers are packed into an indirect read block at startup,
so each poll is a single bus transaction regardless of how scattered the
registers are in the control table.

Example:
  dxl monitor 1 --port /dev/ttyUSB0 --registers present_position,present_temperature`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringSliceVar(&monitorRegisters, "registers",
		[]string{"present_position", "present_velocity", "present_current",
			"present_input_voltage", "present_temperature"},
		"Registers to monitor")
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 100*time.Millisecond, "Poll interval")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	s, err := openBus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	d := s.bus.Device(id)
	if _, err := d.Ping(replyTimeout); err != nil {
		return fmt.Errorf("device %d did not answer: %w", id, err)
	}
	block, err := d.SetupReadBlock(monitorRegisters, replyTimeout)
	if err != nil {
		return fmt.Errorf("failed to configure read block: %w", err)
	}
	defer d.ClearReadBlock(replyTimeout)

	m := initialMonitorModel(d, block, s.connInfo)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// monitorModel is the Bubble Tea model for the live register view
type monitorModel struct {
	device   *bus.Device
	block    *bus.Block
	connInfo string

	values    map[string]uint32
	haveData  bool
	polls     uint64
	pollFails uint64
	lastErr   string
	lastPoll  time.Time

	spin     spinner.Model
	width    int
	quitting bool
}

type monitorTickMsg time.Time

type monitorDataMsg struct {
	values map[string]uint32
	err    error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(d *bus.Device, block *bus.Block, connInfo string) monitorModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return monitorModel{
		device:   d,
		block:    block,
		connInfo: connInfo,
		spin:     sp,
		width:    80,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.pollCmd())
}

func (m monitorModel) pollCmd() tea.Cmd {
	d := m.device
	return func() tea.Msg {
		values, err := d.ReadBlockValues(replyTimeout)
		return monitorDataMsg{values: values, err: err}
	}
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(monitorInterval, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case monitorDataMsg:
		m.polls++
		m.lastPoll = time.Now()
		if msg.err != nil {
			m.pollFails++
			m.lastErr = msg.err.Error()
		} else {
			m.values = msg.values
			m.haveData = true
			m.lastErr = ""
		}
		return m, monitorTickCmd()

	case monitorTickMsg:
		return m, m.pollCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder

	s.WriteString(titleStyle.Render("DXL MONITOR"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | id %d %s | q=quit",
		m.connInfo, m.device.ID, m.device.ModelName())))
	s.WriteString("\n\n")

	if !m.haveData {
		s.WriteString(fmt.Sprintf("%s Waiting for first poll...\n", m.spin.View()))
		if m.lastErr != "" {
			s.WriteString(errorStyle.Render(fmt.Sprintf("  last error: %s", m.lastErr)))
			s.WriteString("\n")
		}
		return s.String()
	}

	var rows strings.Builder
	for _, name := range m.block.Items {
		rows.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render(fmt.Sprintf("%-24s", name)),
			valueStyle.Render(fmt.Sprintf("%10d", m.values[name]))))
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(strings.TrimRight(rows.String(), "\n")))
	s.WriteString("\n\n")

	status := fmt.Sprintf("%s %d  %s %d  %s %s",
		labelStyle.Render("Polls:"), m.polls,
		labelStyle.Render("Failures:"), m.pollFails,
		labelStyle.Render("Last:"), m.lastPoll.Format("15:04:05.000"))
	s.WriteString(boxStyle.Width(m.width - 4).Render(status))
	s.WriteString("\n")

	if m.lastErr != "" {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Poll error: %s", m.lastErr)))
		s.WriteString("\n")
	}

	return s.String()
}
