package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"

	"qgrad/circuit"
	"qgrad/qasm"
)

// focus represents which panel has keyboard input.
type focus int

const (
	focusCircuit focus = iota
	focusQASM
	focusMenu
)

const (
	paramNudge  = math.Pi / 16
	evalTimeout = 30 * time.Second
)

// evalMsg carries the outcome of an asynchronous evaluation.
type evalMsg struct {
	seq     int
	results []float64
	jac     [][]float64
	err     error
}

// Model is the inspector state.
type Model struct {
	sess *session
	log  logr.Logger

	// Views of graph taken before any evaluation runs. The parameter
	// shift rewrites graph nodes while it works, so rendering must not
	// read the graph itself.
	graph       *circuit.Graph
	grid        circuit.Grid
	layers      []circuit.LayerData
	observables []*circuit.Operation
	uses        [][]*circuit.Operation

	params   []float64
	results  []float64
	jac      [][]float64
	selParam int
	selLayer int // -1 when no layer is selected

	menuItem   int
	methodItem int

	viewStart  int
	width      int
	height     int
	qasmEditor textarea.Model
	focus      focus
	lastQASM   string
	statusMsg  string
	err        error

	seq  int
	busy bool
}

func newModel(s *session, log logr.Logger) Model {
	ta := textarea.New()
	ta.Placeholder = "Edit QASM here..."
	ta.SetWidth(40)
	ta.SetHeight(20)
	ta.ShowLineNumbers = true
	ta.KeyMap.InsertNewline.SetEnabled(true)

	text := s.file.Circuit
	if text == "" {
		text = qasm.Format(s.graph.Queue())
	}
	ta.SetValue(text)

	m := Model{
		sess:       s,
		log:        log,
		params:     slices.Clone(s.params),
		selLayer:   -1,
		methodItem: menuIndex(s.method),
		qasmEditor: ta,
		lastQASM:   text,
	}
	m.menuItem = m.methodItem
	m.setGraph(s.graph)
	return m
}

func (m *Model) menu() menuItem { return methodMenu[m.methodItem] }

// setGraph recomputes every derived view of g.
func (m *Model) setGraph(g *circuit.Graph) {
	m.graph = g
	m.grid = g.GreedyLayers()
	m.layers = slices.Collect(g.IterateLayers())
	m.observables = g.ObservablesInOrder()
	m.uses = make([][]*circuit.Operation, g.NumParams())
	for k := range m.uses {
		for _, dep := range g.ParamDeps(k) {
			if op, err := g.Node(dep.Op); err == nil {
				m.uses[k] = append(m.uses[k], op)
			}
		}
	}
	m.results, m.jac = nil, nil

	if len(m.params) != g.NumParams() {
		params := make([]float64, g.NumParams())
		copy(params, m.params)
		m.params = params
	}
	m.selParam = min(m.selParam, max(len(m.params)-1, 0))
	if m.selLayer >= len(m.layers) {
		m.selLayer = -1
	}
	m.viewStart = min(m.viewStart, max(m.grid.Depth()-1, 0))
}

// marks returns the highlight of each operation: the selected layer first,
// then the uses of the selected parameter on top.
func (m Model) marks() map[*circuit.Operation]cellHighlight {
	out := make(map[*circuit.Operation]cellHighlight)
	if m.selLayer >= 0 && m.selLayer < len(m.layers) {
		for _, op := range m.layers[m.selLayer].Ops {
			out[op] = hlLayer
		}
	}
	if m.selParam < len(m.uses) {
		for _, op := range m.uses[m.selParam] {
			out[op] = hlParam
		}
	}
	return out
}

// evaluate starts a forward pass and a full Jacobian with the current
// parameters. Results from an older request are dropped on arrival.
func (m *Model) evaluate() tea.Cmd {
	m.seq++
	m.busy = true

	seq := m.seq
	node := m.sess.node
	params := slices.Clone(m.params)
	item := m.menu()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
		defer cancel()

		res, err := node.Evaluate(ctx, params)
		if err != nil {
			return evalMsg{seq: seq, err: err}
		}
		var jac [][]float64
		if len(params) > 0 {
			jac, err = node.Jacobian(ctx, params, item.method, item.gradOptions()...)
		}
		return evalMsg{seq: seq, results: res, jac: jac, err: err}
	}
}

// parseQASMInput rebuilds the graph when the editor text changed.
func (m *Model) parseQASMInput() tea.Cmd {
	text := m.qasmEditor.Value()
	if text == m.lastQASM {
		return nil
	}
	m.lastQASM = text

	instrs, err := qasm.Parse(text)
	if err != nil {
		m.err = err
		return nil
	}
	g, err := circuit.Build(instrs, circuit.WithLogr(m.log), circuit.WithName(m.graph.Name()))
	if err != nil {
		m.err = err
		return nil
	}
	m.err = nil
	m.sess.bind(g)
	m.setGraph(g)
	if n := len(g.Diagnostics()); n > 0 {
		m.statusMsg = fmt.Sprintf("%d diagnostics, first: %s", n, g.Diagnostics()[0].Message)
	}
	return m.evaluate()
}

// savePath is where ctrl+s writes: the source itself for QASM files, a
// sibling .qasm file otherwise.
func savePath(path string) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".qasm") {
		return path
	}
	return strings.TrimSuffix(path, ext) + ".qasm"
}

func (m *Model) save() {
	path := savePath(m.sess.file.path)
	if err := os.WriteFile(path, []byte(m.qasmEditor.Value()), 0o644); err != nil {
		m.statusMsg = fmt.Sprintf("Save error: %v", err)
		return
	}
	m.statusMsg = "Saved " + path
}

func (m *Model) nudge(delta float64) tea.Cmd {
	if len(m.params) == 0 {
		return nil
	}
	m.params[m.selParam] += delta
	return m.evaluate()
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, func() tea.Msg { return startMsg{} })
}

type startMsg struct{}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case startMsg:
		cmds = append(cmds, m.evaluate())

	case evalMsg:
		if msg.seq != m.seq {
			break
		}
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.results, m.jac = msg.results, msg.jac
		} else {
			m.log.Error(msg.err, "evaluation failed")
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.qasmEditor.SetWidth(max(msg.Width/3-6, 20))
		ctrlH := 4
		paramsH := m.paramsHeight()
		circH := msg.Height - ctrlH - paramsH - 4
		m.qasmEditor.SetHeight(max(circH-6, 4))

	case tea.KeyMsg:
		key := msg.String()
		m.statusMsg = ""

		if key == "ctrl+c" {
			return m, tea.Quit
		}
		if key == "ctrl+s" {
			m.save()
			break
		}

		switch m.focus {
		case focusCircuit:
			switch key {
			case "q":
				return m, tea.Quit
			case "tab":
				m.focus = focusQASM
				cmds = append(cmds, m.qasmEditor.Focus())
			case "up", "k":
				if m.selParam > 0 {
					m.selParam--
				}
			case "down", "j":
				if m.selParam < len(m.params)-1 {
					m.selParam++
				}
			case "left", "h":
				cmds = append(cmds, m.nudge(-paramNudge))
			case "right", "l":
				cmds = append(cmds, m.nudge(paramNudge))
			case "0":
				cmds = append(cmds, m.nudge(-m.paramValue()))
			case "[":
				if m.selLayer >= 0 {
					m.selLayer--
				}
			case "]":
				if m.selLayer < len(m.layers)-1 {
					m.selLayer++
				}
			case "<", ",":
				if m.viewStart > 0 {
					m.viewStart--
				}
			case ">", ".":
				if m.viewStart < m.grid.Depth()-1 {
					m.viewStart++
				}
			case "m":
				m.focus = focusMenu
				m.menuItem = m.methodItem
			case "r":
				cmds = append(cmds, m.evaluate())
			}

		case focusMenu:
			switch key {
			case "esc":
				m.focus = focusCircuit
			case "up", "k":
				if m.menuItem > 0 {
					m.menuItem--
				}
			case "down", "j":
				if m.menuItem < len(methodMenu)-1 {
					m.menuItem++
				}
			case "enter":
				m.methodItem = m.menuItem
				m.focus = focusCircuit
				cmds = append(cmds, m.evaluate())
			}

		case focusQASM:
			switch key {
			case "tab", "esc":
				m.focus = focusCircuit
				m.qasmEditor.Blur()
				cmds = append(cmds, m.parseQASMInput())
			default:
				var cmd tea.Cmd
				m.qasmEditor, cmd = m.qasmEditor.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	default:
		var cmd tea.Cmd
		m.qasmEditor, cmd = m.qasmEditor.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) paramValue() float64 {
	if len(m.params) == 0 {
		return 0
	}
	return m.params[m.selParam]
}

func (m Model) paramsHeight() int {
	return min(len(m.params)+len(m.observables)+6, 14)
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.focus == focusMenu {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderMenu(),
			lipgloss.WithWhitespaceChars("·"),
			lipgloss.WithWhitespaceForeground(lipgloss.Color("#24283b")))
	}

	qasmWidth := m.width / 3
	circuitWidth := m.width - qasmWidth - 4
	controlsHeight := 4
	paramsHeight := m.paramsHeight()
	circuitHeight := max(m.height-controlsHeight-paramsHeight-4, 6)

	circuitPanel := m.renderCircuitPanel(circuitWidth, circuitHeight)
	qasmPanel := m.renderQASMPanel(qasmWidth, circuitHeight)
	paramsPanel := m.renderParamsPanel(m.width-4, paramsHeight)
	controlsPanel := m.renderControlsPanel(m.width-4, controlsHeight-2)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, circuitPanel, qasmPanel)
	return lipgloss.JoinVertical(lipgloss.Left, topRow, paramsPanel, controlsPanel)
}
