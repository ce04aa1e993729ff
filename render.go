package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"qgrad/circuit"
)

// padCenter centres s within width visible columns.
func padCenter(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-w-left)
}

type cellRole int

const (
	roleEmpty cellRole = iota
	roleBox
	roleControl
	roleTarget
	roleSwap
	rolePass
)

type cellHighlight int

const (
	hlNone cellHighlight = iota
	hlParam
	hlLayer
)

func (h cellHighlight) style(base lipgloss.Style) lipgloss.Style {
	switch h {
	case hlParam:
		return paramMarkStyle
	case hlLayer:
		return layerMarkStyle
	}
	return base
}

// cellInfo describes what is drawn at one wire and slot.
type cellInfo struct {
	op        *circuit.Operation
	role      cellRole
	label     string
	vertAbove bool
	vertBelow bool
}

// roleOn returns how op is drawn on its i-th wire.
func roleOn(op *circuit.Operation, i int) (cellRole, string) {
	switch op.Name() {
	case "CX":
		if i == 0 {
			return roleControl, ""
		}
		return roleTarget, ""
	case "CZ":
		return roleControl, ""
	case "SWAP":
		return roleSwap, ""
	case "CRX", "CRY", "CRZ":
		if i == 0 {
			return roleControl, ""
		}
		return roleBox, op.Name()[1:]
	}
	return roleBox, op.Name()
}

// slotCells lays out one slot of the grid: the role of each wire row and
// the vertical connectors of multi-wire operations.
func slotCells(grid circuit.Grid, slot int) []cellInfo {
	row := make(map[int]int, len(grid.Wires))
	for i, w := range grid.Wires {
		row[w] = i
	}

	cells := make([]cellInfo, len(grid.Wires))
	seen := make(map[*circuit.Operation]bool)
	for i := range grid.Wires {
		op := grid.Ops[i][slot]
		if op == nil || seen[op] {
			continue
		}
		seen[op] = true

		lo, hi := len(grid.Wires), -1
		for j, w := range op.Wires {
			r := row[w]
			role, label := roleOn(op, j)
			cells[r].op, cells[r].role, cells[r].label = op, role, label
			lo, hi = min(lo, r), max(hi, r)
		}
		if lo == hi {
			continue
		}
		for r := lo; r <= hi; r++ {
			if cells[r].op == nil {
				cells[r].op, cells[r].role = op, rolePass
			}
			cells[r].vertAbove = cells[r].vertAbove || r > lo
			cells[r].vertBelow = cells[r].vertBelow || r < hi
		}
	}
	return cells
}

// renderCell returns the three lines of a cell, each cellW columns wide.
func renderCell(info cellInfo, hl cellHighlight) (top, mid, bot string) {
	emptyRow := strings.Repeat(" ", cellW)
	halfW := cellW / 2
	vertRow := strings.Repeat(" ", halfW) + "│" + strings.Repeat(" ", cellW-halfW-1)
	dashL := (cellW - 1) / 2
	dashR := cellW - dashL - 1

	top, bot = emptyRow, emptyRow
	if info.vertAbove {
		top = vertRow
	}
	if info.vertBelow {
		bot = vertRow
	}

	st := hl.style(gateStyle)
	symbol := func(s string) string {
		return strings.Repeat("─", dashL) + st.Render(s) + strings.Repeat("─", dashR)
	}

	switch info.role {
	case roleEmpty:
		mid = strings.Repeat("─", cellW)
	case rolePass:
		mid = strings.Repeat("─", dashL) + "┼" + strings.Repeat("─", dashR)
	case roleControl:
		mid = symbol("●")
	case roleTarget:
		mid = symbol("⊕")
	case roleSwap:
		mid = symbol("×")
	case roleBox:
		margin := (cellW - gateBoxW) / 2
		rightMargin := cellW - margin - gateBoxW
		edgeL := (gateNameW - 1) / 2
		edgeR := gateNameW - edgeL - 1

		topEdge := strings.Repeat("─", gateNameW)
		if info.vertAbove {
			topEdge = strings.Repeat("─", edgeL) + "┴" + strings.Repeat("─", edgeR)
		}
		botEdge := strings.Repeat("─", gateNameW)
		if info.vertBelow {
			botEdge = strings.Repeat("─", edgeL) + "┬" + strings.Repeat("─", edgeR)
		}
		name := padCenter(truncate(info.label, gateNameW), gateNameW)

		top = strings.Repeat(" ", margin) + st.Render("┌"+topEdge+"┐") + strings.Repeat(" ", rightMargin)
		mid = strings.Repeat("─", margin) + st.Render("┤"+name+"├") + strings.Repeat("─", rightMargin)
		bot = strings.Repeat(" ", margin) + st.Render("└"+botEdge+"┘") + strings.Repeat(" ", rightMargin)
	}
	return top, mid, bot
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// observableLabel is the short form shown at the end of a wire.
func observableLabel(op *circuit.Operation) string {
	switch op.Return {
	case circuit.Variance:
		return "Var" + op.Name()
	case circuit.Sample:
		return "S(" + op.Name() + ")"
	}
	return "<" + op.Name() + ">"
}

// gridView renders a circuit.Grid as wires with gate boxes.
type gridView struct {
	grid  circuit.Grid
	marks map[*circuit.Operation]cellHighlight
	start int // first slot shown
	slots int // number of slots shown, 0 shows all
}

func (v gridView) render() string {
	grid := v.grid
	if len(grid.Wires) == 0 {
		return dimStyle.Render("(empty circuit)")
	}

	end := grid.Depth()
	start := min(max(v.start, 0), end)
	if v.slots > 0 {
		end = min(end, start+v.slots)
	}

	cols := make([][]cellInfo, 0, end-start)
	for l := start; l < end; l++ {
		cols = append(cols, slotCells(grid, l))
	}
	nobs := 0
	for _, obs := range grid.Observables {
		nobs = max(nobs, len(obs))
	}

	var sb strings.Builder
	header := strings.Repeat(" ", labelVisualW)
	for l := start; l < end; l++ {
		header += dimStyle.Render(padCenter(fmt.Sprintf("%d", l), cellW))
	}
	sb.WriteString(header + "\n")

	for i, w := range grid.Wires {
		topLine := strings.Repeat(" ", labelVisualW)
		midLine := wireLabelStyle.Render(fmt.Sprintf("%-5s", fmt.Sprintf("q[%d]", w))) + "──"
		botLine := strings.Repeat(" ", labelVisualW)

		for _, col := range cols {
			info := col[i]
			top, mid, bot := renderCell(info, v.marks[info.op])
			topLine += top
			midLine += mid
			botLine += bot
		}
		for k := range nobs {
			var op *circuit.Operation
			if k < len(grid.Observables[i]) {
				op = grid.Observables[i][k]
			}
			if op == nil {
				topLine += strings.Repeat(" ", cellW)
				midLine += strings.Repeat(" ", cellW)
				botLine += strings.Repeat(" ", cellW)
				continue
			}
			top, mid, bot := renderCell(cellInfo{op: op, role: roleBox, label: observableLabel(op)}, v.marks[op])
			topLine += top
			midLine += observableStyle.Render(mid)
			botLine += bot
		}

		sb.WriteString(topLine + "\n")
		sb.WriteString(midLine + "\n")
		sb.WriteString(botLine + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ──────────────────────────── Panel rendering ────────────────────────────

// slotsFor returns how many slot columns fit in width.
func slotsFor(width, observables int) int {
	avail := width - labelVisualW - 4 - observables*cellW
	return max(avail/cellW, 1)
}

func (m Model) renderCircuitPanel(width, height int) string {
	var sb strings.Builder

	title := "Circuit"
	if name := m.graph.Name(); name != "" {
		title += ": " + name
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")

	nobs := 0
	for _, obs := range m.grid.Observables {
		nobs = max(nobs, len(obs))
	}
	view := gridView{
		grid:  m.grid,
		marks: m.marks(),
		start: m.viewStart,
		slots: slotsFor(width, nobs),
	}
	if m.viewStart > 0 {
		fmt.Fprintf(&sb, "  ◀ from slot %d\n", m.viewStart)
	}
	sb.WriteString(view.render())
	sb.WriteString("\n")

	if m.statusMsg != "" {
		fmt.Fprintf(&sb, "\n  %s", activeStyle.Render(m.statusMsg))
	}
	if m.err != nil {
		fmt.Fprintf(&sb, "\n  %s", errorStyle.Render(m.err.Error()))
	}

	return circuitStyle.Width(width).Height(height).Render(sb.String())
}

func (m Model) renderQASMPanel(width, height int) string {
	var sb strings.Builder

	title := "QASM Editor"
	if m.focus == focusQASM {
		title += " [ACTIVE]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(m.qasmEditor.View())

	return qasmStyle.Width(width).Height(height).Render(sb.String())
}

// renderParamsPanel lists parameter values with their gradient rows, the
// observable results and the selected layer.
func (m Model) renderParamsPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Parameters"))
	fmt.Fprintf(&sb, "  %s", dimStyle.Render(m.menu().label()))
	if m.busy {
		sb.WriteString(dimStyle.Render("  evaluating…"))
	}
	sb.WriteString("\n")

	if len(m.params) == 0 {
		sb.WriteString(dimStyle.Render("  no free parameters"))
		sb.WriteString("\n")
	}
	for k, v := range m.params {
		cursor := "  "
		name := fmt.Sprintf("p[%d]", k)
		if k == m.selParam {
			cursor = menuSelectedStyle.Render("▸ ")
			name = paramMarkStyle.Render(name)
		}
		fmt.Fprintf(&sb, "%s%s = %-10s", cursor, name, circuit.FormatFloat(v))
		if k < len(m.jac) {
			sb.WriteString(dimStyle.Render("  ∂ "))
			sb.WriteString(formatRow(m.jac[k]))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	for j, op := range m.observables {
		val := "…"
		if j < len(m.results) {
			val = fmt.Sprintf("% .6f", m.results[j])
		}
		fmt.Fprintf(&sb, "  %s  %s\n", observableStyle.Render(fmt.Sprintf("%-12s", op)), val)
	}

	sb.WriteString("\n")
	sb.WriteString(m.layerSummary())

	return paramsStyle.Width(width).Height(height).Render(sb.String())
}

func (m Model) layerSummary() string {
	if len(m.layers) == 0 {
		return dimStyle.Render("  no layers")
	}
	if m.selLayer < 0 || m.selLayer >= len(m.layers) {
		return dimStyle.Render(fmt.Sprintf("  %d layers, [ ] to select", len(m.layers)))
	}
	l := m.layers[m.selLayer]
	return fmt.Sprintf("  %s  %d pre, %d ops, %d post",
		layerMarkStyle.Render(fmt.Sprintf("layer %d/%d", m.selLayer+1, len(m.layers))),
		len(l.PreOps), len(l.Ops), len(l.PostOps))
}

func formatRow(row []float64) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = fmt.Sprintf("% .4f", v)
	}
	return strings.Join(parts, " ")
}

func (m Model) renderControlsPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(activeStyle.Render("Params:  "))
	sb.WriteString("↑↓/jk Select  ←→/hl ∓π/16  0 Zero  [ ] Layer  </> Scroll")
	sb.WriteString("\n")

	sb.WriteString(activeStyle.Render("Actions: "))
	sb.WriteString("m Method  r Re-run  Tab Edit QASM  ^S Save  q/^C Quit")

	return controlsStyle.Width(width).Height(height).Render(sb.String())
}
