package main

import (
	"fmt"
	"strings"

	"qgrad/qnode"
)

// menuItem is a single gradient method choice.
type menuItem struct {
	name   string
	method qnode.Method
	order  int // finite-difference order, 0 leaves the configured one
	hint   string
}

var methodMenu = []menuItem{
	{name: "Forward difference", method: qnode.MethodFiniteDiff, order: 1, hint: "n+1 runs"},
	{name: "Central difference", method: qnode.MethodFiniteDiff, order: 2, hint: "2n runs"},
	{name: "Parameter shift", method: qnode.MethodAngle, hint: "exact, 2 runs per use"},
	{name: "Best available", method: qnode.MethodBest, hint: "shift when every use allows"},
}

// gradOptions returns the options the item adds to a gradient call.
func (it menuItem) gradOptions() []qnode.GradOption {
	opts := []qnode.GradOption{qnode.Which()}
	if it.order != 0 {
		opts = append(opts, qnode.Order(it.order))
	}
	return opts
}

func (it menuItem) label() string {
	if it.order != 0 {
		return fmt.Sprintf("%s (order %d)", it.method, it.order)
	}
	return it.method.String()
}

// menuIndex returns the entry matching m, falling back to the last one.
func menuIndex(m qnode.Method) int {
	for i, it := range methodMenu {
		if it.method == m {
			return i
		}
	}
	return len(methodMenu) - 1
}

// renderMenu renders the gradient method popup.
func (m Model) renderMenu() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Gradient Method"))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("─", 44)))
	sb.WriteString("\n")

	for i, item := range methodMenu {
		if i == m.menuItem {
			sb.WriteString(menuSelectedStyle.Render(" ▸ "))
			sb.WriteString(menuSelectedStyle.Render(fmt.Sprintf("%-20s", item.name)))
			sb.WriteString(gateStyle.Render(item.hint))
		} else {
			sb.WriteString("   ")
			sb.WriteString(menuNormalStyle.Render(fmt.Sprintf("%-20s", item.name)))
			sb.WriteString(dimStyle.Render(item.hint))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render(" ↑↓ Select  ⏎ Ok  Esc ✕"))

	return menuBorderStyle.Render(sb.String())
}
