package main

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"qgrad/circuit"
)

func newEvalCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "eval FILE",
		Short: "Execute the circuit and print one value per observable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(args[0])
			if err != nil {
				return err
			}
			res, err := s.node.Evaluate(cmd.Context(), s.params)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fprintDiagnostics(w, s.graph)
			fmt.Fprintln(w, resultsTable(s.graph, res))
			return nil
		},
	}
}

func newGradCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "grad FILE",
		Short: "Differentiate every observable with respect to the free parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(args[0])
			if err != nil {
				return err
			}
			jac, err := s.node.Jacobian(cmd.Context(), s.params, s.method, s.gradOpts...)
			if err != nil {
				return err
			}
			rows, err := s.node.Rows(s.gradOpts...)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fprintDiagnostics(w, s.graph)
			fmt.Fprintln(w, jacobianTable(s.graph, rows, jac))
			fmt.Fprintf(w, "method %s, %d backend executions\n", s.method, s.executions())
			return nil
		},
	}
}

func newLayersCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "layers FILE",
		Short: "Print the parametrized layers with their preceding and following operations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fprintDiagnostics(w, s.graph)
			fprintLayers(w, s.graph)
			return nil
		},
	}
}

func newGridCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "grid FILE",
		Short: "Draw the circuit with operations packed into slots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fprintDiagnostics(w, s.graph)
			fmt.Fprintln(w, gridView{grid: s.graph.GreedyLayers()}.render())
			return nil
		},
	}
}

func newInspectCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Explore parameters, layers and gradients interactively",
		Long: "Opens a terminal UI. Logs go to stderr unless --log-file is set, " +
			"which is recommended while the UI owns the screen.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(args[0])
			if err != nil {
				return err
			}
			p := tea.NewProgram(newModel(s, o.log.WithName("inspect")),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			_, err = p.Run()
			return err
		},
	}
}

func newGatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gates",
		Short: "List the supported gates and observables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("gate", "wires", "params", "domain", "gradient", "observable")
			for _, name := range circuit.GateNames() {
				g, _ := circuit.Lookup(name)
				obs := ""
				if g.Observable {
					obs = "yes"
				}
				t.Row(g.Name, fmt.Sprint(g.NumWires), fmt.Sprint(g.NumParams), g.Domain.String(), g.Grad.String(), obs)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
}

func resultsTable(g *circuit.Graph, res []float64) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("observable", "value")
	for j, op := range g.ObservablesInOrder() {
		t.Row(op.String(), fmt.Sprintf("% .8f", res[j]))
	}
	return t.String()
}

func jacobianTable(g *circuit.Graph, rows []int, jac [][]float64) string {
	headers := []string{"param"}
	for _, op := range g.ObservablesInOrder() {
		headers = append(headers, op.String())
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
	for i, row := range jac {
		cells := []string{fmt.Sprintf("p[%d]", rows[i])}
		for _, v := range row {
			cells = append(cells, fmt.Sprintf("% .8f", v))
		}
		t.Row(cells...)
	}
	return t.String()
}

func fprintLayers(w io.Writer, g *circuit.Graph) {
	n := 0
	for l := range g.IterateLayers() {
		fmt.Fprintf(w, "layer %d\n", n)
		for i, op := range l.Ops {
			fmt.Fprintf(w, "  op   %-20s p[%d]\n", op, l.ParamInds[i])
		}
		fmt.Fprintf(w, "  pre  %s\n", joinOps(l.PreOps))
		fmt.Fprintf(w, "  post %s\n", joinOps(l.PostOps))
		n++
	}
	if n == 0 {
		fmt.Fprintln(w, "no parametrized operations")
	}
}

func joinOps(ops []*circuit.Operation) string {
	if len(ops) == 0 {
		return "-"
	}
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, "; ")
}
