package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"qgrad/circuit"
	"qgrad/qnode"
	"qgrad/statevec"
)

// cliOptions holds the flags shared by every subcommand.
type cliOptions struct {
	logLevel    string
	logFile     string
	metricsFile string
	params      string
	method      string
	order       int
	step        float64
	which       []int
	concurrency int
	seed        uint64

	log      logr.Logger
	registry *prometheus.Registry
	logClose io.Closer
}

// session is a loaded circuit bound to the state-vector backend.
type session struct {
	file     *circuitFile
	graph    *circuit.Graph
	node     *qnode.Node
	params   []float64
	method   qnode.Method
	gradOpts []qnode.GradOption
	metrics  *qnode.Metrics
	backend  qnode.Backend
	nodeOpts []qnode.Option
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &cliOptions{}

	root := &cobra.Command{
		Use:           "qgrad",
		Short:         "Inspect quantum circuit dependency graphs and differentiate them",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return o.teardown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&o.logFile, "log-file", "", "write logs to this file instead of stderr")
	pf.StringVar(&o.metricsFile, "metrics-file", "", "write backend metrics in text format to this file on exit")
	pf.StringVar(&o.params, "params", "", "comma-separated parameter values, overriding the file (pi expressions allowed)")
	pf.StringVar(&o.method, "method", "", "gradient method: finite-diff, angle or best")
	pf.IntVar(&o.order, "order", 0, "finite-difference order (1 or 2)")
	pf.Float64Var(&o.step, "step", 0, "finite-difference step")
	pf.IntSliceVar(&o.which, "which", nil, "parameter indices to differentiate")
	pf.IntVar(&o.concurrency, "concurrency", 0, "parallel backend calls for finite differences")
	pf.Uint64Var(&o.seed, "seed", 0, "seed for sampled observables (0 picks one at random)")

	root.AddCommand(
		newEvalCmd(o),
		newGradCmd(o),
		newLayersCmd(o),
		newGridCmd(o),
		newInspectCmd(o),
		newGatesCmd(),
	)
	return root
}

func (o *cliOptions) setup(cmd *cobra.Command) error {
	var w io.Writer = cmd.ErrOrStderr()
	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		w, o.logClose = f, f
	}
	log, err := newLogger(w, o.logLevel)
	if err != nil {
		return err
	}
	o.log = log
	o.registry = prometheus.NewRegistry()
	return nil
}

func (o *cliOptions) teardown() error {
	if o.metricsFile != "" {
		if err := prometheus.WriteToTextfile(o.metricsFile, o.registry); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}
	if o.logClose != nil {
		return o.logClose.Close()
	}
	return nil
}

// open loads path and applies the command-line overrides.
func (o *cliOptions) open(path string) (*session, error) {
	f, err := loadCircuitFile(path)
	if err != nil {
		return nil, err
	}
	g, err := f.build(o.log)
	if err != nil {
		return nil, err
	}

	params, err := f.values(g)
	if err != nil {
		return nil, err
	}
	if o.params != "" {
		if params, err = parseValues(o.params); err != nil {
			return nil, err
		}
	}

	methodName := f.Gradient.Method
	if o.method != "" {
		methodName = o.method
	}
	method, err := qnode.ParseMethod(methodName)
	if err != nil {
		return nil, err
	}

	gradOpts := f.gradOptions()
	if o.order != 0 {
		gradOpts = append(gradOpts, qnode.Order(o.order))
	}
	if o.step != 0 {
		gradOpts = append(gradOpts, qnode.Step(o.step))
	}
	if len(o.which) > 0 {
		gradOpts = append(gradOpts, qnode.Which(o.which...))
	}
	concurrency := f.Gradient.Concurrency
	if o.concurrency != 0 {
		concurrency = o.concurrency
	}

	simOpts := []statevec.Option{statevec.WithLogr(o.log.WithName("statevec"))}
	if o.seed != 0 {
		simOpts = append(simOpts, statevec.WithSeed(o.seed))
	}
	metrics := qnode.NewMetrics(o.registry)
	backend := qnode.Instrument(statevec.NewSimulator(simOpts...), metrics)

	s := &session{
		file:     f,
		params:   params,
		method:   method,
		gradOpts: gradOpts,
		metrics:  metrics,
		backend:  backend,
		nodeOpts: []qnode.Option{
			qnode.WithLogr(o.log.WithName("qnode")),
			qnode.WithMethod(method),
			qnode.WithConcurrency(concurrency),
			qnode.WithDefaults(gradOpts...),
		},
	}
	s.bind(g)
	return s, nil
}

// bind points the session at g.
func (s *session) bind(g *circuit.Graph) {
	s.graph = g
	s.node = qnode.New(g, s.backend, s.nodeOpts...)
}

// parseValues parses "0.1, pi/2, -pi" into numbers. References are rejected.
func parseValues(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := circuit.ParseParam(part)
		if err != nil {
			return nil, err
		}
		if p.IsRef() {
			return nil, errors.Wrapf(circuit.ErrBadParam, "%q is a reference, not a value", part)
		}
		out = append(out, p.Float())
	}
	return out, nil
}

// executions returns the number of backend calls recorded so far.
func (s *session) executions() int {
	var total float64
	for _, result := range []string{"ok", "error"} {
		c, err := s.metrics.ExecutionsTotal.GetMetricWithLabelValues(result)
		if err != nil {
			continue
		}
		total += counterValue(c)
	}
	return int(total)
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func fprintDiagnostics(w io.Writer, g *circuit.Graph) {
	for _, d := range g.Diagnostics() {
		fmt.Fprintf(w, "# %s\n", d)
	}
}
