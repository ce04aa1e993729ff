package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"qgrad/circuit"
	"qgrad/qasm"
	"qgrad/qnode"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// circuitFile is a circuit definition loaded from YAML or QASM.
type circuitFile struct {
	Name     string       `yaml:"name"`
	Circuit  string       `yaml:"circuit" validate:"required_without=Ops,excluded_with=Ops"`
	Ops      []opSpec     `yaml:"ops" validate:"required_without=Circuit,dive"`
	Params   []float64    `yaml:"params"`
	Gradient gradientSpec `yaml:"gradient"`

	path string
}

type opSpec struct {
	Gate   string   `yaml:"gate" validate:"required"`
	Wires  []int    `yaml:"wires" validate:"required,min=1"`
	Params []string `yaml:"params"`
	Return string   `yaml:"return" validate:"omitempty,oneof=expval var sample"`
}

type gradientSpec struct {
	Method      string  `yaml:"method" validate:"omitempty,oneof=finite-diff fd finite angle parameter-shift best"`
	Order       int     `yaml:"order" validate:"omitempty,oneof=1 2"`
	Step        float64 `yaml:"step" validate:"omitempty,gt=0"`
	Which       []int   `yaml:"which" validate:"omitempty,dive,min=0"`
	Concurrency int     `yaml:"concurrency" validate:"omitempty,min=1,max=64"`
}

var returnKinds = map[string]circuit.ReturnType{
	"":       circuit.ReturnNone,
	"expval": circuit.Expectation,
	"var":    circuit.Variance,
	"sample": circuit.Sample,
}

// loadCircuitFile reads path. Files ending in .qasm are taken as a bare
// circuit; anything else is parsed as YAML and validated.
func loadCircuitFile(path string) (*circuitFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read circuit file")
	}

	if strings.EqualFold(filepath.Ext(path), ".qasm") {
		return &circuitFile{
			Name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Circuit: string(data),
			path:    path,
		}, nil
	}

	f, err := parseCircuitFile(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	f.path = path
	return f, nil
}

func parseCircuitFile(data []byte) (*circuitFile, error) {
	var f circuitFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse yaml")
	}
	if err := validate.Struct(&f); err != nil {
		return nil, errors.Wrap(err, "validate")
	}
	return &f, nil
}

// instructions converts the file's circuit into raw instructions.
func (f *circuitFile) instructions() ([]circuit.Instruction, error) {
	if f.Circuit != "" {
		return qasm.Parse(f.Circuit)
	}

	out := make([]circuit.Instruction, 0, len(f.Ops))
	for i, op := range f.Ops {
		spec, ok := circuit.Lookup(op.Gate)
		if !ok {
			return nil, errors.Wrapf(circuit.ErrUnknownGate, "ops[%d]: %q", i, op.Gate)
		}
		params := make([]circuit.Param, len(op.Params))
		for j, s := range op.Params {
			p, err := circuit.ParseParam(s)
			if err != nil {
				return nil, errors.Wrapf(err, "ops[%d].params[%d]", i, j)
			}
			params[j] = p
		}
		out = append(out, circuit.Instruction{
			Gate:   spec,
			Wires:  op.Wires,
			Params: params,
			Return: returnKinds[op.Return],
		})
	}
	return out, nil
}

// build returns the dependency graph of the file's circuit.
func (f *circuitFile) build(log logr.Logger) (*circuit.Graph, error) {
	instrs, err := f.instructions()
	if err != nil {
		return nil, err
	}
	return circuit.Build(instrs, circuit.WithLogr(log), circuit.WithName(f.Name))
}

// values returns the parameter values for g: the file's when present,
// zeros otherwise.
func (f *circuitFile) values(g *circuit.Graph) ([]float64, error) {
	if len(f.Params) == 0 {
		return make([]float64, g.NumParams()), nil
	}
	if len(f.Params) != g.NumParams() {
		return nil, errors.Wrapf(qnode.ErrParamLength, "file has %d, circuit uses %d", len(f.Params), g.NumParams())
	}
	return append([]float64(nil), f.Params...), nil
}

// gradOptions translates the gradient section into qnode options.
func (f *circuitFile) gradOptions() []qnode.GradOption {
	var opts []qnode.GradOption
	if f.Gradient.Order != 0 {
		opts = append(opts, qnode.Order(f.Gradient.Order))
	}
	if f.Gradient.Step != 0 {
		opts = append(opts, qnode.Step(f.Gradient.Step))
	}
	if len(f.Gradient.Which) > 0 {
		opts = append(opts, qnode.Which(f.Gradient.Which...))
	}
	return opts
}
