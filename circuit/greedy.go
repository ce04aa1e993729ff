package circuit

// Grid is a per-wire slot view of the circuit for drawing. Ops[i] and
// Observables[i] belong to wire Wires[i]; a nil entry is an empty slot.
type Grid struct {
	Wires       []int
	Ops         [][]*Operation
	Observables [][]*Operation
}

// Depth is the number of slots per wire.
func (gr Grid) Depth() int {
	if len(gr.Ops) == 0 {
		return 0
	}
	return len(gr.Ops[0])
}

// GreedyLayers packs each wire's operations into slots, deferring a
// multi-wire operation with empty slots until it sits in the same slot on
// every wire it acts on. Observables are returned separately; a wire with
// none gets a single nil entry.
func (g *Graph) GreedyLayers() Grid {
	wires := g.Wires()
	grid := Grid{
		Wires:       wires,
		Ops:         make([][]*Operation, len(wires)),
		Observables: make([][]*Operation, len(wires)),
	}
	for i, w := range wires {
		for _, id := range g.grid[w] {
			op := g.ops[id]
			if op.IsObservable() {
				grid.Observables[i] = append(grid.Observables[i], op)
			} else {
				grid.Ops[i] = append(grid.Ops[i], op)
			}
		}
		if len(grid.Observables[i]) == 0 {
			grid.Observables[i] = []*Operation{nil}
		}
	}

	slot := make([]*Operation, len(wires))
	for l := 0; ; l++ {
		count := make(map[*Operation]int)
		done := true
		for i, ops := range grid.Ops {
			slot[i] = nil
			if l < len(ops) {
				slot[i] = ops[l]
				count[ops[l]]++
				done = false
			}
		}
		if done {
			break
		}
		for i, op := range slot {
			switch {
			case op == nil:
				grid.Ops[i] = append(grid.Ops[i], nil)
			case op.NumWires() > count[op]:
				grid.Ops[i] = insertGap(grid.Ops[i], l)
			}
		}
	}
	return grid
}

func insertGap(ops []*Operation, at int) []*Operation {
	ops = append(ops, nil)
	copy(ops[at+1:], ops[at:])
	ops[at] = nil
	return ops
}
