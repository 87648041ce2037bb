package opt

import "starling/internal/mir"

// EliminateDeadCode removes unreachable blocks, deletes pure assignments
// to locals nothing ever reads, and compacts the local table. Parameter
// locals survive unconditionally: they shape the calling convention.
func EliminateDeadCode(f *mir.Func) {
	if f == nil || len(f.Blocks) == 0 {
		return
	}
	compactBlocks(f, computeReachability(f))

	// Removing a dead store can orphan the stores feeding its operands.
	for removeDeadStores(f) {
	}
	compactLocals(f)
}

// removeDeadStores drops assignments whose destination local is never
// read. Call terminators keep running for their effects; only the
// destination binding is dropped.
func removeDeadStores(f *mir.Func) bool {
	read := make([]bool, len(f.Locals))
	for _, p := range f.Params {
		if int(p.Local) < len(read) {
			read[p.Local] = true
		}
	}
	markPlace := func(p mir.Place) {
		if int(p.Local) < len(read) {
			read[p.Local] = true
		}
		for _, proj := range p.Proj {
			if proj.Kind == mir.PlaceProjIndex && int(proj.IndexLocal) < len(read) {
				read[proj.IndexLocal] = true
			}
		}
	}
	markOp := func(op *mir.Operand) {
		if op.Kind == mir.OperandCopy || op.Kind == mir.OperandMove {
			markPlace(op.Place)
		}
	}
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for ii := range b.Instrs {
			ins := &b.Instrs[ii]
			forEachOperand(ins, markOp)
			if ins.Kind == mir.InstrAssign {
				// Index locals and projected writes read the base.
				dst := ins.Assign.Dst
				for _, proj := range dst.Proj {
					if proj.Kind == mir.PlaceProjIndex && int(proj.IndexLocal) < len(read) {
						read[proj.IndexLocal] = true
					}
				}
				if len(dst.Proj) > 0 && int(dst.Local) < len(read) {
					read[dst.Local] = true
				}
			}
		}
		switch b.Term.Kind {
		case mir.TermSwitchInt:
			markOp(&b.Term.SwitchInt.Disc)
		case mir.TermReturn:
			if b.Term.Return.HasValue {
				markOp(&b.Term.Return.Value)
			}
		case mir.TermCall:
			for i := range b.Term.Call.Args {
				markOp(&b.Term.Call.Args[i])
			}
			if b.Term.Call.HasDst && len(b.Term.Call.Dst.Proj) > 0 {
				markPlace(b.Term.Call.Dst)
			}
		}
	}

	changed := false
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		kept := b.Instrs[:0]
		for ii := range b.Instrs {
			ins := b.Instrs[ii]
			if ins.Kind == mir.InstrNop {
				changed = true
				continue
			}
			if ins.Kind == mir.InstrAssign {
				dst := ins.Assign.Dst
				if len(dst.Proj) == 0 && int(dst.Local) < len(read) && !read[dst.Local] {
					changed = true
					continue
				}
			}
			kept = append(kept, ins)
		}
		b.Instrs = kept
		if b.Term.Kind == mir.TermCall && b.Term.Call.HasDst {
			dst := b.Term.Call.Dst
			if len(dst.Proj) == 0 && int(dst.Local) < len(read) && !read[dst.Local] {
				b.Term.Call.HasDst = false
				b.Term.Call.Dst = mir.Place{Local: mir.NoLocalID}
				changed = true
			}
		}
	}
	return changed
}

// compactLocals drops locals no instruction mentions and renumbers the
// survivors.
func compactLocals(f *mir.Func) {
	used := make([]bool, len(f.Locals))
	for _, p := range f.Params {
		if int(p.Local) < len(used) {
			used[p.Local] = true
		}
	}
	mark := func(p mir.Place) {
		if int(p.Local) < len(used) {
			used[p.Local] = true
		}
		for _, proj := range p.Proj {
			if proj.Kind == mir.PlaceProjIndex && int(proj.IndexLocal) < len(used) {
				used[proj.IndexLocal] = true
			}
		}
	}
	markOp := func(op *mir.Operand) {
		if op.Kind == mir.OperandCopy || op.Kind == mir.OperandMove {
			mark(op.Place)
		}
	}
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for ii := range b.Instrs {
			ins := &b.Instrs[ii]
			forEachOperand(ins, markOp)
			if ins.Kind == mir.InstrAssign {
				mark(ins.Assign.Dst)
			}
		}
		switch b.Term.Kind {
		case mir.TermSwitchInt:
			markOp(&b.Term.SwitchInt.Disc)
		case mir.TermReturn:
			if b.Term.Return.HasValue {
				markOp(&b.Term.Return.Value)
			}
		case mir.TermCall:
			for i := range b.Term.Call.Args {
				markOp(&b.Term.Call.Args[i])
			}
			if b.Term.Call.HasDst {
				mark(b.Term.Call.Dst)
			}
		}
	}

	count := 0
	for _, u := range used {
		if u {
			count++
		}
	}
	if count == len(f.Locals) {
		return
	}

	remap := make([]mir.LocalID, len(f.Locals))
	newLocals := make([]mir.Local, 0, count)
	for i, u := range used {
		if u {
			remap[i] = mir.LocalID(len(newLocals)) //nolint:gosec // G115: bounded by local count
			newLocals = append(newLocals, f.Locals[i])
		} else {
			remap[i] = mir.NoLocalID
		}
	}
	f.Locals = newLocals

	rmPlace := func(p *mir.Place) {
		if int(p.Local) < len(remap) {
			p.Local = remap[p.Local]
		}
		for i := range p.Proj {
			if p.Proj[i].Kind == mir.PlaceProjIndex && int(p.Proj[i].IndexLocal) < len(remap) {
				p.Proj[i].IndexLocal = remap[p.Proj[i].IndexLocal]
			}
		}
	}
	rmOp := func(op *mir.Operand) {
		if op.Kind == mir.OperandCopy || op.Kind == mir.OperandMove {
			rmPlace(&op.Place)
		}
	}
	for i := range f.Params {
		if int(f.Params[i].Local) < len(remap) {
			f.Params[i].Local = remap[f.Params[i].Local]
		}
	}
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for ii := range b.Instrs {
			ins := &b.Instrs[ii]
			forEachOperand(ins, rmOp)
			if ins.Kind == mir.InstrAssign {
				rmPlace(&ins.Assign.Dst)
			}
		}
		switch b.Term.Kind {
		case mir.TermSwitchInt:
			rmOp(&b.Term.SwitchInt.Disc)
		case mir.TermReturn:
			if b.Term.Return.HasValue {
				rmOp(&b.Term.Return.Value)
			}
		case mir.TermCall:
			for i := range b.Term.Call.Args {
				rmOp(&b.Term.Call.Args[i])
			}
			if b.Term.Call.HasDst {
				rmPlace(&b.Term.Call.Dst)
			}
		}
	}
}
