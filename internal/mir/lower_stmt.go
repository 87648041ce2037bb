package mir

import (
	"starling/internal/ast"
	"starling/internal/diag"
	"starling/internal/types"
)

func (l *funcLowerer) lowerStmts(stmts []ast.Stmt) {
	for i := range stmts {
		if l.err != nil {
			return
		}
		// Statements after a diverging terminator are unreachable; lower
		// them into a fresh block so dead-code elimination can drop them.
		if l.curBlock().Terminated() {
			l.startBlock(l.newBlock())
		}
		l.lowerStmt(&stmts[i])
	}
}

func (l *funcLowerer) lowerStmt(s *ast.Stmt) {
	switch s.Kind {
	case ast.StmtLet:
		l.lowerLet(s)
	case ast.StmtAssign:
		l.lowerAssign(s)
	case ast.StmtExpr:
		data := s.Data.(ast.ExprStmtData)
		l.lowerExpr(data.Expr, false)
	case ast.StmtIf:
		l.lowerIf(s)
	case ast.StmtWhile:
		l.lowerWhile(s)
	case ast.StmtFor:
		l.lowerFor(s)
	case ast.StmtMatch:
		l.lowerMatch(s)
	case ast.StmtReturn:
		l.lowerReturn(s)
	case ast.StmtBreak:
		if len(l.loopStack) == 0 {
			diag.ReportError(l.reporter, diag.StructBreakOutsideLoop, s.Span,
				"break used outside of any loop").
				WithFix("remove the break statement").
				Emit()
			l.setTerm(&Terminator{Kind: TermUnreachable})
			return
		}
		top := l.loopStack[len(l.loopStack)-1]
		l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: top.breakTarget}})
	case ast.StmtContinue:
		if len(l.loopStack) == 0 {
			diag.ReportError(l.reporter, diag.StructContinueOutsideLoop, s.Span,
				"continue used outside of any loop").
				WithFix("remove the continue statement").
				Emit()
			l.setTerm(&Terminator{Kind: TermUnreachable})
			return
		}
		top := l.loopStack[len(l.loopStack)-1]
		l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: top.continueTarget}})
	case ast.StmtBlock:
		data := s.Data.(ast.BlockData)
		l.lowerStmts(data.Body)
	}
}

func (l *funcLowerer) lowerLet(s *ast.Stmt) {
	data := s.Data.(ast.LetData)
	local := l.addLocal(data.Name, data.Type, data.IsMut, s.Span)
	l.localByName[data.Name] = local
	if data.Value == nil {
		return
	}
	op := l.lowerExpr(data.Value, true)
	l.emit(Instr{
		Kind: InstrAssign,
		Assign: AssignInstr{
			Dst: Place{Local: local},
			Src: RValue{Kind: RValueUse, Use: op},
		},
	})
}

func (l *funcLowerer) lowerAssign(s *ast.Stmt) {
	data := s.Data.(ast.AssignData)
	// Value before target: the old place contents may feed the rhs.
	op := l.lowerExpr(data.Value, true)
	dst, ok := l.lowerPlace(data.Target)
	if !ok {
		return
	}
	l.emit(Instr{
		Kind: InstrAssign,
		Assign: AssignInstr{
			Dst: dst,
			Src: RValue{Kind: RValueUse, Use: op},
		},
	})
}

// lowerIf closes the current block with a two-way SwitchInt. Each branch
// joins only when its last block is still open: a branch that ends in
// return keeps its Return terminator.
func (l *funcLowerer) lowerIf(s *ast.Stmt) {
	data := s.Data.(ast.IfData)
	cond := l.lowerExpr(data.Cond, false)

	thenBB := l.newBlock()
	elseBB := l.newBlock()
	joinBB := l.newBlock()

	l.setTerm(&Terminator{Kind: TermSwitchInt, SwitchInt: SwitchIntTerm{
		Disc:    cond,
		Cases:   []SwitchIntCase{{Value: 0, Target: elseBB}},
		Default: thenBB,
	}})

	l.startBlock(thenBB)
	l.lowerStmts(data.Then)
	l.gotoIfOpen(joinBB)

	l.startBlock(elseBB)
	l.lowerStmts(data.Else)
	l.gotoIfOpen(joinBB)

	l.startBlock(joinBB)
}

func (l *funcLowerer) lowerWhile(s *ast.Stmt) {
	data := s.Data.(ast.WhileData)

	headerBB := l.newBlock()
	l.gotoIfOpen(headerBB)

	l.startBlock(headerBB)
	cond := l.lowerExpr(data.Cond, false)
	bodyBB := l.newBlock()
	exitBB := l.newBlock()
	l.setTerm(&Terminator{Kind: TermSwitchInt, SwitchInt: SwitchIntTerm{
		Disc:    cond,
		Cases:   []SwitchIntCase{{Value: 0, Target: exitBB}},
		Default: bodyBB,
	}})

	l.loopStack = append(l.loopStack, loopCtx{continueTarget: headerBB, breakTarget: exitBB})
	l.startBlock(bodyBB)
	l.lowerStmts(data.Body)
	l.loopStack = l.loopStack[:len(l.loopStack)-1]

	// The body's final block loops back unless it already diverged.
	l.gotoIfOpen(headerBB)

	l.startBlock(exitBB)
}

// lowerFor desugars a classic for into while with a dedicated latch block
// so continue re-runs the post statement.
func (l *funcLowerer) lowerFor(s *ast.Stmt) {
	data := s.Data.(ast.ForData)
	if data.Init != nil {
		l.lowerStmt(data.Init)
	}

	headerBB := l.newBlock()
	l.gotoIfOpen(headerBB)

	l.startBlock(headerBB)
	bodyBB := l.newBlock()
	latchBB := l.newBlock()
	exitBB := l.newBlock()
	if data.Cond != nil {
		cond := l.lowerExpr(data.Cond, false)
		l.setTerm(&Terminator{Kind: TermSwitchInt, SwitchInt: SwitchIntTerm{
			Disc:    cond,
			Cases:   []SwitchIntCase{{Value: 0, Target: exitBB}},
			Default: bodyBB,
		}})
	} else {
		l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: bodyBB}})
	}

	l.loopStack = append(l.loopStack, loopCtx{continueTarget: latchBB, breakTarget: exitBB})
	l.startBlock(bodyBB)
	l.lowerStmts(data.Body)
	l.loopStack = l.loopStack[:len(l.loopStack)-1]
	l.gotoIfOpen(latchBB)

	l.startBlock(latchBB)
	if data.Post != nil {
		l.lowerStmt(data.Post)
	}
	l.gotoIfOpen(headerBB)

	l.startBlock(exitBB)
}

func (l *funcLowerer) lowerMatch(s *ast.Stmt) {
	data := s.Data.(ast.MatchData)
	disc := l.lowerExpr(data.Disc, false)

	joinBB := l.newBlock()
	term := SwitchIntTerm{Disc: disc, Default: NoBlockID}

	type armBlock struct {
		bb   BlockID
		body []ast.Stmt
	}
	arms := make([]armBlock, 0, len(data.Arms))
	for i := range data.Arms {
		arm := &data.Arms[i]
		bb := l.newBlock()
		arms = append(arms, armBlock{bb: bb, body: arm.Body})
		if arm.Wildcard {
			if term.Default == NoBlockID {
				term.Default = bb
			}
			continue
		}
		term.Cases = append(term.Cases, SwitchIntCase{Value: arm.Value, Target: bb})
	}

	if term.Default == NoBlockID {
		// No wildcard arm: the default edge goes to an unreachable block.
		// Whether that is a hole depends on the discriminant type.
		deadBB := l.newBlock()
		l.f.Blocks[deadBB].Term = Terminator{Kind: TermUnreachable}
		term.Default = deadBB
		if !l.matchIsExhaustive(&data) {
			diag.ReportError(l.reporter, diag.StructNonExhaustiveMatch, s.Span,
				"match does not cover every discriminant value and has no wildcard arm").
				WithFix("add a wildcard arm").
				Emit()
		}
	}

	l.setTerm(&Terminator{Kind: TermSwitchInt, SwitchInt: term})

	for _, arm := range arms {
		l.startBlock(arm.bb)
		l.lowerStmts(arm.body)
		l.gotoIfOpen(joinBB)
	}
	l.startBlock(joinBB)
}

// matchIsExhaustive holds only when an enum discriminant has every variant
// tag covered. Open integer types always need a wildcard.
func (l *funcLowerer) matchIsExhaustive(data *ast.MatchData) bool {
	if data.Disc == nil || l.types == nil {
		return false
	}
	tt, ok := l.types.Lookup(data.Disc.Type)
	if !ok {
		return false
	}
	covered := make(map[int64]bool, len(data.Arms))
	for i := range data.Arms {
		if !data.Arms[i].Wildcard {
			covered[data.Arms[i].Value] = true
		}
	}
	switch tt.Kind {
	case types.KindBool:
		return covered[0] && covered[1]
	case types.KindNamed:
		info := l.types.Named(tt.Named)
		if info == nil || info.Kind != types.NamedEnum {
			return false
		}
		for _, v := range info.Variants {
			if !covered[v.Tag] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (l *funcLowerer) lowerReturn(s *ast.Stmt) {
	data := s.Data.(ast.ReturnData)
	term := Terminator{Kind: TermReturn}
	if data.Value != nil {
		op := l.lowerExpr(data.Value, true)
		term.Return = ReturnTerm{HasValue: true, Value: op}
	}
	l.setTerm(&term)
}
