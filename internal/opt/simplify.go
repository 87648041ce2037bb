package opt

import "starling/internal/mir"

// SimplifyCFG removes trivial goto blocks, collapses goto chains, drops
// unreachable blocks and renumbers the remainder deterministically.
func SimplifyCFG(f *mir.Func) {
	if f == nil || len(f.Blocks) == 0 {
		return
	}
	redirects := buildRedirectMap(f)
	applyRedirects(f, redirects)
	compactBlocks(f, computeReachability(f))
}

// buildRedirectMap maps every trivial goto block (no instructions, goto
// terminator) to its final target, following chains.
func buildRedirectMap(f *mir.Func) map[mir.BlockID]mir.BlockID {
	redirects := make(map[mir.BlockID]mir.BlockID)
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if len(bb.Instrs) != 0 || bb.Term.Kind != mir.TermGoto {
			continue
		}
		target := bb.Term.Goto.Target
		visited := make(map[mir.BlockID]bool)
		for !visited[target] {
			visited[target] = true
			if next, ok := redirects[target]; ok {
				target = next
				continue
			}
			if isTrivialGoto(f, target) {
				target = f.Blocks[target].Term.Goto.Target
				continue
			}
			break
		}
		redirects[bb.ID] = target
	}
	return redirects
}

func isTrivialGoto(f *mir.Func, id mir.BlockID) bool {
	if id < 0 || int(id) >= len(f.Blocks) {
		return false
	}
	bb := &f.Blocks[id]
	return len(bb.Instrs) == 0 && bb.Term.Kind == mir.TermGoto
}

func applyRedirects(f *mir.Func, redirects map[mir.BlockID]mir.BlockID) {
	if len(redirects) == 0 {
		return
	}
	redirect := func(id mir.BlockID) mir.BlockID {
		if next, ok := redirects[id]; ok {
			return next
		}
		return id
	}
	for i := range f.Blocks {
		retarget(&f.Blocks[i].Term, redirect)
	}
	f.Entry = redirect(f.Entry)
}

// computeReachability walks successor edges from the entry block.
func computeReachability(f *mir.Func) []bool {
	reachable := make([]bool, len(f.Blocks))
	var visit func(id mir.BlockID)
	visit = func(id mir.BlockID) {
		if id < 0 || int(id) >= len(f.Blocks) || reachable[id] {
			return
		}
		reachable[id] = true
		for _, succ := range f.Blocks[id].Term.Successors(nil) {
			visit(succ)
		}
	}
	visit(f.Entry)
	return reachable
}

// compactBlocks drops unreachable blocks and renumbers the rest.
func compactBlocks(f *mir.Func, reachable []bool) {
	count := 0
	for _, r := range reachable {
		if r {
			count++
		}
	}
	if count == len(f.Blocks) {
		for i := range f.Blocks {
			f.Blocks[i].ID = mir.BlockID(i) //nolint:gosec // G115: bounded by existing block count
		}
		return
	}

	oldToNew := make(map[mir.BlockID]mir.BlockID, count)
	newBlocks := make([]mir.Block, 0, count)
	for i, keep := range reachable {
		if keep {
			//nolint:gosec // G115: bounded by existing block count
			oldToNew[mir.BlockID(i)] = mir.BlockID(len(newBlocks))
			newBlocks = append(newBlocks, f.Blocks[i])
		}
	}
	remap := func(id mir.BlockID) mir.BlockID {
		if next, ok := oldToNew[id]; ok {
			return next
		}
		return id
	}
	for i := range newBlocks {
		newBlocks[i].ID = mir.BlockID(i) //nolint:gosec // G115: bounded by newBlocks length
		retarget(&newBlocks[i].Term, remap)
	}
	f.Blocks = newBlocks
	f.Entry = remap(f.Entry)
}
