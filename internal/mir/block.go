package mir

// Block is a straight-line instruction sequence ending in exactly one
// terminator. Blocks live in the owning Func's flat arena and are
// addressed by index.
type Block struct {
	ID     BlockID
	Instrs []Instr
	Term   Terminator
}

// Terminated reports whether the block already ends in a terminator.
// Lowering consults this before emitting fall-through edges so that code
// after a return or break never grows an outgoing goto.
func (b *Block) Terminated() bool {
	return b == nil || b.Term.Kind != TermNone
}
