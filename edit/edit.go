// Package edit defines the edit operations exchanged between peers and their
// fixed-width wire encoding.
package edit

import "fmt"

// Kind is the type of an edit operation. The numeric value is the opcode
// written on the wire.
type Kind uint8

const (
	KindDelete  Kind = 0 // remove one character
	KindInsert  Kind = 1 // insert one character before a position
	KindReplace Kind = 2 // replace the character at a position
)

// MaxPosition is the largest position a single operation can address.
const MaxPosition = 255

func (k Kind) String() string {
	switch k {
	case KindDelete:
		return "del"
	case KindInsert:
		return "ins"
	case KindReplace:
		return "rep"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// HasOperand reports whether operations of this kind carry a character.
func (k Kind) HasOperand() bool {
	return k == KindInsert || k == KindReplace
}

// Op is a single edit operation. Position counts characters, not bytes.
// Operand is nil for deletes.
type Op struct {
	Kind     Kind
	Operand  *rune
	Position uint8
}

// Batch is an ordered list of operations. Each one is applied against the
// text left by the previous one.
type Batch []Op

// Delete returns an operation that removes the character at pos.
func Delete(pos uint8) Op {
	return Op{Kind: KindDelete, Position: pos}
}

// Insert returns an operation that inserts ch so that it ends up at pos.
func Insert(pos uint8, ch rune) Op {
	return Op{Kind: KindInsert, Operand: &ch, Position: pos}
}

// Replace returns an operation that overwrites the character at pos with ch.
func Replace(pos uint8, ch rune) Op {
	return Op{Kind: KindReplace, Operand: &ch, Position: pos}
}

// Valid reports whether the operand is present exactly when the kind needs one.
func (op Op) Valid() bool {
	return op.Kind.HasOperand() == (op.Operand != nil)
}

func (op Op) String() string {
	if op.Operand == nil {
		return fmt.Sprintf("%s:%d", op.Kind, op.Position)
	}
	return fmt.Sprintf("%s:%d:%q", op.Kind, op.Position, *op.Operand)
}
