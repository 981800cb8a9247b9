// Package document holds the shared text buffer and applies edit operations
// to it.
//
// A Document has a single owner. Callers serialize access; nothing here locks.
package document

import (
	"errors"
	"fmt"

	"collabtext/edit"
)

var (
	// ErrIndexOutOfRange is returned when a position does not address the text.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrMissingOperand is returned for an insert or replace without a character.
	ErrMissingOperand = errors.New("missing operand")
)

// Document is a mutable text buffer indexed by character.
type Document struct {
	text []rune
}

// New returns a document holding seed.
func New(seed string) *Document {
	return &Document{text: []rune(seed)}
}

// Text returns the current contents.
func (d *Document) Text() string {
	return string(d.text)
}

func (d *Document) String() string {
	return fmt.Sprintf("%q", d.Text())
}

// Len returns the length of the text in characters.
func (d *Document) Len() int {
	return len(d.text)
}

// Apply applies a single operation. On error the text is unchanged.
func (d *Document) Apply(op edit.Op) error {
	pos := int(op.Position)
	switch op.Kind {
	case edit.KindDelete:
		if pos >= len(d.text) {
			return fmt.Errorf("%s on length %d: %w", op, len(d.text), ErrIndexOutOfRange)
		}
		d.remove(pos)
	case edit.KindInsert:
		if op.Operand == nil {
			return fmt.Errorf("%s: %w", op, ErrMissingOperand)
		}
		if pos > len(d.text) {
			return fmt.Errorf("%s on length %d: %w", op, len(d.text), ErrIndexOutOfRange)
		}
		d.insert(pos, *op.Operand)
	case edit.KindReplace:
		if op.Operand == nil {
			return fmt.Errorf("%s: %w", op, ErrMissingOperand)
		}
		if pos >= len(d.text) {
			return fmt.Errorf("%s on length %d: %w", op, len(d.text), ErrIndexOutOfRange)
		}
		d.remove(pos)
		d.insert(pos, *op.Operand)
	default:
		return fmt.Errorf("%s: %w", op, edit.ErrUnknownOpcode)
	}
	return nil
}

// ApplyBatch applies b in order and stops at the first failure. Operations
// applied before the failure are kept. It returns how many were applied.
func (d *Document) ApplyBatch(b edit.Batch) (int, error) {
	for i, op := range b {
		if err := d.Apply(op); err != nil {
			return i, fmt.Errorf("op %d of %d: %w", i, len(b), err)
		}
	}
	return len(b), nil
}

func (d *Document) insert(pos int, r rune) {
	d.text = append(d.text, 0)
	copy(d.text[pos+1:], d.text[pos:])
	d.text[pos] = r
}

func (d *Document) remove(pos int) {
	d.text = append(d.text[:pos], d.text[pos+1:]...)
}
