package edit

import (
	"errors"
	"fmt"
)

// Wire layout: every operation is OpSize bytes, [opcode, operand, position].
// Operand and position are single bytes, so characters above U+00FF and
// positions above MaxPosition do not survive encoding.
const (
	OpSize = 3

	// NoOperand is the operand byte of an operation without a character.
	// A real operand of zero therefore cannot be sent.
	NoOperand = 0
)

var (
	// ErrMalformedLength is returned when a frame is not a whole number of operations.
	ErrMalformedLength = errors.New("frame length is not a multiple of 3")
	// ErrUnknownOpcode is returned for an opcode byte outside the known kinds.
	ErrUnknownOpcode = errors.New("unknown opcode")
)

// Encode serializes a batch. The result is always OpSize*len(b) bytes.
func Encode(b Batch) []byte {
	buf := make([]byte, 0, OpSize*len(b))
	for _, op := range b {
		operand := byte(NoOperand)
		if op.Kind.HasOperand() && op.Operand != nil {
			operand = byte(*op.Operand)
		}
		buf = append(buf, byte(op.Kind), operand, op.Position)
	}
	return buf
}

// Decode parses a frame produced by Encode. It fails as a whole: on error no
// operations are returned.
func Decode(data []byte) (Batch, error) {
	if len(data)%OpSize != 0 {
		return nil, fmt.Errorf("decode %d bytes: %w", len(data), ErrMalformedLength)
	}
	b := make(Batch, 0, len(data)/OpSize)
	for i := 0; i < len(data); i += OpSize {
		kind := Kind(data[i])
		if kind > KindReplace {
			return nil, fmt.Errorf("decode op %d: %w %d", i/OpSize, ErrUnknownOpcode, data[i])
		}
		op := Op{Kind: kind, Position: data[i+2]}
		if c := data[i+1]; c != NoOperand {
			r := rune(c)
			op.Operand = &r
		}
		b = append(b, op)
	}
	return b, nil
}
