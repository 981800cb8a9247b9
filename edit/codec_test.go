package edit_test

import (
	"errors"
	"reflect"
	"testing"

	"collabtext/edit"
)

func ok(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func eq(t *testing.T, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func sample() edit.Batch {
	return edit.Batch{
		edit.Insert(0, 'a'),
		edit.Insert(0, 'b'),
		edit.Delete(1),
	}
}

func TestEncode(t *testing.T) {
	eq(t, edit.Encode(sample()), []byte{1, 97, 0, 1, 98, 0, 0, 0, 1})
}

func TestDecode(t *testing.T) {
	b, err := edit.Decode([]byte{1, 97, 0, 1, 98, 0, 0, 0, 1})
	ok(t, err)
	eq(t, b, sample())
}

func TestEncodeEmpty(t *testing.T) {
	eq(t, len(edit.Encode(nil)), 0)
	b, err := edit.Decode([]byte{})
	ok(t, err)
	eq(t, len(b), 0)
}

func TestEncodeLength(t *testing.T) {
	for n := 0; n < 20; n++ {
		b := make(edit.Batch, n)
		for i := range b {
			b[i] = edit.Replace(uint8(i), 'z')
		}
		eq(t, len(edit.Encode(b)), edit.OpSize*n)
	}
}

func TestDeleteOperandNotEncoded(t *testing.T) {
	r := 'q'
	op := edit.Op{Kind: edit.KindDelete, Operand: &r, Position: 4}
	eq(t, edit.Encode(edit.Batch{op}), []byte{0, edit.NoOperand, 4})
}

func TestRoundTrip(t *testing.T) {
	var b edit.Batch
	for pos := 0; pos <= edit.MaxPosition; pos++ {
		c := rune(pos%255 + 1)
		switch pos % 3 {
		case 0:
			b = append(b, edit.Delete(uint8(pos)))
		case 1:
			b = append(b, edit.Insert(uint8(pos), c))
		case 2:
			b = append(b, edit.Replace(uint8(pos), c))
		}
	}
	got, err := edit.Decode(edit.Encode(b))
	ok(t, err)
	eq(t, got, b)
}

func TestByteRoundTrip(t *testing.T) {
	data := []byte{2, 255, 255, 1, 1, 0, 0, 0, 7}
	b, err := edit.Decode(data)
	ok(t, err)
	eq(t, edit.Encode(b), data)
}

func TestDecodeMalformedLength(t *testing.T) {
	for _, n := range []int{1, 2, 4, 5, 7, 100} {
		_, err := edit.Decode(make([]byte, n))
		if !errors.Is(err, edit.ErrMalformedLength) {
			t.Fatalf("len %d: got %v, want ErrMalformedLength", n, err)
		}
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	for op := 3; op <= 255; op++ {
		b, err := edit.Decode([]byte{0, 0, 0, byte(op), 'x', 1})
		if !errors.Is(err, edit.ErrUnknownOpcode) {
			t.Fatalf("opcode %d: got %v, want ErrUnknownOpcode", op, err)
		}
		if b != nil {
			t.Fatalf("opcode %d: got partial batch %v", op, b)
		}
	}
}

func TestZeroOperandDecodesAbsent(t *testing.T) {
	b, err := edit.Decode([]byte{1, 0, 3})
	ok(t, err)
	eq(t, b[0].Kind, edit.KindInsert)
	if b[0].Operand != nil {
		t.Fatalf("got operand %q, want none", *b[0].Operand)
	}
	eq(t, b[0].Valid(), false)
}
