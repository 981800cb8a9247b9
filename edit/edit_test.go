package edit_test

import (
	"testing"

	"collabtext/edit"
)

func TestKindCodes(t *testing.T) {
	eq(t, uint8(edit.KindDelete), uint8(0))
	eq(t, uint8(edit.KindInsert), uint8(1))
	eq(t, uint8(edit.KindReplace), uint8(2))
}

func TestValid(t *testing.T) {
	r := 'x'
	tests := []struct {
		op   edit.Op
		want bool
	}{
		{edit.Delete(0), true},
		{edit.Insert(0, 'x'), true},
		{edit.Replace(0, 'x'), true},
		{edit.Op{Kind: edit.KindDelete, Operand: &r}, false},
		{edit.Op{Kind: edit.KindInsert}, false},
		{edit.Op{Kind: edit.KindReplace}, false},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			eq(t, tt.op.Valid(), tt.want)
		})
	}
}

func TestString(t *testing.T) {
	eq(t, edit.Insert(0, 'H').String(), "ins:0:'H'")
	eq(t, edit.Delete(12).String(), "del:12")
	eq(t, edit.Replace(3, '\n').String(), `rep:3:'\n'`)
	eq(t, edit.Kind(9).String(), "kind(9)")
}
