package main

import (
	"reflect"
	"strings"
	"testing"

	"collabtext/edit"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want command
	}{
		{"see", command{name: "see"}},
		{"peers", command{name: "peers"}},
		{"history", command{name: "history"}},
		{"swi:room-2", command{name: "swi", arg: "room-2"}},
		{"save:/tmp/out.txt", command{name: "save", arg: "/tmp/out.txt"}},
		{"del:4", command{name: "del", op: edit.Delete(4)}},
		{"ins:0:H", command{name: "ins", op: edit.Insert(0, 'H')}},
		{"ins:3::", command{name: "ins", op: edit.Insert(3, ':')}},
		{"rep:255:é", command{name: "rep", op: edit.Replace(255, 'é')}},
		{"ins:1:x\r\n", command{name: "ins", op: edit.Insert(1, 'x')}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		line    string
		errPart string
	}{
		{"", "unknown opcode"},
		{"foo", "unknown opcode"},
		{"swi", "expected format `swi:value`"},
		{"del", "expected format `del:index`"},
		{"del:abc", "must be a number"},
		{"del:256", "must be a number"},
		{"del:-1", "must be a number"},
		{"ins:1", "expected format `ins:index:char`"},
		{"rep:1:ab", "single character"},
		{"ins:1:", "single character"},
		{"ins:1:€", "cannot be sent"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := parseCommand(tt.line)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.errPart)
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Fatalf("expected error containing %q, got %q", tt.errPart, err.Error())
			}
		})
	}
}

func TestCommandIsEdit(t *testing.T) {
	for name, want := range map[string]bool{"ins": true, "del": true, "rep": true, "see": false, "swi": false} {
		if got := (command{name: name}).isEdit(); got != want {
			t.Errorf("%s: got %t, want %t", name, got, want)
		}
	}
}
