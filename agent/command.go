package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"collabtext/edit"
)

// command is one parsed line of user input.
type command struct {
	name string
	arg  string
	op   edit.Op
}

func (c command) isEdit() bool {
	switch c.name {
	case "ins", "del", "rep":
		return true
	}
	return false
}

// parseCommand parses `op[:value[:char]]`. Only the char part may contain ':'.
func parseCommand(line string) (command, error) {
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), ":", 3)
	name := parts[0]
	value := ""
	if len(parts) > 1 {
		value = parts[1]
	}
	switch name {
	case "see", "peers", "history":
		return command{name: name}, nil
	case "swi", "save":
		if value == "" {
			return command{}, fmt.Errorf("expected format `%s:value`", name)
		}
		return command{name: name, arg: value}, nil
	case "del":
		if len(parts) < 2 {
			return command{}, fmt.Errorf("expected format `del:index`")
		}
		pos, err := parsePosition(value)
		if err != nil {
			return command{}, err
		}
		return command{name: name, op: edit.Delete(pos)}, nil
	case "ins", "rep":
		if len(parts) < 3 {
			return command{}, fmt.Errorf("expected format `%s:index:char`", name)
		}
		pos, err := parsePosition(value)
		if err != nil {
			return command{}, err
		}
		ch, err := parseChar(parts[2])
		if err != nil {
			return command{}, err
		}
		if name == "ins" {
			return command{name: name, op: edit.Insert(pos, ch)}, nil
		}
		return command{name: name, op: edit.Replace(pos, ch)}, nil
	default:
		return command{}, fmt.Errorf("unknown opcode: %q", name)
	}
}

func parsePosition(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("index %q must be a number between 0 and %d", s, edit.MaxPosition)
	}
	return uint8(n), nil
}

// parseChar accepts exactly one character that the wire format can carry.
func parseChar(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("expects char to be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == edit.NoOperand || r > 0xFF {
		return 0, fmt.Errorf("character %q cannot be sent: operands are limited to U+0001..U+00FF", r)
	}
	return r, nil
}
