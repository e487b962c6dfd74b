package main

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	errInvalidCommand = errors.New("invalid command")
	errNameInvalid    = errors.New("invalid room name")
)

// op is a control command keyword.
type op int

const (
	opCreate op = iota + 1
	opDelete
	opJoin
	opList
)

var keywords = map[string]op{
	"CREATE": opCreate,
	"DELETE": opDelete,
	"JOIN":   opJoin,
	"LIST":   opList,
}

func (o op) String() string {
	for k, v := range keywords {
		if v == o {
			return k
		}
	}
	return "INVALID"
}

type request struct {
	op   op
	name string
}

// parseRequest turns one control message into a request. The keyword ends
// at the first space; everything after it, trimmed, is the room name.
func parseRequest(text []byte) (request, error) {
	line := strings.TrimRightFunc(string(text), isTrailing)
	keyword, arg, hasArg := strings.Cut(line, " ")
	o, ok := keywords[keyword]
	if !ok {
		return request{}, fmt.Errorf("%w: %q", errInvalidCommand, keyword)
	}
	arg = strings.TrimFunc(arg, isTrailing)

	// LIST ignores anything after the keyword.
	if o == opList {
		return request{op: o}, nil
	}
	if !hasArg || arg == "" {
		return request{}, fmt.Errorf("%w: %s requires a room name", errInvalidCommand, keyword)
	}
	if err := validateName(arg); err != nil {
		return request{}, err
	}
	return request{op: o, name: arg}, nil
}

// Clients may pad commands with newlines or a C string terminator.
func isTrailing(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

func validateName(name string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: must be valid UTF-8", errNameInvalid)
	}
	if n := len(name); n < nameLenMin || n > nameLenMax {
		return fmt.Errorf("%w: length must be %d-%d bytes", errNameInvalid, nameLenMin, nameLenMax)
	}
	if strings.ContainsRune(name, ',') {
		return fmt.Errorf("%w: must not contain ','", errNameInvalid)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: must not contain control characters", errNameInvalid)
	}
	return nil
}
