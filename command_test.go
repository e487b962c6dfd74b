package main

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		text string
		op   op
		name string
	}{
		{"CREATE lobby", opCreate, "lobby"},
		{"DELETE lobby", opDelete, "lobby"},
		{"JOIN lobby", opJoin, "lobby"},
		{"LIST", opList, ""},
		{"LIST\n", opList, ""},
		{"JOIN lobby\r\n", opJoin, "lobby"},
		{"CREATE lobby\x00\x00\x00", opCreate, "lobby"},
		{"CREATE a", opCreate, "a"},
		{"CREATE a-much-longer-room-name-than-the-keyword", opCreate, "a-much-longer-room-name-than-the-keyword"},
		{"JOIN  spaced", opJoin, "spaced"},
		{"CREATE two words", opCreate, "two words"},
		{"LIST rooms", opList, ""},
		{"LIST \x00\x00", opList, ""},
		{"CREATE " + strings.Repeat("x", nameLenMax), opCreate, strings.Repeat("x", nameLenMax)},
	}
	for _, tt := range tests {
		req, err := parseRequest([]byte(tt.text))
		if err != nil {
			t.Fatal("Expectation: no error for", tt.text, "Received:", err)
		}
		if req.op != tt.op || req.name != tt.name {
			t.Fatal("Expectation:", tt.op, tt.name, "Received:", req.op, req.name)
		}
	}
}

func TestParseRequestInvalid(t *testing.T) {
	tests := []string{
		"",
		"FOO bar",
		"create lobby",
		"CREATE",
		"CREATE ",
		"CREATE \n",
		"CREATElobby",
		"JOIN",
		"LISTrooms",
		"CREATE a,b",
		"CREATE bad\x01name",
		"CREATE \xff\xfe",
		"CREATE " + strings.Repeat("x", nameLenMax+1),
		"JOIN " + strings.Repeat("é", nameLenMax/2+1),
	}
	for _, text := range tests {
		_, err := parseRequest([]byte(text))
		if err == nil {
			t.Fatalf("Expectation: error for %q, Received: nil", text)
		}
		if !errors.Is(err, errInvalidCommand) && !errors.Is(err, errNameInvalid) {
			t.Fatal("Expectation: invalid command or name error, Received:", err)
		}
	}
}

func TestLongestCreateFitsOneRead(t *testing.T) {
	text := "CREATE " + strings.Repeat("x", nameLenMax)
	if len(text) != commandBufferSize {
		t.Fatal("Expectation:", commandBufferSize, "Received:", len(text))
	}
}

func TestOpString(t *testing.T) {
	if opJoin.String() != "JOIN" {
		t.Fatal("Expectation: JOIN, Received:", opJoin.String())
	}
	if op(0).String() != "INVALID" {
		t.Fatal("Expectation: INVALID, Received:", op(0).String())
	}
}
