package model

import (
	"regexp"
	"strings"
)

type OptionType int

const (
	OptionNone OptionType = iota
	OptionPut
	OptionCall
)

func (t OptionType) String() string {
	switch t {
	case OptionPut:
		return "PUT"
	case OptionCall:
		return "CALL"
	default:
		return "NONE"
	}
}

// OptionContract is what can be recovered from an option position's symbol.
type OptionContract struct {
	Underlying string
	Type       OptionType
}

// occSymbol matches OCC option symbols: root, optional padding, YYMMDD, C/P, strike*1000.
var occSymbol = regexp.MustCompile(`^([A-Z0-9.]{1,6}?)\s*(\d{6})([CP])(\d{8})$`)

// ParseOptionSymbol recognizes two encodings:
//
//	AAPL   240621P00150000   OCC
//	AAPL 21JUN24 150 P       space delimited, right marker P/PUT or C/CALL
//	BRK B 21JUN24 400 P      space delimited with a multi-token root
//
// Matching is case-insensitive. ok is false for anything else, including
// plain equity symbols.
func ParseOptionSymbol(symbol string) (OptionContract, bool) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return OptionContract{}, false
	}

	if m := occSymbol.FindStringSubmatch(s); m != nil {
		c := OptionContract{Underlying: m[1], Type: OptionCall}
		if m[3] == "P" {
			c.Type = OptionPut
		}
		return c, true
	}

	fields := strings.Fields(s)
	if len(fields) < 2 {
		return OptionContract{}, false
	}

	// The root runs up to the first token with a digit (expiry or strike),
	// so share classes like "BRK B" stay whole. Without such a token the
	// root is the first token only.
	root := 1
	for i := 1; i < len(fields); i++ {
		if strings.ContainsAny(fields[i], "0123456789") {
			root = i
			break
		}
	}
	underlying := strings.Join(fields[:root], " ")

	for _, f := range fields[root:] {
		switch f {
		case "P", "PUT":
			return OptionContract{Underlying: underlying, Type: OptionPut}, true
		case "C", "CALL":
			return OptionContract{Underlying: underlying, Type: OptionCall}, true
		}
	}
	return OptionContract{}, false
}

// ClassifyOption reports whether symbol encodes a put, a call, or neither.
func ClassifyOption(symbol string) OptionType {
	c, ok := ParseOptionSymbol(symbol)
	if !ok {
		return OptionNone
	}
	return c.Type
}

// IsOptionOn reports whether symbol is an option of the given type written on
// underlying.
func IsOptionOn(symbol, underlying string, t OptionType) bool {
	c, ok := ParseOptionSymbol(symbol)
	if !ok {
		return false
	}
	return c.Type == t && strings.EqualFold(c.Underlying, strings.TrimSpace(underlying))
}
