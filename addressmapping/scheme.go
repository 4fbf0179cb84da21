// Package addressmapping converts physical addresses into DRAM locations.
//
// Every supported scheme is a row in a field-order table. The same generic
// routine encodes and decodes all schemes, so adding a scheme means adding a
// row to the table.
package addressmapping

import (
	"fmt"
	"strings"
)

// Field is one of the bit fields that make up a physical address.
type Field int

// The fields that a scheme can order.
const (
	FieldChannel Field = iota
	FieldRank
	FieldBank
	FieldRow
	FieldColumn
	FieldColumnHigh
	FieldColumnLow
	FieldByte
)

func (f Field) String() string {
	switch f {
	case FieldChannel:
		return "CH"
	case FieldRank:
		return "RK"
	case FieldBank:
		return "BK"
	case FieldRow:
		return "RW"
	case FieldColumn:
		return "CL"
	case FieldColumnHigh:
		return "CLH"
	case FieldColumnLow:
		return "CLL"
	case FieldByte:
		return "BY"
	}

	return "??"
}

// Scheme selects the order of the address fields.
type Scheme int

// The supported schemes. The name lists the fields from the most significant
// bit to the least significant bit.
const (
	RwBkRkChClBy Scheme = iota
	RwChBkRkClBy
	RwBkRkClhChCllBy
	RwClhBkRkChCllBy
	ChRwBkRkClBy
	RkBkRwClhChCllBy
	ClhRwRkBkChCllBy
	BkClhRwRkChCllBy
)

// schemeTable lists the fields of each scheme, most significant first.
var schemeTable = map[Scheme][]Field{
	RwBkRkChClBy: {
		FieldRow, FieldBank, FieldRank, FieldChannel, FieldColumn, FieldByte,
	},
	RwChBkRkClBy: {
		FieldRow, FieldChannel, FieldBank, FieldRank, FieldColumn, FieldByte,
	},
	RwBkRkClhChCllBy: {
		FieldRow, FieldBank, FieldRank, FieldColumnHigh, FieldChannel,
		FieldColumnLow, FieldByte,
	},
	RwClhBkRkChCllBy: {
		FieldRow, FieldColumnHigh, FieldBank, FieldRank, FieldChannel,
		FieldColumnLow, FieldByte,
	},
	ChRwBkRkClBy: {
		FieldChannel, FieldRow, FieldBank, FieldRank, FieldColumn, FieldByte,
	},
	RkBkRwClhChCllBy: {
		FieldRank, FieldBank, FieldRow, FieldColumnHigh, FieldChannel,
		FieldColumnLow, FieldByte,
	},
	ClhRwRkBkChCllBy: {
		FieldColumnHigh, FieldRow, FieldRank, FieldBank, FieldChannel,
		FieldColumnLow, FieldByte,
	},
	BkClhRwRkChCllBy: {
		FieldBank, FieldColumnHigh, FieldRow, FieldRank, FieldChannel,
		FieldColumnLow, FieldByte,
	},
}

// AllSchemes returns every supported scheme in declaration order.
func AllSchemes() []Scheme {
	return []Scheme{
		RwBkRkChClBy,
		RwChBkRkClBy,
		RwBkRkClhChCllBy,
		RwClhBkRkChCllBy,
		ChRwBkRkClBy,
		RkBkRwClhChCllBy,
		ClhRwRkBkChCllBy,
		BkClhRwRkChCllBy,
	}
}

// Fields returns the field order of the scheme, most significant first.
func (s Scheme) Fields() []Field {
	fields, ok := schemeTable[s]
	if !ok {
		return nil
	}

	return append([]Field(nil), fields...)
}

// IsValid tells if the scheme has a row in the table.
func (s Scheme) IsValid() bool {
	_, ok := schemeTable[s]
	return ok
}

// SplitsColumn tells if the channel bits sit between the high and the low
// column bits. In that case the channel offset aligns with the cache line.
func (s Scheme) SplitsColumn() bool {
	for _, f := range schemeTable[s] {
		if f == FieldColumnLow {
			return true
		}
	}

	return false
}

func (s Scheme) String() string {
	fields, ok := schemeTable[s]
	if !ok {
		return fmt.Sprintf("Scheme(%d)", int(s))
	}

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}

	return strings.Join(names, "_")
}

// ParseScheme finds the scheme with the given name, such as
// "RW_CLH_BK_RK_CH_CLL_BY".
func ParseScheme(name string) (Scheme, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, s := range AllSchemes() {
		if s.String() == upper {
			return s, nil
		}
	}

	return 0, fmt.Errorf("unknown address mapping scheme %q", name)
}

// MarshalText renders the scheme by name.
func (s Scheme) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("unknown address mapping scheme %d", int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText parses a scheme name.
func (s *Scheme) UnmarshalText(text []byte) error {
	parsed, err := ParseScheme(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
