package addressmapping

import (
	"fmt"
	"log"
)

// Widths holds the number of bits of each address field.
type Widths struct {
	Channel   int
	Rank      int
	Bank      int
	Row       int
	Column    int
	ColumnLow int
	Byte      int
}

// ColumnHigh is the part of the column that is not covered by ColumnLow.
func (w Widths) ColumnHigh() int {
	return w.Column - w.ColumnLow
}

func (w Widths) of(f Field) int {
	switch f {
	case FieldChannel:
		return w.Channel
	case FieldRank:
		return w.Rank
	case FieldBank:
		return w.Bank
	case FieldRow:
		return w.Row
	case FieldColumn:
		return w.Column
	case FieldColumnHigh:
		return w.ColumnHigh()
	case FieldColumnLow:
		return w.ColumnLow
	case FieldByte:
		return w.Byte
	}

	log.Panicf("unknown address field %d", f)

	return 0
}

// Location is a decoded physical address.
type Location struct {
	Channel int
	Rank    int
	Bank    int
	Row     uint64
	Column  uint64
	Byte    uint64
}

type slot struct {
	field Field
	width int
	shift int
}

// A Mapper decodes and encodes addresses following one scheme.
type Mapper struct {
	scheme    Scheme
	widths    Widths
	slots     []slot
	totalBits int
}

// NewMapper creates a mapper for the scheme with the given field widths.
func NewMapper(scheme Scheme, widths Widths) (*Mapper, error) {
	fields, ok := schemeTable[scheme]
	if !ok {
		return nil, fmt.Errorf("unknown address mapping scheme %d", int(scheme))
	}

	if widths.ColumnLow > widths.Column {
		return nil, fmt.Errorf(
			"column low width %d is larger than column width %d",
			widths.ColumnLow, widths.Column)
	}

	m := &Mapper{
		scheme: scheme,
		widths: widths,
		slots:  make([]slot, len(fields)),
	}

	shift := 0
	for i := len(fields) - 1; i >= 0; i-- {
		w := widths.of(fields[i])
		if w < 0 {
			return nil, fmt.Errorf("negative width for field %s", fields[i])
		}

		m.slots[i] = slot{field: fields[i], width: w, shift: shift}
		shift += w
	}

	if shift > 64 {
		return nil, fmt.Errorf("address needs %d bits, more than 64", shift)
	}

	m.totalBits = shift

	return m, nil
}

// Scheme returns the scheme the mapper follows.
func (m *Mapper) Scheme() Scheme {
	return m.scheme
}

// TotalBits returns the number of address bits the scheme covers. Bits above
// are ignored by Decode.
func (m *Mapper) TotalBits() int {
	return m.totalBits
}

// Decode splits the address into its fields.
func (m *Mapper) Decode(addr uint64) Location {
	loc := Location{}
	var colHigh, colLow uint64

	for _, s := range m.slots {
		v := (addr >> uint(s.shift)) & mask(s.width)

		switch s.field {
		case FieldChannel:
			loc.Channel = int(v)
		case FieldRank:
			loc.Rank = int(v)
		case FieldBank:
			loc.Bank = int(v)
		case FieldRow:
			loc.Row = v
		case FieldColumn:
			loc.Column = v
		case FieldColumnHigh:
			colHigh = v
		case FieldColumnLow:
			colLow = v
		case FieldByte:
			loc.Byte = v
		}
	}

	if m.scheme.SplitsColumn() {
		loc.Column = colHigh<<uint(m.widths.ColumnLow) | colLow
	}

	return loc
}

// Encode assembles an address from the fields. Field values wider than their
// width are truncated.
func (m *Mapper) Encode(loc Location) uint64 {
	var addr uint64

	for _, s := range m.slots {
		var v uint64

		switch s.field {
		case FieldChannel:
			v = uint64(loc.Channel)
		case FieldRank:
			v = uint64(loc.Rank)
		case FieldBank:
			v = uint64(loc.Bank)
		case FieldRow:
			v = loc.Row
		case FieldColumn:
			v = loc.Column
		case FieldColumnHigh:
			v = loc.Column >> uint(m.widths.ColumnLow)
		case FieldColumnLow:
			v = loc.Column
		case FieldByte:
			v = loc.Byte
		}

		addr |= (v & mask(s.width)) << uint(s.shift)
	}

	return addr
}

// ChannelID extracts only the channel field. The channel is resolved before
// any channel-internal mapping takes place.
func (m *Mapper) ChannelID(addr uint64) int {
	for _, s := range m.slots {
		if s.field == FieldChannel {
			return int((addr >> uint(s.shift)) & mask(s.width))
		}
	}

	return 0
}

// ChannelOffset returns the bit position of the channel field.
func (m *Mapper) ChannelOffset() int {
	for _, s := range m.slots {
		if s.field == FieldChannel {
			return s.shift
		}
	}

	return 0
}

func mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << uint(width)) - 1
}
