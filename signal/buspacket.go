package signal

import "fmt"

// PacketKind is the DRAM command or data carried by a bus packet.
type PacketKind int

// The bus packet kinds.
const (
	PacketRead PacketKind = iota
	PacketReadP
	PacketWrite
	PacketWriteP
	PacketActivate
	PacketRefresh
	PacketPrecharge
	PacketReadData
	PacketWriteData
)

func (k PacketKind) String() string {
	switch k {
	case PacketRead:
		return "READ"
	case PacketReadP:
		return "READ_P"
	case PacketWrite:
		return "WRITE"
	case PacketWriteP:
		return "WRITE_P"
	case PacketActivate:
		return "ACT"
	case PacketRefresh:
		return "REF"
	case PacketPrecharge:
		return "PRE"
	case PacketReadData:
		return "DATA"
	case PacketWriteData:
		return "WRITE_DATA"
	}

	return fmt.Sprintf("PacketKind(%d)", int(k))
}

// IsCommand tells if the packet travels on the command bus.
func (k PacketKind) IsCommand() bool {
	return k != PacketReadData && k != PacketWriteData
}

// BusPacket is a command or a data burst on a DRAM channel.
type BusPacket struct {
	Kind          PacketKind
	TransactionID uint64
	Rank          int
	Bank          int
	Row           uint64
	Column        uint64
	BurstLength   int
	Channel       int
	Port          int
	Addr          uint64
	FromLogicOp   bool

	QueueWaitTime uint64
}

func (p *BusPacket) String() string {
	return fmt.Sprintf("BP [%s] T%d r%d b%d row%d col%d ch%d",
		p.Kind, p.TransactionID, p.Rank, p.Bank, p.Row, p.Column, p.Channel)
}
