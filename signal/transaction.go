// Package signal defines the transactions and bus packets that travel through
// the BOB system.
package signal

import "fmt"

// TransactionKind tells what a transaction carries.
type TransactionKind int

// The kinds of transactions.
const (
	TransactionRead TransactionKind = iota
	TransactionWrite
	TransactionReturnData
	TransactionLogicOp
	TransactionLogicResponse
)

func (k TransactionKind) String() string {
	switch k {
	case TransactionRead:
		return "Read"
	case TransactionWrite:
		return "Write"
	case TransactionReturnData:
		return "Data"
	case TransactionLogicOp:
		return "LogicOp"
	case TransactionLogicResponse:
		return "LogicResponse"
	}

	return fmt.Sprintf("TransactionKind(%d)", int(k))
}

// LogicOpKind selects the operation the logic layer performs.
type LogicOpKind int

// The logic operations.
const (
	PageFill LogicOpKind = iota
	MemCopy
	PageTableWalk
)

func (k LogicOpKind) String() string {
	switch k {
	case PageFill:
		return "PageFill"
	case MemCopy:
		return "MemCopy"
	case PageTableWalk:
		return "PageTableWalk"
	}

	return fmt.Sprintf("LogicOpKind(%d)", int(k))
}

// LogicOp is the payload of a logic operation transaction.
//
// PageFill takes the number of pages and the fill pattern, and writes from the
// transaction address. MemCopy takes the destination address and the number
// of transactions to copy from the transaction address. PageTableWalk takes
// one address per level.
type LogicOp struct {
	Kind LogicOpKind
	Args []uint64
}

// Latency records when a transaction passes each stage. All values are CPU
// cycles.
type Latency struct {
	ReqPort   uint64
	RspPort   uint64
	ReqLink   uint64
	RspLink   uint64
	InRRQ     uint64
	WorkQueue uint64

	FullStart    uint64
	DRAMStart    uint64
	DRAMTotal    uint64
	ChannelStart uint64
	ChannelTotal uint64
}

// Transaction is a request or a response moving between the host and a DRAM
// channel.
type Transaction struct {
	ID      uint64
	Kind    TransactionKind
	Addr    uint64
	Size    int
	Channel int
	Port    int
	CoreID  uint32

	Op          *LogicOp
	FromLogicOp bool

	Latency Latency
}

// NewTransaction creates a transaction with an ID from the generator.
func NewTransaction(
	ids IDGenerator,
	kind TransactionKind,
	size int,
	addr uint64,
) *Transaction {
	return &Transaction{
		ID:   ids.Generate(),
		Kind: kind,
		Size: size,
		Addr: addr,
	}
}

// IsRead tells if the transaction asks for data.
func (t *Transaction) IsRead() bool {
	return t.Kind == TransactionRead
}

// IsWrite tells if the transaction carries data to store.
func (t *Transaction) IsWrite() bool {
	return t.Kind == TransactionWrite
}

// IsResponse tells if the transaction travels from the DRAM to the host.
func (t *Transaction) IsResponse() bool {
	return t.Kind == TransactionReturnData ||
		t.Kind == TransactionLogicResponse
}

func (t *Transaction) String() string {
	s := fmt.Sprintf("T%d [%s] [0x%08x] port[%d] core[%d]",
		t.ID, t.Kind, t.Addr, t.Port, t.CoreID)
	if t.FromLogicOp {
		s += " [FromLogic]"
	}

	return s
}
