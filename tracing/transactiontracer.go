package tracing

import (
	"github.com/sarchlab/bobsim/bob"
	"github.com/sarchlab/bobsim/datarecording"
	"github.com/sarchlab/bobsim/hooking"
	"github.com/sarchlab/bobsim/signal"
)

// TransactionTable is the table a TransactionTracer writes.
const TransactionTable = "transaction_trace"

// TransactionEntry is a transaction delivered to the host. Latencies are in
// CPU cycles.
type TransactionEntry struct {
	ID           uint64
	Kind         string
	Addr         uint64
	Port         int
	Channel      int
	CoreID       uint32
	Start        uint64
	End          uint64
	RequestPort  uint64
	RequestLink  uint64
	WorkQueue    uint64
	DRAM         uint64
	ReturnQueue  uint64
	ResponseLink uint64
	ResponsePort uint64
}

// TransactionTracer is a hook that records the transactions a BOB controller
// delivers to the host.
type TransactionTracer struct {
	recorder datarecording.DataRecorder
}

// NewTransactionTracer creates the transaction table in the recorder.
func NewTransactionTracer(
	recorder datarecording.DataRecorder,
) *TransactionTracer {
	recorder.CreateTable(TransactionTable, TransactionEntry{})

	return &TransactionTracer{recorder: recorder}
}

// Func records the transaction in the hook context.
func (t *TransactionTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != bob.HookPosTransactionDone {
		return
	}

	comp := ctx.Domain.(*bob.Comp)
	tr := ctx.Item.(*signal.Transaction)
	l := tr.Latency

	t.recorder.InsertData(TransactionTable, TransactionEntry{
		ID:           tr.ID,
		Kind:         tr.Kind.String(),
		Addr:         tr.Addr,
		Port:         tr.Port,
		Channel:      tr.Channel,
		CoreID:       tr.CoreID,
		Start:        l.FullStart,
		End:          comp.Cycle(),
		RequestPort:  l.ReqPort,
		RequestLink:  l.ReqLink,
		WorkQueue:    l.WorkQueue,
		DRAM:         l.DRAMTotal,
		ReturnQueue:  l.InRRQ,
		ResponseLink: l.RspLink,
		ResponsePort: l.RspPort,
	})
}
