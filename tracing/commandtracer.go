// Package tracing turns simulation events into rows of a data recorder.
package tracing

import (
	"github.com/sarchlab/bobsim/datarecording"
	"github.com/sarchlab/bobsim/dram"
	"github.com/sarchlab/bobsim/hooking"
	"github.com/sarchlab/bobsim/signal"
)

// CommandTable is the table a CommandTracer writes.
const CommandTable = "command_trace"

// CommandEntry is one command issued on a command bus.
type CommandEntry struct {
	Channel       int
	Cycle         uint64
	Kind          string
	Rank          int
	Bank          int
	Row           uint64
	Column        uint64
	TransactionID uint64
	FromLogicOp   bool
}

// CommandTracer is a hook that records every command that the DRAM channels
// issue. Register it on the channels with the channel hooks of the BOB
// builder.
type CommandTracer struct {
	recorder datarecording.DataRecorder

	start, end uint64
	count      uint64
}

// NewCommandTracer creates the command table in the recorder.
func NewCommandTracer(recorder datarecording.DataRecorder) *CommandTracer {
	recorder.CreateTable(CommandTable, CommandEntry{})

	return &CommandTracer{recorder: recorder}
}

// SetWindow limits the recording to the DRAM cycles in [start, end). An end
// of 0 means no limit.
func (t *CommandTracer) SetWindow(start, end uint64) {
	t.start = start
	t.end = end
}

// Count returns the number of commands recorded.
func (t *CommandTracer) Count() uint64 {
	return t.count
}

// Func records the command in the hook context.
func (t *CommandTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != dram.HookPosCommandIssued && ctx.Pos != dram.HookPosRefresh {
		return
	}

	p := ctx.Item.(*signal.BusPacket)
	d := ctx.Detail.(dram.CommandDetail)

	if d.Cycle < t.start || (t.end > 0 && d.Cycle >= t.end) {
		return
	}

	t.recorder.InsertData(CommandTable, CommandEntry{
		Channel:       d.Channel,
		Cycle:         d.Cycle,
		Kind:          p.Kind.String(),
		Rank:          p.Rank,
		Bank:          p.Bank,
		Row:           p.Row,
		Column:        p.Column,
		TransactionID: p.TransactionID,
		FromLogicOp:   p.FromLogicOp,
	})

	t.count++
}
