package dram

import "github.com/sarchlab/bobsim/hooking"

// HookPosCommandIssued marks a command placed on the command bus. The item is
// the *signal.BusPacket and the detail is a CommandDetail.
var HookPosCommandIssued = &hooking.HookPos{Name: "Command Issued"}

// HookPosRefresh marks a refresh placed on the command bus.
var HookPosRefresh = &hooking.HookPos{Name: "Refresh"}

// HookPosDataBusStart marks a packet placed on the data bus.
var HookPosDataBusStart = &hooking.HookPos{Name: "Data Bus Start"}

// HookPosReadDataReady marks read data leaving a rank after the CAS latency.
var HookPosReadDataReady = &hooking.HookPos{Name: "Read Data Ready"}

// HookPosReadReturned marks read data entering the read-return queue.
var HookPosReadReturned = &hooking.HookPos{Name: "Read Returned"}

// CommandDetail describes when a command was issued and the earliest cycles
// its bank allowed each kind of command right before the issue.
type CommandDetail struct {
	Channel int
	Cycle   uint64

	NextActivate uint64
	NextRead     uint64
	NextWrite    uint64
}

// DataDetail tells when a packet moved on or off the data bus.
type DataDetail struct {
	Channel int
	Cycle   uint64
}
