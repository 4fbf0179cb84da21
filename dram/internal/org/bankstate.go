// Package org models the banks and ranks of a DRAM channel.
package org

import (
	"fmt"
	"log"

	"github.com/sarchlab/bobsim/signal"
)

// BankStateKind is the coarse state of a bank.
type BankStateKind int

// The bank states.
const (
	BankIdle BankStateKind = iota
	BankRowActive
	BankPrecharging
	BankRefreshing
)

func (k BankStateKind) String() string {
	switch k {
	case BankIdle:
		return "Idle"
	case BankRowActive:
		return "Active"
	case BankPrecharging:
		return "Precharging"
	case BankRefreshing:
		return "Refreshing"
	}

	return fmt.Sprintf("BankStateKind(%d)", int(k))
}

// BankState is the timing state of one bank. All cycle values are in DRAM
// clock cycles of the owner of the state.
type BankState struct {
	State   BankStateKind
	OpenRow uint64

	NextActivate uint64
	NextRead     uint64
	NextWrite    uint64
	NextRefresh  uint64

	LastCommand          signal.PacketKind
	StateChangeCountdown int
}

// UpdateStateChange advances the countdown of the pending state change and
// applies the delayed effect of the last command when it reaches zero.
func (b *BankState) UpdateStateChange(tRP int) {
	if b.StateChangeCountdown <= 0 {
		return
	}

	b.StateChangeCountdown--
	if b.StateChangeCountdown > 0 {
		return
	}

	switch b.LastCommand {
	case signal.PacketRefresh:
		b.State = BankIdle
	case signal.PacketReadP, signal.PacketWriteP:
		b.State = BankPrecharging
		b.StateChangeCountdown = tRP
		b.LastCommand = signal.PacketPrecharge

		if tRP == 0 {
			b.State = BankIdle
		}
	case signal.PacketPrecharge:
		b.State = BankIdle
	default:
		log.Panicf("bank state change after unexpected command %s",
			b.LastCommand)
	}
}

// MakeBankStates creates the states of numRanks ranks with numBanks banks
// each.
func MakeBankStates(numRanks, numBanks int) [][]BankState {
	s := make([][]BankState, numRanks)
	for i := range s {
		s[i] = make([]BankState, numBanks)
	}

	return s
}

func maxCycle(a, b uint64) uint64 {
	if a > b {
		return a
	}

	return b
}
