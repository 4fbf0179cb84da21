package dram

import (
	"github.com/sarchlab/bobsim/dram/internal/ctrl"
	"github.com/sarchlab/bobsim/dram/internal/logiclayer"
)

// ControllerStats are the counters of the command scheduler.
type ControllerStats = ctrl.Stats

// RankEnergy is the energy drawn by one rank.
type RankEnergy = ctrl.RankEnergy

// LogicStats are the counters of the logic layer.
type LogicStats = logiclayer.Stats

// Stats is a snapshot of the counters of a channel. Counters are cumulative
// since the channel was built, except the maxima, which restart at
// ResetMaxima.
type Stats struct {
	Cycles         uint64
	BusIdleCycles  uint64
	ReadsReturned  uint64
	WritesDone     uint64
	ReturnQueueMax int

	// ResponseStalls counts the cycles a finished logic operation waited for
	// the pending-response slot.
	ResponseStalls uint64

	Controller ControllerStats
	Logic      LogicStats
}
