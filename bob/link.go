package bob

import "github.com/sarchlab/bobsim/signal"

// A link is a serial bus between the controller and a group of channels. Each
// direction has a single-slot SerDes buffer and carries one packet at a time.
type link struct {
	id int

	reqSerDes    *signal.Transaction
	reqInFlight  *signal.Transaction
	reqCountdown int

	rspSerDes    *signal.Transaction
	rspInFlight  *signal.Transaction
	rspCountdown int

	rspRoundRobin int

	counters linkCounters
}

type linkCounters struct {
	RequestIdle  uint64
	ResponseIdle uint64
}

// requestFree tells if the request SerDes can take a new transaction.
func (l *link) requestFree() bool {
	return l.reqSerDes == nil && l.reqInFlight == nil
}

// responseFree tells if the response path can take a new transaction.
func (l *link) responseFree() bool {
	return l.rspSerDes == nil && l.rspInFlight == nil
}
