package ctrl

// RankEnergy accumulates the current drawn by one rank, in IDD units times
// cycles.
type RankEnergy struct {
	Background  int64
	Burst       int64
	ActPre      int64
	Refresh     int64
	IDD2NCycles uint64
}

// Total is the sum of all energy components.
func (e RankEnergy) Total() int64 {
	return e.Background + e.Burst + e.ActPre + e.Refresh
}

// Stats are the running counters of a controller. Sums are accumulated once
// per cycle, so dividing them by the cycle count gives averages.
type Stats struct {
	Cycles uint64

	Reads      uint64
	Writes     uint64
	Refreshes  uint64
	Activates  uint64
	ReadsDone  uint64
	WritesDone uint64

	ActivateQueueMax int
	ActivateQueueSum uint64

	IdleBanksSum        uint64
	ActiveBanksSum      uint64
	PrechargingBanksSum uint64
	RefreshingBanksSum  uint64

	ReturnQueueFull uint64

	Energy []RankEnergy
}

func (s Stats) clone() Stats {
	s.Energy = append([]RankEnergy(nil), s.Energy...)
	return s
}
