package bob

import (
	"fmt"
	"io"
)

// Report writes a human-readable summary of the statistics since the
// controller was built.
func (c *Comp) Report(w io.Writer) {
	c.Stats().Write(w)
}

// Write renders the statistics as text.
func (s Stats) Write(w io.Writer) {
	fmt.Fprintf(w, " === BOB Stats (epoch %d, cycle %d) ===\n", s.Epoch, s.Cycle)
	fmt.Fprintf(w, " == Bandwidth %.4f GB/s over %d cycles\n", s.Bandwidth, s.Cycles)

	fmt.Fprintln(w, " == Ports")
	for i, p := range s.Ports {
		fmt.Fprintf(w,
			"  -- Port %d - inputBufferAvg : %.3f   outputBufferAvg : %.3f   "+
				"reqIdle : %.1f%%   rspIdle : %.1f%%\n",
			i, p.InputBufferAvg, p.OutputBufferAvg,
			p.RequestIdlePercent, p.ResponseIdlePercent)
	}

	fmt.Fprintln(w, " == Link Bandwidth (includes packet overhead)")
	for i, l := range s.Links {
		fmt.Fprintf(w, "  -- Link %d : req %8.4f GB/s   rsp %8.4f GB/s\n",
			i, l.RequestBandwidth, l.ResponseBandwidth)
	}

	fmt.Fprintln(w, " == Channel Usage")
	fmt.Fprintf(w, "  %4s %8s %9s %8s %9s %9s %9s %9s %8s %9s %7s %8s\n",
		"ch", "reqs", "workQAvg", "workQMax", "idleBanks", "actBanks",
		"preBanks", "refBanks", "busIdle", "BW", "RRQMax", "RRQFull")

	for i, ch := range s.Channels {
		fmt.Fprintf(w,
			"  %4d %8d %9.3f %8d %9.3f %9.3f %9.3f %9.3f %7.2f%% %9.4f %7d %8d\n",
			i, ch.Requests, ch.WorkQueueAvg, ch.WorkQueueMax, ch.IdleBanks,
			ch.ActiveBanks, ch.PrechargingBanks, ch.RefreshingBanks,
			ch.BusIdlePercent, ch.Bandwidth, ch.ReturnQueueMax, ch.ReturnQueueFull)
	}

	fmt.Fprintln(w, " == Requests seen at Channels")
	fmt.Fprintf(w, "  -- Reads  : %d\n", s.ReadsAtChannels)
	fmt.Fprintf(w, "  -- Writes : %d\n", s.WritesAtChannels)
	fmt.Fprintf(w, "  -- Logic  : %d\n", s.LogicOps)

	fmt.Fprintln(w, " == Latency (ns)")
	fmt.Fprintf(w, "  -- Full    : mean %.3f std %.3f min %.3f max %.3f (%d reads)\n",
		s.Latency.Full.Mean, s.Latency.Full.Std, s.Latency.Full.Min,
		s.Latency.Full.Max, s.Latency.Count)
	fmt.Fprintf(w, "  -- Channel : mean %.3f\n", s.Latency.Channel.Mean)
	fmt.Fprintf(w, "  -- DRAM    : mean %.3f\n", s.Latency.DRAM.Mean)

	fmt.Fprintln(w, " == Channel Power")
	for i, ch := range s.Channels {
		fmt.Fprintf(w, "    -- Channel %d : %.4fw\n", i, ch.Power)
		for r, p := range ch.Ranks {
			fmt.Fprintf(w,
				"     -- Rank %d : TOT :%.4f  bkg:%.4f brst:%.4f ap:%.4f ref:%.4f\n",
				r, p.Total, p.Background, p.Burst, p.ActPre, p.Refresh)
		}
	}

	fmt.Fprintln(w, " == Power")
	fmt.Fprintf(w, "  -- DRAM                  : %.4fw\n", s.DRAMPower)
	fmt.Fprintf(w, "  -- Controller background : %.4fw\n", s.ControllerBackgroundPower)
	fmt.Fprintf(w, "  -- Controller core       : %.4fw\n", s.ControllerCorePower)
	fmt.Fprintf(w, "  -- System                : %.4fw\n", s.SystemPower)

	a := s.Admission
	fmt.Fprintln(w, " == Back-pressure")
	fmt.Fprintf(w, "  -- accepted %d  noPort %d  portFull %d  cmdQFull %d  "+
		"rrqFull %d  logicSlotBusy %d\n",
		a.Accepted, a.NoPortAvailable, a.PortFull, a.CmdQueueFull,
		a.ReturnQueueFull, a.LogicResponseSlotBusy)
}
