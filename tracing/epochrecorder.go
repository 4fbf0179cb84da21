package tracing

import (
	"github.com/sarchlab/bobsim/bob"
	"github.com/sarchlab/bobsim/datarecording"
)

// The tables an EpochRecorder writes.
const (
	SystemEpochTable  = "system_epoch"
	ChannelEpochTable = "channel_epoch"
	PortEpochTable    = "port_epoch"
)

// SystemEpochEntry summarizes the whole controller over one epoch.
type SystemEpochEntry struct {
	Epoch           uint64
	Cycle           uint64
	Bandwidth       float64
	ReturnedReads   uint64
	IssuedWrites    uint64
	LogicResponses  uint64
	MeanLatency     float64
	MaxLatency      float64
	SystemPower     float64
	Accepted        uint64
	NoPortAvailable uint64
	CmdQueueFull    uint64
}

// ChannelEpochEntry describes one channel over one epoch.
type ChannelEpochEntry struct {
	Epoch          uint64
	Cycle          uint64
	Channel        int
	Requests       uint64
	Bandwidth      float64
	BusIdlePercent float64
	WorkQueueAvg   float64
	WorkQueueMax   int
	ReturnQueueMax int
	Power          float64
	MeanLatency    float64
}

// PortEpochEntry describes one port over one epoch.
type PortEpochEntry struct {
	Epoch               uint64
	Cycle               uint64
	Port                int
	Requests            uint64
	Returns             uint64
	InputBufferAvg      float64
	OutputBufferAvg     float64
	RequestIdlePercent  float64
	ResponseIdlePercent float64
}

// EpochRecorder writes the statistics of every epoch into a data recorder.
type EpochRecorder struct {
	recorder datarecording.DataRecorder
}

// NewEpochRecorder creates the epoch tables in the recorder.
func NewEpochRecorder(recorder datarecording.DataRecorder) *EpochRecorder {
	recorder.CreateTable(SystemEpochTable, SystemEpochEntry{})
	recorder.CreateTable(ChannelEpochTable, ChannelEpochEntry{})
	recorder.CreateTable(PortEpochTable, PortEpochEntry{})

	return &EpochRecorder{recorder: recorder}
}

// EpochEnded records the statistics of an epoch.
func (r *EpochRecorder) EpochEnded(s bob.Stats) {
	r.recorder.InsertData(SystemEpochTable, SystemEpochEntry{
		Epoch:           s.Epoch,
		Cycle:           s.Cycle,
		Bandwidth:       s.Bandwidth,
		ReturnedReads:   s.ReturnedReads,
		IssuedWrites:    s.IssuedWrites,
		LogicResponses:  s.LogicResponses,
		MeanLatency:     s.Latency.Full.Mean,
		MaxLatency:      s.Latency.Full.Max,
		SystemPower:     s.SystemPower,
		Accepted:        s.Admission.Accepted,
		NoPortAvailable: s.Admission.NoPortAvailable,
		CmdQueueFull:    s.Admission.CmdQueueFull,
	})

	for i, ch := range s.Channels {
		r.recorder.InsertData(ChannelEpochTable, ChannelEpochEntry{
			Epoch:          s.Epoch,
			Cycle:          s.Cycle,
			Channel:        i,
			Requests:       ch.Requests,
			Bandwidth:      ch.Bandwidth,
			BusIdlePercent: ch.BusIdlePercent,
			WorkQueueAvg:   ch.WorkQueueAvg,
			WorkQueueMax:   ch.WorkQueueMax,
			ReturnQueueMax: ch.ReturnQueueMax,
			Power:          ch.Power,
			MeanLatency:    ch.Latency.Total,
		})
	}

	for i, p := range s.Ports {
		r.recorder.InsertData(PortEpochTable, PortEpochEntry{
			Epoch:               s.Epoch,
			Cycle:               s.Cycle,
			Port:                i,
			Requests:            p.Requests,
			Returns:             p.Returns,
			InputBufferAvg:      p.InputBufferAvg,
			OutputBufferAvg:     p.OutputBufferAvg,
			RequestIdlePercent:  p.RequestIdlePercent,
			ResponseIdlePercent: p.ResponseIdlePercent,
		})
	}
}
