package tracing

import (
	"context"
	"database/sql"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bobsim/addressmapping"
	"github.com/sarchlab/bobsim/bob"
	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/datarecording"
	"github.com/sarchlab/bobsim/dram"
	"github.com/sarchlab/bobsim/hooking"
	"github.com/sarchlab/bobsim/signal"
	"go.uber.org/mock/gomock"
)

var _ = Describe("CommandTracer", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
		tracer   *CommandTracer
	)

	command := func(cycle uint64) hooking.HookCtx {
		return hooking.HookCtx{
			Pos: dram.HookPosCommandIssued,
			Item: &signal.BusPacket{
				Kind:          signal.PacketActivate,
				TransactionID: 12,
				Rank:          1,
				Bank:          3,
				Row:           40,
			},
			Detail: dram.CommandDetail{Channel: 2, Cycle: cycle},
		}
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)

		recorder.EXPECT().CreateTable(CommandTable, CommandEntry{})
		tracer = NewCommandTracer(recorder)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should record an issued command", func() {
		recorder.EXPECT().InsertData(CommandTable, CommandEntry{
			Channel:       2,
			Cycle:         100,
			Kind:          signal.PacketActivate.String(),
			Rank:          1,
			Bank:          3,
			Row:           40,
			TransactionID: 12,
		})

		tracer.Func(command(100))

		Expect(tracer.Count()).To(Equal(uint64(1)))
	})

	It("should record a refresh", func() {
		recorder.EXPECT().InsertData(CommandTable, gomock.Any()).
			Do(func(_ string, e any) {
				Expect(e.(CommandEntry).Kind).
					To(Equal(signal.PacketRefresh.String()))
			})

		tracer.Func(hooking.HookCtx{
			Pos:    dram.HookPosRefresh,
			Item:   &signal.BusPacket{Kind: signal.PacketRefresh, Rank: 2},
			Detail: dram.CommandDetail{Channel: 0, Cycle: 49},
		})
	})

	It("should ignore data bus events", func() {
		tracer.Func(hooking.HookCtx{
			Pos:    dram.HookPosDataBusStart,
			Item:   &signal.BusPacket{Kind: signal.PacketReadData},
			Detail: dram.DataDetail{Channel: 0, Cycle: 10},
		})

		Expect(tracer.Count()).To(BeZero())
	})

	It("should only record inside the window", func() {
		tracer.SetWindow(50, 60)
		recorder.EXPECT().InsertData(CommandTable, gomock.Any()).Times(2)

		for _, c := range []uint64{10, 49, 50, 59, 60, 70} {
			tracer.Func(command(c))
		}

		Expect(tracer.Count()).To(Equal(uint64(2)))
	})
})

var _ = Describe("EpochRecorder", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should write one row per channel and per port", func() {
		recorder.EXPECT().CreateTable(SystemEpochTable, SystemEpochEntry{})
		recorder.EXPECT().CreateTable(ChannelEpochTable, ChannelEpochEntry{})
		recorder.EXPECT().CreateTable(PortEpochTable, PortEpochEntry{})

		r := NewEpochRecorder(recorder)

		recorder.EXPECT().InsertData(SystemEpochTable, gomock.Any()).
			Do(func(_ string, e any) {
				Expect(e.(SystemEpochEntry).Epoch).To(Equal(uint64(4)))
				Expect(e.(SystemEpochEntry).Accepted).To(Equal(uint64(9)))
			})
		recorder.EXPECT().InsertData(ChannelEpochTable, gomock.Any()).Times(2)
		recorder.EXPECT().InsertData(PortEpochTable, PortEpochEntry{
			Epoch:    4,
			Cycle:    5000,
			Port:     0,
			Requests: 9,
		})

		r.EpochEnded(bob.Stats{
			Epoch:     4,
			Cycle:     5000,
			Channels:  make([]bob.ChannelStats, 2),
			Ports:     []bob.PortStats{{Requests: 9}},
			Admission: bob.Admission{Accepted: 9},
		})
	})
})

var _ = Describe("Tracing a BOB run", func() {
	var (
		db       *sql.DB
		recorder datarecording.DataRecorder
		commands *CommandTracer
		comp     *bob.Comp
	)

	BeforeEach(func() {
		var err error

		db, err = sql.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(1)

		recorder = datarecording.NewWithDB(db)
		commands = NewCommandTracer(recorder)

		cfg := config.MakeBuilder().WithEpochLength(500).MustBuild()
		comp = bob.MakeBuilder().
			WithConfig(cfg).
			WithChannelHooks(commands).
			WithAdditionalHooks(NewTransactionTracer(recorder)).
			WithEpochListeners(NewEpochRecorder(recorder)).
			Build("BOB")

		mapper, err := cfg.NewMapper()
		Expect(err).NotTo(HaveOccurred())

		for ch := 0; ch < 4; ch++ {
			addr := mapper.Encode(addressmapping.Location{Channel: ch, Row: 1})
			Expect(comp.Submit(addr, false, 0, nil)).To(BeTrue())
			comp.Tick()
		}

		for i := 0; i < 1500; i++ {
			comp.Tick()
		}

		recorder.Flush()
	})

	AfterEach(func() {
		recorder.Close()
	})

	count := func(table string) int {
		var n int
		Expect(db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)).
			To(Succeed())

		return n
	}

	It("should record commands, transactions and epochs", func() {
		Expect(comp.Outstanding()).To(BeZero())
		Expect(count(CommandTable)).To(BeNumerically(">=", 8))
		Expect(count(CommandTable)).To(Equal(int(commands.Count())))
		Expect(count(TransactionTable)).To(Equal(4))
		Expect(count(SystemEpochTable)).To(Equal(3))
		Expect(count(ChannelEpochTable)).To(Equal(3 * comp.NumChannels()))
		Expect(count(PortEpochTable)).To(Equal(3 * comp.NumPorts()))
	})

	It("should read the transactions back", func() {
		reader := datarecording.NewReaderWithDB(db)
		reader.MapTable(TransactionTable, TransactionEntry{})

		results, total, err := reader.Query(context.Background(),
			TransactionTable, datarecording.QueryParams{OrderBy: "Channel"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(4))

		for i, r := range results {
			e := r.(*TransactionEntry)
			Expect(e.Channel).To(Equal(i))
			Expect(e.Kind).To(Equal(signal.TransactionReturnData.String()))
			Expect(e.End).To(BeNumerically(">", e.Start))
			Expect(e.DRAM).To(BeNumerically(">", 0))
		}
	})
})
