package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/sarchlab/bobsim/bob"
	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/datarecording"
	"github.com/sarchlab/bobsim/hooking"
	"github.com/sarchlab/bobsim/monitoring"
	"github.com/sarchlab/bobsim/tracing"
	"github.com/sarchlab/bobsim/traffic"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

const progressInterval = 10000

type runOptions struct {
	configPath    string
	envFile       string
	envFileSet    bool
	portHeuristic string

	cycles      uint64
	utilization float64
	readRatio   float64
	seed        int64

	record            string
	traceCommands     bool
	traceTransactions bool
	countEvents       bool

	monitor     bool
	monitorPort int
	openMonitor bool
}

var runOpts = runOptions{}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulator with random traffic.",
	Long: "Run drives every port of the controller with random bursts of " +
		"reads and writes for a number of CPU cycles and prints the " +
		"statistics at the end.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		runOpts.envFileSet = cmd.Flags().Changed("env-file")

		err := simulate(runOpts, cmd.OutOrStdout())
		if err != nil {
			return err
		}

		atexit.Exit(0)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVar(&runOpts.configPath, "config", "",
		"YAML or JSON configuration file. Defaults to $BOBSIM_CONFIG.")
	f.StringVar(&runOpts.envFile, "env-file", ".env",
		"File of environment variables to load before the run.")
	f.StringVar(&runOpts.portHeuristic, "port-heuristic", "",
		"Override the port heuristic "+
			"(FIRST_AVAILABLE, PER_CORE or ROUND_ROBIN).")
	f.Uint64Var(&runOpts.cycles, "cycles", 100000,
		"Number of CPU cycles to simulate.")
	f.Float64Var(&runOpts.utilization, "utilization", 1.0,
		"Fraction of cycles each port is busy.")
	f.Float64Var(&runOpts.readRatio, "read-ratio", 0.666,
		"Fraction of the requests that are reads.")
	f.Int64Var(&runOpts.seed, "seed", 11927,
		"Seed of the random traffic.")
	f.StringVar(&runOpts.record, "record", "",
		"Record the epoch statistics to a sqlite file, "+
			"or to MySQL with the value \"mysql\".")
	f.BoolVar(&runOpts.traceCommands, "trace-commands", false,
		"Record every DRAM command. Requires --record.")
	f.BoolVar(&runOpts.traceTransactions, "trace-transactions", false,
		"Record every finished transaction. Requires --record.")
	f.BoolVar(&runOpts.countEvents, "count-events", false,
		"Count the events of every hook position and print the counts.")
	f.BoolVar(&runOpts.monitor, "monitor", false,
		"Serve the simulation monitor over HTTP.")
	f.IntVar(&runOpts.monitorPort, "monitor-port", 0,
		"Port of the monitor. 0 picks a free port.")
	f.BoolVar(&runOpts.openMonitor, "open-monitor", false,
		"Open the monitor in a browser. Implies --monitor.")
}

// simulation is everything a run wires together.
type simulation struct {
	comp     *bob.Comp
	stream   *traffic.RandomStream
	recorder datarecording.DataRecorder
	exec     *datarecording.ExecRecorder
	monitor  *monitoring.Monitor
	events   *hooking.PosCounter
}

func simulate(o runOptions, out io.Writer) error {
	if err := loadEnv(o); err != nil {
		return err
	}

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	s, err := build(o, cfg)
	if err != nil {
		return err
	}

	s.run(o.cycles)
	s.comp.Report(out)
	s.reportEvents(out)
	s.finish()

	return nil
}

func loadEnv(o runOptions) error {
	if o.envFile == "" {
		return nil
	}

	if _, err := os.Stat(o.envFile); err != nil {
		if !o.envFileSet && errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	return godotenv.Load(o.envFile)
}

func loadConfig(o runOptions) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("BOBSIM_CONFIG")
	}

	cfg := config.Default()

	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}

		cfg = *loaded
	}

	b := config.MakeBuilderFrom(cfg)

	if o.portHeuristic != "" {
		var h config.PortHeuristic
		if err := h.UnmarshalText([]byte(o.portHeuristic)); err != nil {
			return nil, err
		}

		b = b.WithPortHeuristic(h)
	}

	return b.Build()
}

func openRecorder(record string) (datarecording.DataRecorder, error) {
	switch record {
	case "":
		return nil, nil
	case "mysql":
		c, err := datarecording.CredentialsFromEnv()
		if err != nil {
			return nil, err
		}

		return datarecording.NewMySQL(c, ""), nil
	default:
		return datarecording.New(strings.TrimSuffix(record, ".sqlite3")), nil
	}
}

func build(o runOptions, cfg *config.Config) (*simulation, error) {
	if (o.traceCommands || o.traceTransactions) && o.record == "" {
		return nil, errors.New("tracing requires --record")
	}

	s := &simulation{}
	b := bob.MakeBuilder().WithConfig(cfg)

	recorder, err := openRecorder(o.record)
	if err != nil {
		return nil, err
	}

	if recorder != nil {
		s.recorder = recorder
		s.exec = datarecording.NewExecRecorder(recorder)
		s.exec.Start()
		s.exec.Note("Cycles", fmt.Sprint(o.cycles))
		s.exec.Note("Utilization", fmt.Sprint(o.utilization))
		s.exec.Note("Read Ratio", fmt.Sprint(o.readRatio))
		s.exec.Note("Seed", fmt.Sprint(o.seed))
		s.exec.Note("Config", o.configPath)

		b = b.WithEpochListeners(tracing.NewEpochRecorder(recorder))

		if o.traceCommands {
			b = b.WithChannelHooks(tracing.NewCommandTracer(recorder))
		}

		if o.traceTransactions {
			b = b.WithAdditionalHooks(tracing.NewTransactionTracer(recorder))
		}
	}

	if o.countEvents {
		s.events = hooking.NewPosCounter()
		b = b.WithChannelHooks(s.events).WithAdditionalHooks(s.events)
	}

	s.comp = b.Build("BOB")
	s.stream = traffic.MakeBuilder().
		WithConfig(cfg).
		WithUtilization(o.utilization).
		WithReadRatio(o.readRatio).
		WithSeed(o.seed).
		Build(s.comp)

	if o.monitor || o.openMonitor {
		s.monitor = monitoring.NewMonitor().WithPortNumber(o.monitorPort)
		s.monitor.RegisterController(s.comp)

		url := s.monitor.StartServer()
		if o.openMonitor {
			if err := browser.OpenURL(url); err != nil {
				log.Printf("Cannot open the monitor: %v", err)
			}
		}
	}

	return s, nil
}

func (s *simulation) step() {
	s.stream.Tick()
	s.comp.Tick()
}

func (s *simulation) run(cycles uint64) {
	var bar *monitoring.ProgressBar
	if s.monitor != nil {
		bar = s.monitor.CreateProgressBar("Simulation", cycles)
		defer s.monitor.CompleteProgressBar(bar)
	}

	for i := uint64(0); i < cycles; i++ {
		if s.monitor != nil {
			s.monitor.Step(s.step)
		} else {
			s.step()
		}

		if bar != nil && (i+1)%progressInterval == 0 {
			bar.IncrementFinished(progressInterval)
		}
	}
}

func (s *simulation) reportEvents(w io.Writer) {
	if s.events == nil {
		return
	}

	fmt.Fprintln(w, " == Events")
	for _, name := range s.events.Names() {
		fmt.Fprintf(w, "  -- %-16s : %d\n",
			name, s.events.Count(&hooking.HookPos{Name: name}))
	}
}

func (s *simulation) finish() {
	if s.recorder == nil {
		return
	}

	st := s.stream.Stats()
	s.exec.Note("Generated", fmt.Sprint(st.Generated))
	s.exec.Note("Issued", fmt.Sprint(st.Issued))
	s.exec.End()

	if err := s.recorder.Close(); err != nil {
		log.Printf("Cannot close the recorder: %v", err)
	}
}
