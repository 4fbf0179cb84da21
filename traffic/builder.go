package traffic

import (
	"log"
	"math/rand"

	"github.com/sarchlab/bobsim/config"
)

// seedStride separates the random sequences of the ports.
const seedStride = 11927

// Builder can build random streams.
type Builder struct {
	cfg         *config.Config
	readRatio   float64
	utilization float64
	seed        int64
}

// MakeBuilder creates a builder with a read ratio of 66.6% and a fully used
// port.
func MakeBuilder() Builder {
	return Builder{
		readRatio:   0.666,
		utilization: 1.0,
		seed:        seedStride,
	}
}

// WithConfig sets the configuration of the controller that the stream drives.
func (b Builder) WithConfig(cfg *config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithReadRatio sets the fraction of requests that are reads.
func (b Builder) WithReadRatio(r float64) Builder {
	b.readRatio = r
	return b
}

// WithUtilization sets the fraction of cycles that each port is busy.
func (b Builder) WithUtilization(u float64) Builder {
	b.utilization = u
	return b
}

// WithSeed sets the seed of the random sequences.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// Build creates a stream that submits requests to the controller.
func (b Builder) Build(ctrl Controller) *RandomStream {
	if b.readRatio < 0 || b.readRatio > 1 {
		log.Panicf("read ratio %f is not in [0, 1]", b.readRatio)
	}

	if b.utilization <= 0 || b.utilization > 1 {
		log.Panicf("utilization %f is not in (0, 1]", b.utilization)
	}

	cfg := b.cfg
	if cfg == nil {
		c := config.Default()
		cfg = &c
	}

	mapper, err := cfg.NewMapper()
	if err != nil {
		log.Panic(err)
	}

	addrMask := uint64(1)<<mapper.TotalBits() - 1
	addrMask &^= uint64(cfg.TransactionSize - 1)

	s := &RandomStream{
		ctrl:        ctrl,
		readRatio:   b.readRatio,
		utilization: b.utilization,
		addrMask:    addrMask,
		readCycles:  ceilDiv(cfg.ReadRequestBytes(), cfg.PortWidth),
		writeCycles: ceilDiv(cfg.WriteRequestBytes(), cfg.PortWidth),
	}

	for i := 0; i < cfg.NumPorts; i++ {
		s.ports = append(s.ports, &portStream{
			id:  i,
			rng: rand.New(rand.NewSource(b.seed + int64(i)*seedStride)),
		})
	}

	return s
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
