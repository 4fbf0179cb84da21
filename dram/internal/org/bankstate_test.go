package org

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bobsim/signal"
)

var _ = Describe("BankState", func() {
	var b BankState

	BeforeEach(func() {
		b = BankState{}
	})

	It("should stay put without a countdown", func() {
		b.State = BankRowActive
		b.UpdateStateChange(3)

		Expect(b.State).To(Equal(BankRowActive))
	})

	It("should precharge after a column command with auto-precharge", func() {
		b.State = BankRowActive
		b.LastCommand = signal.PacketReadP
		b.StateChangeCountdown = 2

		b.UpdateStateChange(3)
		Expect(b.State).To(Equal(BankRowActive))

		b.UpdateStateChange(3)
		Expect(b.State).To(Equal(BankPrecharging))
		Expect(b.LastCommand).To(Equal(signal.PacketPrecharge))
		Expect(b.StateChangeCountdown).To(Equal(3))

		for i := 0; i < 3; i++ {
			b.UpdateStateChange(3)
		}
		Expect(b.State).To(Equal(BankIdle))
	})

	It("should become idle after a refresh", func() {
		b.State = BankRefreshing
		b.LastCommand = signal.PacketRefresh
		b.StateChangeCountdown = 1

		b.UpdateStateChange(3)

		Expect(b.State).To(Equal(BankIdle))
	})

	It("should panic on an unexpected pending command", func() {
		b.LastCommand = signal.PacketActivate
		b.StateChangeCountdown = 1

		Expect(func() { b.UpdateStateChange(3) }).To(Panic())
	})
})
