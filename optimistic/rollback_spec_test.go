package optimistic

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/adevs-go/adevs/config"
	"github.com/adevs-go/adevs/devstime"
	"github.com/adevs-go/adevs/graph"
	"github.com/adevs-go/adevs/internal/testkit"
	"github.com/adevs-go/adevs/model"
)

// Scenarios S5 (rollback) and S6 (fossil collection) need a deterministic
// round schedule to reason about, so every spec here runs a single worker
// over a batch size of one: one logical process executes per round.
func rollbackConfig() config.EngineConfig {
	return config.EngineConfig{OptimisticBatchSize: 1, Workers: 1}
}

var _ = Describe("optimistic rollback", func() {
	// A drives a fast clock (ta=1) feeding B, whose own ta=100 is far enough
	// ahead that B's first execOutput speculates an output at t=100 before
	// ever seeing A's t=1 message. execDeltfunc then discovers the earlier
	// message and must invalidate that speculative output before it is ever
	// committed to a listener.
	var (
		g        *graph.Graph[int]
		aID, bID model.ID
		sim      *Simulator[int]
		rec      *testkit.RecordingListener
	)

	BeforeEach(func() {
		g = graph.New[int]()
		a := testkit.NewGenerator(1.0, 99)
		a.OutPin = "a-out"
		b := testkit.NewGenerator(100.0, 55)
		b.OutPin = "b-out"

		aID = g.AddAtomic(a)
		bID = g.AddAtomic(b)

		g.ConnectToAtomic("a-out", aID)
		g.Connect("a-out", "b-in")
		g.ConnectToAtomic("b-in", bID)

		var err error
		sim, err = New(g, rollbackConfig())
		Expect(err).NotTo(HaveOccurred())
		rec = testkit.NewRecordingListener()
		sim.AddEventListener(rec)
	})

	It("never lets B's invalidated speculative output reach a listener", func() {
		Expect(sim.ExecUntil(devstime.At(2))).To(Succeed())

		for _, e := range rec.Events {
			if e.Atomic == bID {
				Expect(e.Kind).NotTo(Equal("output"))
			}
		}
	})

	It("still delivers B's external input once the rollback settles", func() {
		Expect(sim.ExecUntil(devstime.At(2))).To(Succeed())

		var bInputs []testkit.Event
		for _, e := range rec.Events {
			if e.Atomic == bID && e.Kind == "input" {
				bInputs = append(bInputs, e)
			}
		}
		// A fires at t=1 and again at t=2 (stop itself), so B sees both.
		Expect(bInputs).To(HaveLen(2))
		Expect(bInputs[0].Value).To(Equal(99))
		Expect(bInputs[0].T).To(Equal(1.0))
		Expect(bInputs[1].T).To(Equal(2.0))
	})

	It("still advances A normally despite B's rollback", func() {
		Expect(sim.ExecUntil(devstime.At(2))).To(Succeed())

		var aOutputs []float64
		for _, e := range rec.Events {
			if e.Atomic == aID && e.Kind == "output" {
				aOutputs = append(aOutputs, e.T)
			}
		}
		Expect(aOutputs).To(Equal([]float64{1, 2}))
	})

	// S6: once a run completes, fossil collection must have committed every
	// notification and reclaimed every queue, leaving exactly one backstop
	// checkpoint per logical process.
	It("drains every LP's queues to empty and leaves one backstop checkpoint", func() {
		Expect(sim.ExecUntil(devstime.At(2))).To(Succeed())

		for id, lp := range sim.lps {
			Expect(lp.checkpoints).To(HaveLen(1), "lp %d checkpoints", id)
			Expect(lp.used).To(BeEmpty(), "lp %d used", id)
			Expect(lp.discard).To(BeEmpty(), "lp %d discard", id)
			Expect(lp.goodOutput).To(BeEmpty(), "lp %d goodOutput", id)
			Expect(lp.avail).To(BeEmpty(), "lp %d avail", id)
			Expect(lp.notifications).To(BeEmpty(), "lp %d notifications", id)
		}
	})
})

// A -> B -> C chain driven round by round instead of through ExecUntil, so B
// can be walked into a rollback of its own already-committed state (rather
// than the merely-speculative output the two-LP specs above exercise) and
// C's reaction to B's resulting anti-message can be checked directly. B's
// first round commits with no input at all, so its own "output invalidated"
// path never fires; the only way B ever raises rb_pending in this trace is
// the causality violation against committed state in its second round,
// which S5/S6 above never reach.
var _ = Describe("a genuine rollback of committed state cascading through a chain", func() {
	var (
		aID, bID, cID model.ID
		chain         *graph.Graph[int]
		sim           *Simulator[int]
		bLP, cLP      *LogicalProcess[int]
	)

	BeforeEach(func() {
		chain = graph.New[int]()
		a := testkit.NewGenerator(3.0, 7)
		a.OutPin = "a-out"
		b := testkit.NewGenerator(5.0, 42)
		b.OutPin = "b-out"
		c := testkit.NewReceiver(1000.0)

		aID = chain.AddAtomic(a)
		bID = chain.AddAtomic(b)
		cID = chain.AddAtomic(c)

		chain.ConnectToAtomic("a-out", aID)
		chain.Connect("a-out", "b-in")
		chain.ConnectToAtomic("b-in", bID)

		chain.ConnectToAtomic("b-out", bID)
		chain.Connect("b-out", "c-in")
		chain.ConnectToAtomic("c-in", cID)

		var err error
		sim, err = New(chain, rollbackConfig())
		Expect(err).NotTo(HaveOccurred())

		bLP = sim.lps[bID]
		cLP = sim.lps[cID]
	})

	It("sends B's anti-message to C only once B's primary rollback branch fires", func() {
		// Round 1: B commits naturally at t=5 with no input at all, so B
		// never touches its own "output invalidated" path.
		Expect(sim.execOutput(bLP)).To(Succeed())
		sim.execDeltfunc(bLP)
		Expect(bLP.rbPending).To(BeFalse())

		// C picks up B's t=5 output and commits a transition on it.
		Expect(sim.execOutput(cLP)).To(Succeed())
		sim.execDeltfunc(cLP)
		Expect(cLP.used).To(HaveLen(1))
		Expect(cLP.used[0].T).To(Equal(devstime.At(5)))

		// A fires for the first time, at t=3 -- strictly before the t=5 B
		// already committed to. This is a genuine causality violation
		// against already-committed state, not a merely speculative
		// output: it can only be resolved by rolling B back to before t=3
		// and replaying.
		aLP := sim.lps[aID]
		Expect(sim.execOutput(aLP)).To(Succeed())
		sim.execDeltfunc(aLP)

		sim.execDeltfunc(bLP)
		Expect(bLP.rbPending).To(BeTrue())
		Expect(bLP.rbTime).To(Equal(devstime.At(3).Epsilon()))

		// B's next execOutput must turn that rb_pending into an
		// anti-message addressed to every recipient it has ever routed
		// output to -- here, C. The same execOutput then sends B's replayed
		// output, now due at t=3+5=8.
		Expect(sim.execOutput(bLP)).To(Succeed())
		Expect(bLP.rbPending).To(BeFalse())

		// The anti-message cancels C's t=5 input; only the t=8 replay remains.
		sim.execDeltfunc(cLP)
		Expect(cLP.used).To(HaveLen(1))
		Expect(cLP.used[0].T).To(Equal(devstime.At(8)))
	})
})
