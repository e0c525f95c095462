package sim_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/integrators"
	"github.com/san-kum/hydrosim/internal/models"
	"github.com/san-kum/hydrosim/internal/sim"
)

type stepLog struct {
	events []dynamo.StepEvent
}

func (l *stepLog) OnStep(ev dynamo.StepEvent) { l.events = append(l.events, ev) }

func uniformTimes(n int) []float64 {
	tout := make([]float64, n+1)
	for i := range tout {
		tout[i] = float64(i)
	}
	return tout
}

func tolerances(rel, abs float64) dynamo.Options {
	return dynamo.Options{
		InitialStep: 0.25,
		MinStep:     1e-6,
		MaxStep:     1,
		RelTol:      rel,
		AbsTol:      []float64{abs, abs, abs, abs},
		Order:       2,
		MaxSteps:    1000000,
	}
}

// reference integrates with fixed tiny Heun steps.
func reference(dyn dynamo.System, x0 dynamo.State, tout []float64, steps int) []dynamo.State {
	h := integrators.NewHeun(len(x0))
	x := x0.Clone()
	out := []dynamo.State{x0.Clone()}
	for s := 1; s < len(tout); s++ {
		dt := (tout[s] - tout[s-1]) / float64(steps)
		for i := 0; i < steps; i++ {
			x = h.Step(dyn, s, tout[s-1]+float64(i)*dt, dt, x)
		}
		out = append(out, x.Clone())
	}
	return out
}

func maxDeviation(result *sim.Result, ref []dynamo.State) float64 {
	worst := 0.0
	for s := 1; s < len(ref); s++ {
		got := result.State(s)
		for i := range got {
			worst = math.Max(worst, math.Abs(got[i]-ref[s][i]))
		}
	}
	return worst
}

var _ = Describe("Rainfall-runoff integration", func() {
	var (
		ctx    context.Context
		params models.CRRParams
	)

	BeforeEach(func() {
		ctx = context.Background()
		params = models.CRRParams{Imax: 2, Sumax: 120, Qsmax: 0.1, AE: 2, AF: -3, AS: 1, Kf: 2, Ks: 50}
	})

	Context("with zero forcing", func() {
		It("drains every store monotonically", func() {
			n := 10
			forcing := models.Forcing{P: make([]float64, n), Ep: make([]float64, n)}
			crr := models.NewCRR(params, forcing)
			x0 := dynamo.State{1.5, 80, 10, 100}

			result, err := sim.New(crr, tolerances(1e-4, 1e-4)).Run(ctx, x0, uniformTimes(n))
			Expect(err).NotTo(HaveOccurred())

			for s := 1; s <= n; s++ {
				prev, cur := result.State(s-1), result.State(s)
				for i := range cur {
					Expect(cur[i]).To(BeNumerically("<=", prev[i]), "state %d at output %d", i, s)
				}
			}
			Expect(result.State(0)).To(Equal(x0))
		})
	})

	Context("with storm forcing", func() {
		var (
			crr  *models.CRR
			x0   dynamo.State
			tout []float64
			ref  []dynamo.State
		)

		BeforeEach(func() {
			params.Qsmax = 3
			crr = models.NewCRR(params, models.Forcing{
				P:  []float64{0, 12, 20, 4, 0, 0, 8, 0},
				Ep: []float64{3, 1, 0.5, 2, 4, 5, 2, 4},
			})
			x0 = dynamo.State{0.2, 40, 1, 60}
			tout = uniformTimes(8)
			ref = reference(crr, x0, tout, 20000)
		})

		It("tracks the fine-step reference", func() {
			result, err := sim.New(crr, tolerances(1e-5, 1e-5)).Run(ctx, x0, tout)
			Expect(err).NotTo(HaveOccurred())
			Expect(maxDeviation(result, ref)).To(BeNumerically("<", 1e-2))
		})

		It("does not lose accuracy when tolerances are halved", func() {
			loose, err := sim.New(crr, tolerances(1e-3, 1e-3)).Run(ctx, x0, tout)
			Expect(err).NotTo(HaveOccurred())
			tight, err := sim.New(crr, tolerances(5e-4, 5e-4)).Run(ctx, x0, tout)
			Expect(err).NotTo(HaveOccurred())

			Expect(maxDeviation(tight, ref)).To(BeNumerically("<=", maxDeviation(loose, ref)+1e-6))
		})

		It("keeps every step inside its bounds and covers each interval exactly", func() {
			opts := tolerances(1e-4, 1e-4)
			log := &stepLog{}
			s := sim.New(crr, opts)
			s.SetStepObserver(log)

			_, err := s.Run(ctx, x0, tout)
			Expect(err).NotTo(HaveOccurred())

			covered := make([]float64, len(tout))
			for _, ev := range log.events {
				t2 := tout[ev.Interval]
				Expect(ev.H).To(BeNumerically("<=", opts.MaxStep))
				Expect(ev.H).To(BeNumerically("<=", t2-ev.T))
				if ev.H < opts.MinStep {
					Expect(ev.H).To(Equal(t2 - ev.T))
				}
				if ev.Accepted {
					covered[ev.Interval] += ev.H
				}
			}
			for s := 1; s < len(tout); s++ {
				Expect(covered[s]).To(BeNumerically("~", tout[s]-tout[s-1], 1e-12))
			}
		})

		It("reports consistent statistics", func() {
			result, err := sim.New(crr, tolerances(1e-4, 1e-4)).Run(ctx, x0, tout)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Intervals).To(HaveLen(len(tout) - 1))
			Expect(result.Stats.Evaluations).To(Equal(2 * (result.Stats.Accepted + result.Stats.Rejected)))
			Expect(result.Stats.MaxStep).To(BeNumerically("<=", 1))
		})
	})

	Context("with the shapes at the linear limit", func() {
		It("still produces a finite trajectory", func() {
			params.AE, params.AF, params.AS = 0, 0, 0
			crr := models.NewCRR(params, models.Forcing{P: []float64{10, 0}, Ep: []float64{1, 3}})

			result, err := sim.New(crr, tolerances(1e-4, 1e-4)).Run(ctx, dynamo.State{0, 30, 0, 10}, uniformTimes(2))
			Expect(err).NotTo(HaveOccurred())
			for s := 0; s < 3; s++ {
				Expect(result.State(s).IsValid()).To(BeTrue())
			}
		})
	})

	Context("running parameter sets side by side", func() {
		It("matches sequential runs exactly", func() {
			forcing := models.Forcing{P: []float64{5, 15, 0, 2}, Ep: []float64{1, 1, 3, 2}}
			tout := uniformTimes(4)
			x0 := dynamo.State{0, 50, 1, 40}
			opts := tolerances(1e-4, 1e-4)

			var jobs []sim.Job
			for _, kf := range []float64{1, 2, 4} {
				p := params
				p.Kf = kf
				jobs = append(jobs, sim.Job{Name: "kf", System: models.NewCRR(p, forcing), X0: x0, Options: opts})
			}

			results, err := sim.NewEnsemble(tout, 3).Run(ctx, jobs)
			Expect(err).NotTo(HaveOccurred())

			for i, job := range jobs {
				seq, err := sim.New(job.System, opts).Run(ctx, x0, tout)
				Expect(err).NotTo(HaveOccurred())
				Expect(results[i].State(4)).To(Equal(seq.State(4)))
			}
		})
	})
})
