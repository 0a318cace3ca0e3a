// Package scenarios holds the example SimBootstrap implementations the
// CLI's scenario registry serves (SPEC_FULL.md SUPPLEMENTED FEATURES).
// Banker is spec §4.8's worked example: one banker host, a health
// checker, a fault injector driven by its own seed-derived
// Sleep/Bounce InteractionPlan, and a protocol-exercising client
// driven by a Create/Get/List/GetBalance/Void/Sleep InteractionPlan.
package scenarios

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jihwankim/dst-sim/internal/bank"
	"github.com/jihwankim/dst-sim/pkg/async"
	"github.com/jihwankim/dst-sim/pkg/config"
	"github.com/jihwankim/dst-sim/pkg/determinism"
	"github.com/jihwankim/dst-sim/pkg/plan"
	"github.com/jihwankim/dst-sim/pkg/sim"
)

const bankerAddr = "server:7000"

// Banker implements sim.Bootstrap (spec §4.8).
type Banker struct {
	// BankerCount sizes tcp_capacity (spec's build_sim example);
	// BrokenList, when true, makes the server's List always answer
	// empty — the deliberately broken variant spec §8's E3 exercises.
	BankerCount int
	Interactions int
	BrokenList   bool

	mu            sync.Mutex
	pendingBounce []string
}

func NewBanker() *Banker {
	return &Banker{BankerCount: 1, Interactions: 64}
}

func (b *Banker) Init(ctx context.Context) error { return nil }

// BuildSim sizes tcp_capacity proportional to the scenario's client
// count, per spec §4.8's worked example.
func (b *Banker) BuildSim(cfg *config.SimConfig) {
	cfg.TCPCapacity = uint64(b.BankerCount+2) * (1 << 16)
}

func (b *Banker) OnStart(ctx context.Context, s *sim.Sim) error {
	env := determinism.FromContext(ctx)

	if err := s.Host("server", func(hctx context.Context) error {
		henv := determinism.FromContext(hctx)
		store := bank.NewStore(henv.FS)
		srv := bank.NewServer(bankerAddr, store)
		if b.BrokenList {
			return serveBroken(hctx, srv)
		}
		return srv.Serve(hctx)
	}); err != nil {
		return fmt.Errorf("banker: plant server: %w", err)
	}

	if err := s.ClientUntilCancelled("health", func(cctx context.Context) error {
		return healthLoop(cctx)
	}); err != nil {
		return fmt.Errorf("banker: plant health client: %w", err)
	}

	if err := s.ClientUntilCancelled("fault-injector", func(cctx context.Context) error {
		return b.faultInjectorLoop(cctx)
	}); err != nil {
		return fmt.Errorf("banker: plant fault injector: %w", err)
	}

	rng := env.RNG
	if err := s.Client("protocol", func(cctx context.Context) error {
		return runProtocolClient(cctx, rng, b.Interactions)
	}); err != nil {
		return fmt.Errorf("banker: plant protocol client: %w", err)
	}

	return nil
}

// OnStep drains the fault injector's deferred bounce requests against
// sim, the shape spec §4.8 describes for on_step.
func (b *Banker) OnStep(ctx context.Context, s *sim.Sim) error {
	b.mu.Lock()
	pending := b.pendingBounce
	b.pendingBounce = nil
	b.mu.Unlock()

	for _, name := range pending {
		if err := s.Bounce(name); err != nil {
			return fmt.Errorf("banker: bounce %s: %w", name, err)
		}
	}
	return nil
}

func (b *Banker) OnEnd(ctx context.Context, s *sim.Sim) error { return nil }

func (b *Banker) Props() map[string]interface{} {
	return map[string]interface{}{
		"banker_count": b.BankerCount,
		"interactions": b.Interactions,
		"broken_list":  b.BrokenList,
	}
}

func healthLoop(ctx context.Context) error {
	for {
		c, err := bank.Dial(ctx, bankerAddr)
		if err == nil {
			healthy, herr := c.Health()
			c.Close()
			if herr == nil && !healthy {
				panic("banker: health check returned unhealthy")
			}
		}
		if err := async.Sleep(ctx, 10*time.Millisecond); err != nil {
			return nil
		}
	}
}

// faultPlanCtx is the fault injector's InteractionPlan context: empty,
// since which host to bounce is fixed and nothing about a sleep or a
// bounce depends on what came before it.
type faultPlanCtx struct{}

func noopFaultRecorder(*faultPlanCtx, plan.Action) {}

// faultGenerator draws a Sleep/Bounce action: mostly sleeps of a
// duration skewed toward the short end, with a bounce accepted only
// 1 time in 10 on the rounds that try for one — so a bounce is rare
// relative to a sleep rather than split evenly between the two.
func faultGenerator(rng *determinism.RNG, _ *faultPlanCtx) plan.Action {
	for {
		if rng.Float64() < 0.5 {
			ms := rng.GenRangeDist(0, 100_000, 0.1)
			return plan.Action{Kind: plan.ActionSleep, Sleep: time.Duration(ms) * time.Millisecond}
		}
		if rng.Float64() < 0.9 {
			continue
		}
		return plan.Action{Kind: plan.ActionBounce, ID: "server"}
	}
}

// faultInjectorLoop drives a seed-derived InteractionPlan of Sleep and
// Bounce actions, queuing each Bounce for OnStep to apply against sim
// rather than calling s.Bounce directly from a client goroutine.
func (b *Banker) faultInjectorLoop(ctx context.Context) error {
	env := determinism.FromContext(ctx)
	p := plan.WithGenInteractions(env.RNG, faultPlanCtx{}, faultGenerator, noopFaultRecorder, 1000)

	for {
		a, ok := p.Step()
		if !ok {
			p.GenInteractions(1000)
			continue
		}
		switch a.Kind {
		case plan.ActionSleep:
			if err := async.Sleep(ctx, a.Sleep); err != nil {
				return nil
			}
		case plan.ActionBounce:
			b.mu.Lock()
			b.pendingBounce = append(b.pendingBounce, a.ID)
			b.mu.Unlock()
		}
	}
}

// serveBroken wraps Server.Serve's wire protocol with a deliberately
// regressed List endpoint, for spec §8's E3 end-to-end scenario.
func serveBroken(ctx context.Context, srv *bank.Server) error {
	return srv.ServeWithListOverride(ctx, func([]bank.Entity) []bank.Entity {
		return nil
	})
}

// bankerPlanCtx is the InteractionPlan's private context (spec §4.7):
// the logical ids the plan has created so far, used to bias Get actions
// toward ids that should exist.
type bankerPlanCtx struct {
	knownIDs []string
	nextID   int
}

// bankerActionCount is the number of equally-weighted ActionKind
// values bankerGenerator draws from: Create, Get, List, GetBalance,
// Void, Sleep.
const bankerActionCount = 6

func bankerGenerator(rng *determinism.RNG, ctx *bankerPlanCtx) plan.Action {
	kind := plan.ActionKind(rng.GenRange(0, bankerActionCount))
	switch kind {
	case plan.ActionCreate:
		amount := int64(rng.GenRange(1, 10_000))
		id := fmt.Sprintf("e%d", ctx.nextID)
		return plan.Action{Kind: plan.ActionCreate, Amount: amount, ID: id}
	case plan.ActionGet:
		if len(ctx.knownIDs) > 0 && rng.Float64() < 0.8 {
			return plan.Action{Kind: plan.ActionGet, ID: determinism.Choose(rng, ctx.knownIDs)}
		}
		return plan.Action{Kind: plan.ActionGet, ID: fmt.Sprintf("missing-%d", rng.NextU64())}
	case plan.ActionList:
		return plan.Action{Kind: plan.ActionList}
	case plan.ActionGetBalance:
		return plan.Action{Kind: plan.ActionGetBalance}
	case plan.ActionVoid:
		if len(ctx.knownIDs) > 0 && rng.Float64() < 0.8 {
			return plan.Action{Kind: plan.ActionVoid, ID: determinism.Choose(rng, ctx.knownIDs)}
		}
		return plan.Action{Kind: plan.ActionVoid, ID: fmt.Sprintf("missing-%d", rng.NextU64())}
	default:
		return plan.Action{Kind: plan.ActionSleep, Sleep: rng.GenDuration(time.Millisecond, 20*time.Millisecond)}
	}
}

func bankerRecorder(ctx *bankerPlanCtx, a plan.Action) {
	switch a.Kind {
	case plan.ActionCreate:
		ctx.knownIDs = append(ctx.knownIDs, a.ID)
		ctx.nextID++
	case plan.ActionVoid:
		for i, id := range ctx.knownIDs {
			if id == a.ID {
				ctx.knownIDs = append(ctx.knownIDs[:i], ctx.knownIDs[i+1:]...)
				break
			}
		}
	}
}

// runProtocolClient drives the protocol-exercising client described by
// spec §4.8: it asserts every required invariant against the sample
// service and panics (AssertionFailure, spec §7) on violation.
func runProtocolClient(ctx context.Context, rng *determinism.RNG, n int) error {
	p := plan.WithGenInteractions(rng, bankerPlanCtx{}, bankerGenerator, bankerRecorder, n)

	c, err := bank.Dial(ctx, bankerAddr)
	if err != nil {
		return fmt.Errorf("protocol client: dial: %w", err)
	}
	defer c.Close()

	created := map[string]bank.Entity{} // logical id -> real entity
	var createdAmounts []int64

	for {
		a, ok := p.Step()
		if !ok {
			return nil
		}
		switch a.Kind {
		case plan.ActionCreate:
			e, err := c.Create(a.Amount)
			if err != nil {
				return fmt.Errorf("protocol client: create: %w", err)
			}
			created[a.ID] = e
			createdAmounts = append(createdAmounts, a.Amount)

		case plan.ActionGet:
			real, known := created[a.ID]
			got, found, err := c.Get(firstOr(real.ID, a.ID))
			if err != nil {
				return fmt.Errorf("protocol client: get: %w", err)
			}
			if known && !found {
				panic(fmt.Sprintf("missing transaction with amount=%d", real.Amount))
			}
			if known && got.Amount != real.Amount {
				panic(fmt.Sprintf("get returned wrong amount for %s: want=%d got=%d", real.ID, real.Amount, got.Amount))
			}

		case plan.ActionList:
			entities, err := c.List()
			if err != nil {
				return fmt.Errorf("protocol client: list: %w", err)
			}
			for _, amount := range createdAmounts {
				if !hasAmount(entities, amount) {
					panic(fmt.Sprintf("missing transaction with amount=%d", amount))
				}
			}

		case plan.ActionVoid:
			real, known := created[a.ID]
			voided, err := c.Void(firstOr(real.ID, a.ID))
			if err != nil {
				return fmt.Errorf("protocol client: void: %w", err)
			}
			if known && !voided {
				panic(fmt.Sprintf("void failed for known transaction id=%s", real.ID))
			}
			if known {
				delete(created, a.ID)
				createdAmounts = removeAmount(createdAmounts, real.Amount)
			}

		case plan.ActionGetBalance:
			if _, err := c.Balance(); err != nil {
				panic(err.Error())
			}

		case plan.ActionSleep:
			if err := async.Sleep(ctx, a.Sleep); err != nil {
				return nil
			}
		}
	}
}

func firstOr(real, logical string) string {
	if real != "" {
		return real
	}
	return logical
}

func hasAmount(entities []bank.Entity, amount int64) bool {
	for _, e := range entities {
		if e.Amount == amount {
			return true
		}
	}
	return false
}

// removeAmount drops the first occurrence of amount from amounts, for
// clearing a voided transaction's amount out of the List invariant's
// expected set.
func removeAmount(amounts []int64, amount int64) []int64 {
	for i, a := range amounts {
		if a == amount {
			return append(amounts[:i], amounts[i+1:]...)
		}
	}
	return amounts
}
