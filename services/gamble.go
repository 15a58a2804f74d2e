package services

import (
	"context"
	"math/rand"
	"time"
)

// FlipResult is the outcome of one coin flip.
type FlipResult struct {
	Result  string // "heads" or "tails", as shown to the user
	Won     bool
	Stake   int64
	Balance int64
}

// SpinResult is the outcome of one slot spin. Net is the signed change to the
// player's balance.
type SpinResult struct {
	Reels   [3]string
	Net     int64
	Balance int64
}

// GambleService computes randomized outcomes for the coin flip and the slot
// machine and settles them against the ledger. Reels are drawn uniformly and
// independently; the coin is biased only through the configured win
// probability. Both games share the economy mutex so the cooldown check, the
// balance check and the payout apply as one step.
type GambleService struct {
	cfg  Config
	econ *EconomyService

	// Seams for tests: flipRoll decides a flip (roll < winProb wins),
	// drawReel picks a symbol index, sleep is the suspense delay.
	flipRoll func() float64
	drawReel func() int
	sleep    func(ctx context.Context, d time.Duration)
}

func NewGambleService(cfg Config, econ *EconomyService) *GambleService {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &GambleService{
		cfg:      cfg,
		econ:     econ,
		flipRoll: rng.Float64,
		drawReel: func() int { return rng.Intn(len(cfg.SlotSymbols)) },
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
			}
		},
	}
}

// Flip stakes coins on heads or tails. The caller wins with the configured
// probability and the visible result is derived from that decision, so the
// house edge lives in exactly one constant.
func (g *GambleService) Flip(userID string, stake int64, call string) (*FlipResult, error) {
	if call != "heads" && call != "tails" {
		return nil, validationf("choose heads or tails")
	}
	if stake < 1 || stake > g.cfg.MaxBetCoinflip {
		return nil, validationf("bet must be between 1 and %d", g.cfg.MaxBetCoinflip)
	}

	g.econ.mu.Lock()
	defer g.econ.mu.Unlock()

	if g.econ.balances[userID] < stake {
		return nil, insufficientf("not enough coins")
	}
	if err := g.econ.tryConsumeLocked(userID, ActionCoinflip, g.cfg.GambleWindow); err != nil {
		return nil, err
	}

	won := g.flipRoll() < g.cfg.CoinflipWinProb
	result := call
	if !won {
		if call == "heads" {
			result = "tails"
		} else {
			result = "heads"
		}
	}
	if won {
		g.econ.balances[userID] += stake
	} else {
		g.econ.balances[userID] -= stake
	}
	if err := g.econ.flushBalances(); err != nil {
		return nil, err
	}
	if err := g.econ.flushCooldowns(); err != nil {
		return nil, err
	}
	return &FlipResult{Result: result, Won: won, Stake: stake, Balance: g.econ.balances[userID]}, nil
}

// Spin runs the slot machine: the stake is taken up front, the spin suspends
// for the presentation delay without holding any lock, then the reels resolve
// and the payout is settled. Triple match returns 4x the stake (net +3x), any
// pair 3x (net +2x), a miss nothing (net -stake). The outcome settles even if
// ctx is cancelled mid-delay, so a consumed stake is never lost.
func (g *GambleService) Spin(ctx context.Context, userID string, stake int64) (*SpinResult, error) {
	if stake < 1 || stake > g.cfg.MaxBetSlots {
		return nil, validationf("bet must be between 1 and %d", g.cfg.MaxBetSlots)
	}

	g.econ.mu.Lock()
	if g.econ.balances[userID] < stake {
		g.econ.mu.Unlock()
		return nil, insufficientf("not enough coins")
	}
	if err := g.econ.tryConsumeLocked(userID, ActionSlots, g.cfg.GambleWindow); err != nil {
		g.econ.mu.Unlock()
		return nil, err
	}
	g.econ.balances[userID] -= stake
	if err := g.econ.flushBalances(); err != nil {
		g.econ.mu.Unlock()
		return nil, err
	}
	if err := g.econ.flushCooldowns(); err != nil {
		g.econ.mu.Unlock()
		return nil, err
	}
	g.econ.mu.Unlock()

	g.sleep(ctx, g.cfg.SpinDelay)

	g.econ.mu.Lock()
	defer g.econ.mu.Unlock()

	var reels [3]string
	idx := [3]int{g.drawReel(), g.drawReel(), g.drawReel()}
	for i, n := range idx {
		reels[i] = g.cfg.SlotSymbols[n]
	}

	var payout int64
	switch {
	case idx[0] == idx[1] && idx[1] == idx[2]:
		payout = stake * 4 // net +3x
	case idx[0] == idx[1] || idx[1] == idx[2] || idx[0] == idx[2]:
		payout = stake * 3 // net +2x
	}
	if payout > 0 {
		g.econ.balances[userID] += payout
	}
	if err := g.econ.flushBalances(); err != nil {
		return nil, err
	}
	return &SpinResult{Reels: reels, Net: payout - stake, Balance: g.econ.balances[userID]}, nil
}
