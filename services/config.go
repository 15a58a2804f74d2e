package services

import (
	"time"

	"clan-economy-bot/models"
)

// Config holds the engine tunables. Defaults mirror the live bot; main
// overrides individual values from the environment.
type Config struct {
	// Earning actions: cooldown window and inclusive reward range.
	DailyWindow  time.Duration
	DailyMin     int64
	DailyMax     int64
	WeeklyWindow time.Duration
	WeeklyMin    int64
	WeeklyMax    int64
	BegWindow    time.Duration
	BegMin       int64
	BegMax       int64

	// Gambling.
	GambleWindow    time.Duration
	MaxBetSlots     int64
	MaxBetCoinflip  int64
	CoinflipWinProb float64
	SlotSymbols     []string
	SpinDelay       time.Duration

	// Shop.
	Shop []models.ShopItem

	// Clans.
	ClanBaseGoal     int64
	ClanWeeklyWindow time.Duration
	ClanWeeklyMin    int64
	ClanWeeklyMax    int64
	InviteTimeout    time.Duration

	// Invite attribution.
	InviteRetention time.Duration
	InviteRewardMin int64
	InviteRewardMax int64
}

func DefaultConfig() Config {
	return Config{
		DailyWindow:  24 * time.Hour,
		DailyMin:     10000,
		DailyMax:     50000,
		WeeklyWindow: 7 * 24 * time.Hour,
		WeeklyMin:    100000,
		WeeklyMax:    600000,
		BegWindow:    time.Hour,
		BegMin:       2000,
		BegMax:       3000,

		GambleWindow:    5 * time.Second,
		MaxBetSlots:     250000,
		MaxBetCoinflip:  100000,
		CoinflipWinProb: 0.5,
		SlotSymbols:     []string{"🍒", "🍋", "🍇", "🍊", "💎", "7️⃣"},
		SpinDelay:       time.Second,

		Shop: []models.ShopItem{
			{Name: "Custom Channel", Price: 50000000},
			{Name: "Custom Role", Price: 10000000},
			{Name: "Custom Emoji", Price: 5000000},
		},

		ClanBaseGoal:     100000,
		ClanWeeklyWindow: 7 * 24 * time.Hour,
		ClanWeeklyMin:    50000,
		ClanWeeklyMax:    150000,
		InviteTimeout:    60 * time.Second,

		InviteRetention: 7 * 24 * time.Hour,
		InviteRewardMin: 10000,
		InviteRewardMax: 30000,
	}
}
