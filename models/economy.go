package models

// Balances maps a user id to their coin balance. Balances never go negative;
// zero is a valid resting state, not a deletion.
type Balances map[string]int64

// Cooldowns maps a user id to last-use epoch millis per gated action.
type Cooldowns map[string]map[string]int64

// Inventories maps a user id to owned item counts. Quantities only ever
// increment; there is no use-item operation.
type Inventories map[string]map[string]int64

// ShopItem is one entry of the fixed, ordered shop catalog.
type ShopItem struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// BalanceEntry is a leaderboard row.
type BalanceEntry struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}
