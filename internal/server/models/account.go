package models

import (
	"sort"
	"strings"
	"time"
)

// Account is one game account of a user. At most one account per user has
// IsMain set.
type Account struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"account_name"`
	IsMain    bool      `json:"is_main"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountWithStats is the listing shape returned to clients.
type AccountWithStats struct {
	Account
	Stats AccountStats `json:"stats"`
}

// SortAccounts orders accounts in place: the primary account first, then by
// case-insensitive name, then by id.
func SortAccounts(accounts []Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		a, b := accounts[i], accounts[j]
		if a.IsMain != b.IsMain {
			return a.IsMain
		}
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})
}
