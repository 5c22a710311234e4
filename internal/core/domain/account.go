package domain

// Account represents a financial account within the core domain.
// Accounts are owned and mutated by the remote ledger store; this core
// only reads them.
type Account struct {
	AccountID   string `json:"accountId"`   // Primary Key (UUID)
	Name        string `json:"name"`        // User-defined display name
	Category    string `json:"category"`    // Top-level grouping (e.g. "Housing")
	SubCategory string `json:"subCategory"` // Finer grouping within the category
	IsReal      bool   `json:"isReal"`      // true: bank-backed account, false: virtual budget category
}
