// Package ledgerapi is the HTTP adapter to the remote ledger store. The
// store owns accounts and transactions; this client only reads them and
// performs the edit session's single atomic update call.
package ledgerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ploutos-app/ploutos_edit_api/internal/apperrors"
	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	portsrepo "github.com/ploutos-app/ploutos_edit_api/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// Client implements the ledger repository port over HTTP/JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a ledger store client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ portsrepo.LedgerRepositoryFacade = (*Client)(nil)

// apiDate accepts dates with or without a time-of-day component; the store
// emits both.
type apiDate struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (d *apiDate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized date %q", s)
}

// The store emits account references under two spellings depending on the
// endpoint. Both are decoded here and collapsed into the canonical field once,
// at this boundary; nothing past this package ever sees the variant spelling.
type accountRecord struct {
	AccountID    string `json:"accountId"`
	AccountIDAlt string `json:"account_id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	SubCategory  string `json:"sub_category"`
	IsReal       bool   `json:"is_real"`
}

func canonicalID(camel, snake string) string {
	if camel != "" {
		return camel
	}
	return snake
}

type slaveRecord struct {
	SlaveID            string          `json:"slaveId"`
	Type               string          `json:"type"`
	Amount             decimal.Decimal `json:"amount"`
	Date               apiDate         `json:"date"`
	AccountID          string          `json:"accountId"`
	AccountIDAlt       string          `json:"account_id"`
	MasterID           string          `json:"masterId"`
	SlaveAccountName   string          `json:"slaveAccountName"`
	SlaveAccountIsReal bool            `json:"slaveAccountIsReal"`
}

type transactionRecord struct {
	TransactionID       string          `json:"transactionId"`
	Description         string          `json:"description"`
	Date                apiDate         `json:"date"`
	Type                string          `json:"type"`
	Amount              decimal.Decimal `json:"amount"`
	AccountID           string          `json:"accountId"`
	AccountIDAlt        string          `json:"account_id"`
	MasterAccountName   string          `json:"masterAccountName"`
	MasterAccountIsReal bool            `json:"masterAccountIsReal"`
	CreatedAt           apiDate         `json:"created_at"`
	UpdatedAt           apiDate         `json:"updated_at"`
	Slaves              []slaveRecord   `json:"TransactionsSlaves"`
}

type slaveUpdate struct {
	SlaveID string          `json:"slaveId"`
	Type    string          `json:"type"`
	Amount  decimal.Decimal `json:"amount"`
	Date    time.Time       `json:"date"`
	Account string          `json:"accountId"`
}

type transactionUpdate struct {
	Description string        `json:"description"`
	Date        time.Time     `json:"date"`
	Slaves      []slaveUpdate `json:"slaves"`
}

// ListAccounts retrieves every account from the store.
func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var records []accountRecord
	if err := c.do(ctx, http.MethodGet, "/accounts", nil, &records); err != nil {
		return nil, err
	}
	accounts := make([]domain.Account, len(records))
	for i, r := range records {
		accounts[i] = domain.Account{
			AccountID:   canonicalID(r.AccountID, r.AccountIDAlt),
			Name:        r.Name,
			Category:    r.Category,
			SubCategory: r.SubCategory,
			IsReal:      r.IsReal,
		}
	}
	return accounts, nil
}

// FindTransactionByID retrieves one master transaction with its allocations.
func (c *Client) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	var record transactionRecord
	if err := c.do(ctx, http.MethodGet, "/transactions/"+transactionID, nil, &record); err != nil {
		return nil, err
	}

	tx := domain.Transaction{
		TransactionID:       record.TransactionID,
		Description:         record.Description,
		Date:                record.Date.Time,
		Amount:              record.Amount,
		Type:                domain.EntryType(record.Type),
		AccountID:           canonicalID(record.AccountID, record.AccountIDAlt),
		MasterAccountName:   record.MasterAccountName,
		MasterAccountIsReal: record.MasterAccountIsReal,
		CreatedAt:           record.CreatedAt.Time,
		UpdatedAt:           record.UpdatedAt.Time,
		Allocations:         make([]domain.Allocation, len(record.Slaves)),
	}
	for i, sl := range record.Slaves {
		tx.Allocations[i] = domain.Allocation{
			AllocationID:  sl.SlaveID,
			Type:          domain.EntryType(sl.Type),
			Amount:        sl.Amount,
			Date:          sl.Date.Time,
			AccountID:     canonicalID(sl.AccountID, sl.AccountIDAlt),
			AccountName:   sl.SlaveAccountName,
			AccountIsReal: sl.SlaveAccountIsReal,
			MasterID:      sl.MasterID,
		}
	}
	return &tx, nil
}

// UpdateTransaction replaces the transaction's description, date and full
// allocation set in one request. The store applies it atomically.
func (c *Client) UpdateTransaction(ctx context.Context, transactionID, description string, date time.Time, allocations []domain.Allocation) error {
	payload := transactionUpdate{
		Description: description,
		Date:        date,
		Slaves:      make([]slaveUpdate, len(allocations)),
	}
	for i, a := range allocations {
		payload.Slaves[i] = slaveUpdate{
			SlaveID: a.AllocationID,
			Type:    string(a.Type),
			Amount:  a.Amount,
			Date:    a.Date,
			Account: a.AccountID,
		}
	}
	return c.do(ctx, http.MethodPut, "/transactions/"+transactionID, payload, nil)
}

// do issues one JSON request and decodes the response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, apperrors.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: ledger store returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
