// Package wallet supplies the balances shown in the balance list.
package wallet

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"swapdesk/logger"
	"swapdesk/models"
)

// Source yields the current wallet balances.
type Source interface {
	Balances(ctx context.Context) ([]models.Balance, error)
}

// Static serves a fixed list of balances.
type Static []models.Balance

func (s Static) Balances(context.Context) ([]models.Balance, error) {
	out := make([]models.Balance, len(s))
	copy(out, s)
	return out, nil
}

type balanceFile struct {
	Balances []balanceRecord `yaml:"balances"`
}

type balanceRecord struct {
	Currency   string `yaml:"currency"`
	Blockchain string `yaml:"blockchain"`
	Amount     string `yaml:"amount"`
}

// FileSource reads balances from a YAML file on every call so edits show up
// without a restart.
type FileSource struct {
	path string
	mu   sync.Mutex
	log  *logger.Log
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, log: logger.GetLogger()}
}

func (f *FileSource) Path() string { return f.path }

func (f *FileSource) Balances(ctx context.Context) ([]models.Balance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	f.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to read balances file: %w", err)
	}

	balances, err := ParseBalances(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balances file %s: %w", f.path, err)
	}

	logger.LogDataFlowEntry(f.log.WithComponent("wallet"), f.path, "ranking", len(balances), "balances")
	return balances, nil
}

// ParseBalances decodes the balances YAML document. Amounts are read as
// decimal strings so no precision is lost to float parsing.
func ParseBalances(data []byte) ([]models.Balance, error) {
	var doc balanceFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	out := make([]models.Balance, 0, len(doc.Balances))
	for i, rec := range doc.Balances {
		currency := strings.TrimSpace(rec.Currency)
		if currency == "" {
			return nil, fmt.Errorf("balance %d: currency is required", i)
		}
		amount, err := models.ParseAmount(rec.Amount)
		if err != nil {
			return nil, fmt.Errorf("balance %d (%s): invalid amount %q: %w", i, currency, rec.Amount, err)
		}
		out = append(out, models.Balance{
			Currency:   currency,
			Blockchain: strings.TrimSpace(rec.Blockchain),
			Amount:     amount,
		})
	}
	return out, nil
}
