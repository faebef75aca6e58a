package conversion

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"swapdesk/models"
	"swapdesk/pricebook"
)

// Quote is what the swap form shows for its current inputs.
type Quote struct {
	Source      string                  `json:"from"`
	Dest        string                  `json:"to"`
	Amount      string                  `json:"amount"`
	Rate        decimal.Decimal         `json:"rate"`
	Output      string                  `json:"output"`
	AmountValid bool                    `json:"amount_valid"`
	State       models.SwapSessionState `json:"state"`
}

// Form holds the user's selection and feeds it into a Session.
type Form struct {
	mu      sync.RWMutex
	session *Session
	source  string
	dest    string
	amount  string
}

func NewForm(session *Session, defaultSource, defaultDest string) *Form {
	return &Form{session: session, source: defaultSource, dest: defaultDest}
}

// Reconcile replaces selections the book cannot price: the source falls back
// to the first asset and the destination to the first asset that differs from
// it. A selection with no alternative is left as is.
func (f *Form) Reconcile(book *pricebook.Book) {
	assets := book.Assets()
	if len(assets) == 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := book.Lookup(f.source); !ok {
		f.source = assets[0]
	}
	if _, ok := book.Lookup(f.dest); !ok {
		for _, asset := range assets {
			if asset != assets[0] {
				f.dest = asset
				break
			}
		}
	}
}

func (f *Form) SetSource(asset string) {
	f.mu.Lock()
	f.source = asset
	f.mu.Unlock()
}

func (f *Form) SetDestination(asset string) {
	f.mu.Lock()
	f.dest = asset
	f.mu.Unlock()
}

// SetAmount stores the raw amount and dismisses a finished swap's status.
func (f *Form) SetAmount(amount string) {
	f.mu.Lock()
	f.amount = amount
	f.mu.Unlock()

	if f.session != nil {
		if state := f.session.State(); state == models.SwapConfirmed || state == models.SwapFailed {
			_ = f.session.Acknowledge()
		}
	}
}

// SwapDirection exchanges source and destination. The amount is kept.
func (f *Form) SwapDirection() {
	f.mu.Lock()
	f.source, f.dest = SwapDirection(f.source, f.dest)
	f.mu.Unlock()
}

func (f *Form) Selection() (source, dest, amount string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.source, f.dest, f.amount
}

// Quote prices the current selection against book.
func (f *Form) Quote(book pricebook.Lookuper) Quote {
	source, dest, amount := f.Selection()
	rate := ComputeRate(book, source, dest)
	output, _ := ComputeOutput(amount, rate)

	q := Quote{
		Source:      source,
		Dest:        dest,
		Amount:      amount,
		Rate:        rate,
		Output:      output,
		AmountValid: AmountValid(amount),
	}
	if f.session != nil {
		q.State = f.session.State()
	}
	return q
}

// Submit hands the current selection to the session.
func (f *Form) Submit(ctx context.Context, book pricebook.Lookuper) (models.SwapRequest, error) {
	source, dest, amount := f.Selection()
	return f.session.Submit(ctx, book, source, dest, amount)
}
