// Package governance evaluates the constraints an operation's
// affordance may carry before an agent is allowed to execute it:
// payment (HTTP 402), token gates, and declarative policy clauses,
// composable with AND/OR at a single level.
package governance

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

const (
	invoiceTTL        = 10 * time.Minute
	minProofLength    = 16
	defaultRecipient  = "did:key:hyprcat-treasury"
)

// Invoice is issued when a payment constraint is unmet. It is the
// payload a 402 response carries.
type Invoice struct {
	InvoiceID      string    `json:"invoiceId"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Recipient      string    `json:"recipient"`
	Bolt11         string    `json:"bolt11"`
	ExpiresAt      time.Time `json:"expiresAt"`
	PaymentHeader  string    `json:"paymentHeader"`
	InvoiceHeader  string    `json:"invoiceHeader"`
}

// Receipt is the sole authoritative confirmation that a payment
// succeeded.
type Receipt struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoiceId"`
	PayerDID  string    `json:"payerDid"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Proof     string    `json:"proof"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// PaymentPipeline tracks pending invoices and debits wallets on
// verified proof.
type PaymentPipeline struct {
	wallets *wallet.Store
	secret  []byte

	mu       sync.Mutex
	invoices map[string]Invoice
}

// NewPaymentPipeline returns a PaymentPipeline backed by wallets.
// secret signs every synthetic Bolt11 string it mints, the way a real
// lightning node's invoice would be tied to its own signing key.
func NewPaymentPipeline(wallets *wallet.Store, secret []byte) *PaymentPipeline {
	return &PaymentPipeline{wallets: wallets, secret: secret, invoices: make(map[string]Invoice)}
}

// Issue mints a fresh invoice for the given payment constraint and
// records it as pending.
func (p *PaymentPipeline) Issue(constraint map[string]any) (Invoice, error) {
	amount, currency, recipient, err := paymentTerms(constraint)
	if err != nil {
		return Invoice{}, err
	}

	id, err := randomID("inv_")
	if err != nil {
		return Invoice{}, apierr.Wrap(apierr.InternalError, "Invoice issuance failed", "generate invoice id", err)
	}
	now := time.Now()
	invoice := Invoice{
		InvoiceID:     id,
		Amount:        amount,
		Currency:      currency,
		Recipient:     recipient,
		Bolt11:        p.syntheticBolt11(id, amount, currency),
		ExpiresAt:     now.Add(invoiceTTL),
		PaymentHeader: "X-Payment-Proof",
		InvoiceHeader: "X-Invoice-Id",
	}

	p.mu.Lock()
	p.invoices[id] = invoice
	p.mu.Unlock()
	return invoice, nil
}

// Verify checks proof against the invoice on file for invoiceID and,
// on success, debits payerDID's wallet and returns a confirmed
// receipt. The invoice is discarded regardless of outcome: a failed
// attempt is final and the caller must request a new one.
func (p *PaymentPipeline) Verify(invoiceID, payerDID, proof string) (Receipt, error) {
	p.mu.Lock()
	invoice, ok := p.invoices[invoiceID]
	if ok {
		delete(p.invoices, invoiceID)
	}
	p.mu.Unlock()

	if !ok {
		return Receipt{}, apierr.New(apierr.PaymentRequired, "Unknown invoice", "invoice not found or already consumed")
	}
	if time.Now().After(invoice.ExpiresAt) {
		return Receipt{}, apierr.New(apierr.PaymentRequired, "Expired invoice", "invoice has expired")
	}
	if len(proof) < minProofLength {
		return Receipt{}, apierr.New(apierr.PaymentRequired, "Invalid proof", "payment proof is too short")
	}

	if err := p.wallets.Debit(payerDID, invoice.Currency, invoice.Amount); err != nil {
		return Receipt{}, err
	}

	id, err := randomID("rcpt_")
	if err != nil {
		return Receipt{}, apierr.Wrap(apierr.InternalError, "Receipt issuance failed", "generate receipt id", err)
	}
	return Receipt{
		ID:        id,
		InvoiceID: invoiceID,
		PayerDID:  payerDID,
		Amount:    invoice.Amount,
		Currency:  invoice.Currency,
		Proof:     proof,
		Status:    "confirmed",
		CreatedAt: time.Now(),
	}, nil
}

// VerifyDirect settles a payment that names no invoice: the amount
// and currency are taken straight from constraint rather than looked
// up, and proof is checked by length only. The resulting receipt
// carries invoiceId "direct" so a caller can tell the two settlement
// paths apart.
func (p *PaymentPipeline) VerifyDirect(constraint map[string]any, payerDID, proof string) (Receipt, error) {
	if len(proof) < minProofLength {
		return Receipt{}, apierr.New(apierr.PaymentRequired, "Invalid proof", "payment proof is too short")
	}
	amount, currency, _, err := paymentTerms(constraint)
	if err != nil {
		return Receipt{}, err
	}
	if err := p.wallets.Debit(payerDID, currency, amount); err != nil {
		return Receipt{}, err
	}

	id, err := randomID("rcpt_")
	if err != nil {
		return Receipt{}, apierr.Wrap(apierr.InternalError, "Receipt issuance failed", "generate receipt id", err)
	}
	return Receipt{
		ID:        id,
		InvoiceID: "direct",
		PayerDID:  payerDID,
		Amount:    amount,
		Currency:  currency,
		Proof:     proof,
		Status:    "confirmed",
		CreatedAt: time.Now(),
	}, nil
}

func paymentTerms(constraint map[string]any) (amount int64, currency, recipient string, err error) {
	raw, ok := constraint["x402:amount"]
	if !ok {
		raw = constraint["amount"]
	}
	switch v := raw.(type) {
	case float64:
		amount = int64(v)
	case int64:
		amount = v
	case int:
		amount = int64(v)
	default:
		return 0, "", "", apierr.New(apierr.InvalidRequest, "Malformed payment constraint", "amount is required and must be numeric")
	}
	if amount <= 0 {
		return 0, "", "", apierr.New(apierr.InvalidRequest, "Malformed payment constraint", "amount must be positive")
	}

	currency, _ = constraint["x402:currency"].(string)
	if currency == "" {
		currency, _ = constraint["currency"].(string)
	}
	if currency == "" {
		currency = wallet.DemoCurrency
	}

	recipient, _ = constraint["x402:recipient"].(string)
	if recipient == "" {
		recipient, _ = constraint["recipient"].(string)
	}
	if recipient == "" {
		recipient = defaultRecipient
	}
	return amount, currency, recipient, nil
}

// syntheticBolt11 builds a demonstration Bolt11-shaped string and, when
// the pipeline holds a signing secret, appends an HMAC over the
// invoice terms so the string can't be forged without it.
func (p *PaymentPipeline) syntheticBolt11(invoiceID string, amount int64, currency string) string {
	body := fmt.Sprintf("ln-sim-%s-%d-%s", invoiceID, amount, currency)
	if len(p.secret) == 0 {
		return body
	}
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(body))
	return body + "-" + hex.EncodeToString(mac.Sum(nil))[:16]
}

func randomID(prefix string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
