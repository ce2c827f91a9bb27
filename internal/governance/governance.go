package governance

import (
	"strings"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

// Request carries the per-attempt inputs a constraint check needs:
// which DID is attempting the operation, what payment proof (if any)
// it presented, and the request context a policy's conditions may
// reference.
type Request struct {
	PayerDID      string
	PaymentProof  string
	InvoiceID     string
	Context       map[string]any
}

// Result is the outcome of checking one constraint. Exactly one of
// Invoice/Receipt is set when the constraint is a payment constraint;
// both are nil for a satisfied token gate or policy check.
type Result struct {
	Invoice *Invoice
	Receipt *Receipt
}

// Service combines the payment pipeline and wallet store behind a
// single constraint-checking entrypoint.
type Service struct {
	payments *PaymentPipeline
	wallets  *wallet.Store
}

// NewService returns a Service backed by wallets. paymentSecret signs
// every invoice the payment pipeline mints; nil disables signing.
func NewService(wallets *wallet.Store, paymentSecret []byte) *Service {
	return &Service{payments: NewPaymentPipeline(wallets, paymentSecret), wallets: wallets}
}

// Payments exposes the underlying payment pipeline for handlers that
// need to issue or verify invoices directly.
func (s *Service) Payments() *PaymentPipeline { return s.payments }

// Check dispatches constraint by its declared type and evaluates it
// against req. A payment constraint with no proof yields a Result
// carrying a freshly issued Invoice and a nil error (the caller must
// respond 402). A payment constraint with proof yields a Result
// carrying a Receipt on success. Token gate and policy constraints
// never populate Result; a non-nil error means the request is denied.
func (s *Service) Check(constraint map[string]any, req Request) (Result, error) {
	kind, _ := constraint["type"].(string)
	switch {
	case kind == "x402:PaymentConstraint":
		return s.checkPayment(constraint, req)
	case kind == "hyprcat:TokenGateConstraint":
		return Result{}, CheckTokenGate(s.wallets, req.PayerDID, constraint)
	case kind == "odrl:Policy":
		return Result{}, EvaluatePolicy(ParsePolicy(constraint), req.Context)
	case kind == "hyprcat:CompositeConstraint":
		return s.checkComposite(constraint, req)
	default:
		return Result{}, apierr.New(apierr.InvalidRequest, "Unknown constraint type", "constraint type \""+kind+"\" is not recognized")
	}
}

func (s *Service) checkPayment(constraint map[string]any, req Request) (Result, error) {
	if req.PaymentProof == "" {
		invoice, err := s.payments.Issue(constraint)
		if err != nil {
			return Result{}, err
		}
		return Result{Invoice: &invoice}, nil
	}
	if req.InvoiceID == "" {
		receipt, err := s.payments.VerifyDirect(constraint, req.PayerDID, req.PaymentProof)
		if err != nil {
			return Result{}, err
		}
		return Result{Receipt: &receipt}, nil
	}
	receipt, err := s.payments.Verify(req.InvoiceID, req.PayerDID, req.PaymentProof)
	if err != nil {
		return Result{}, err
	}
	return Result{Receipt: &receipt}, nil
}

func (s *Service) checkComposite(constraint map[string]any, req Request) (Result, error) {
	operator := strings.ToUpper(stringField(constraint, "operator"))
	if operator == "" {
		operator = "AND"
	}
	sub, _ := constraint["constraints"].([]any)
	if len(sub) == 0 {
		return Result{}, apierr.New(apierr.InvalidRequest, "Malformed composite constraint", "constraints list is required")
	}

	var lastErr error
	for _, item := range sub {
		sc, ok := item.(map[string]any)
		if !ok {
			continue
		}
		result, err := s.Check(sc, req)
		switch operator {
		case "OR":
			if err == nil && result.Invoice == nil {
				return result, nil
			}
			lastErr = err
		default: // AND
			if err != nil || result.Invoice != nil {
				return result, err
			}
		}
	}
	if operator == "OR" {
		if lastErr == nil {
			lastErr = apierr.New(apierr.AccessDenied, "Composite constraint failed", "no branch of an OR composite constraint was satisfied")
		}
		return Result{}, lastErr
	}
	return Result{}, nil
}
