package governance

import (
	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

// CheckTokenGate succeeds iff the payer's wallet holds at least
// minBalance of requiredToken. chainId and standard are carried for
// forward compatibility with a real on-chain verifier plugged in
// behind this same yes/no interface; the simulated model ignores them.
func CheckTokenGate(wallets *wallet.Store, payerDID string, constraint map[string]any) error {
	requiredToken, _ := constraint["requiredToken"].(string)
	if requiredToken == "" {
		return apierr.New(apierr.InvalidRequest, "Malformed token gate constraint", "requiredToken is required")
	}

	minBalance, err := numericField(constraint, "minBalance")
	if err != nil {
		return err
	}

	held := wallets.TokenBalance(payerDID, requiredToken)
	if held < minBalance {
		return apierr.New(apierr.AccessDenied, "Token gate failed", "wallet does not hold the required token balance").
			WithExtra(map[string]any{"requiredToken": requiredToken, "minBalance": minBalance, "held": held})
	}
	return nil
}

func numericField(constraint map[string]any, key string) (int64, error) {
	raw, ok := constraint[key]
	if !ok {
		return 0, apierr.New(apierr.InvalidRequest, "Malformed constraint", key+" is required")
	}
	switch v := raw.(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, apierr.New(apierr.InvalidRequest, "Malformed constraint", key+" must be numeric")
	}
}
