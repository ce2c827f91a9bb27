package strategy

import "github.com/hyprcat/hyprcat/internal/ld"

// Retail proposes a purchase on the first in-stock, affordable member
// of a store collection.
type Retail struct {
	MaxPrice int64
}

func (r Retail) Name() string          { return "retail" }
func (r Retail) TriggerTypes() []string { return []string{"schema:Store"} }
func (r Retail) Description() string {
	return "buys the first in-stock product within budget from a store's member list"
}

func (r Retail) Matches(ctx Context) bool {
	return MatchesTypes(ctx.Resource, r.TriggerTypes())
}

// Evaluate looks at ctx.Resource's members for the first one declaring
// a positive stock, a price at or below MaxPrice (0 meaning
// unbounded), a buy-action affordance (an operation whose title or
// target mentions buy, purchase, or checkout), and a wallet balance
// that can cover it.
func (r Retail) Evaluate(ctx Context) Decision {
	maxPrice := r.MaxPrice
	if maxPrice <= 0 {
		maxPrice = 1<<63 - 1
	}
	for _, member := range membersOf(ctx.Resource) {
		price, hasPrice := numberField(member, "price")
		stock, hasStock := numberField(member, "stock")
		ops := ld.OperationsOf(member)
		var buyOp map[string]any
		for _, keyword := range []string{"buy", "purchase", "checkout"} {
			if buyOp = findOperation(ops, keyword); buyOp != nil {
				break
			}
		}
		if !hasPrice || !hasStock || buyOp == nil {
			continue
		}
		if stock <= 0 || int64(price) > maxPrice {
			continue
		}
		if ctx.Wallet.Balance("SAT") < int64(price) {
			continue
		}
		return Decision{
			ShouldExecute: true,
			Operation:     buyOp,
			Input:         map[string]any{},
			Reason:        "in-stock product within budget and affordable",
			Priority:      10,
		}
	}
	return Decision{Reason: "no affordable in-stock product found"}
}
