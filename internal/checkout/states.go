package checkout

// State is the orchestrator's position in the checkout flow.
type State int

const (
	StateLoadingAddresses State = iota
	StateAddressReady
	StateRateLookup
	StateStockValidating
	StateOrderCreating
	StatePaymentInitiating
	StateRedirecting
	StateFailed
)

var stateNames = map[State]string{
	StateLoadingAddresses:  "loading_addresses",
	StateAddressReady:      "address_ready",
	StateRateLookup:        "rate_lookup",
	StateStockValidating:   "stock_validating",
	StateOrderCreating:     "order_creating",
	StatePaymentInitiating: "payment_initiating",
	StateRedirecting:       "redirecting",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Submittable reports whether a checkout submission may start from this state.
func (s State) Submittable() bool {
	return s == StateAddressReady || s == StateRateLookup || s == StateFailed
}
