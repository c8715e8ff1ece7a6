package evaluate

import "strings"

// Pair is a directed quote: one Base buys Price units of Quote.
type Pair struct {
	Base  string
	Quote string
}

// Quote is a venue price and the fee charged for swapping through it.
type Quote struct {
	Price float64 `json:"price"`
	Fee   float64 `json:"fee"`
}

// PriceBook holds the quotes available for path evaluation.
type PriceBook map[Pair]Quote

// Rate returns how many units of to one unit of from buys, consulting the
// reverse quote when no direct one exists.
func (b PriceBook) Rate(from, to string) (float64, float64, bool) {
	if q, ok := b[Pair{Base: from, Quote: to}]; ok && q.Price > 0 {
		return q.Price, q.Fee, true
	}
	if q, ok := b[Pair{Base: to, Quote: from}]; ok && q.Price > 0 {
		return 1 / q.Price, q.Fee, true
	}
	return 0, 0, false
}

// Hop records one leg of a triangular path.
type Hop struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Rate      float64 `json:"rate"`
	Fee       float64 `json:"fee"`
	AmountOut float64 `json:"amount_out"`
}

// TriangularResult is the outcome of compounding an amount around a cycle.
type TriangularResult struct {
	Path        []string `json:"path"`
	Hops        []Hop    `json:"hops"`
	StartAmount float64  `json:"start_amount"`
	FinalAmount float64  `json:"final_amount"`
	ProfitPct   float64  `json:"profit_pct"`
	PathFound   bool     `json:"path_found"`
	Viable      bool     `json:"viable"`
	Reason      string   `json:"reason"`
}

// EvaluateTriangular walks path (closed automatically back to its first
// token), applying each hop's rate and (1 - fee). A missing quote yields
// PathFound=false rather than an error.
func EvaluateTriangular(path []string, book PriceBook, startAmount float64) (TriangularResult, error) {
	cycle, err := normalizePath(path)
	if err != nil {
		return TriangularResult{}, err
	}
	if err := checkPositive("start amount", startAmount); err != nil {
		return TriangularResult{}, err
	}

	result := TriangularResult{Path: cycle, StartAmount: startAmount}
	amount := startAmount
	for i := 0; i < len(cycle)-1; i++ {
		from, to := cycle[i], cycle[i+1]
		rate, fee, ok := book.Rate(from, to)
		if !ok {
			result.Reason = ReasonNoPath
			return result, nil
		}
		if err := checkFeeRate("hop fee "+from+"->"+to, fee); err != nil {
			return TriangularResult{}, err
		}
		amount = amount * rate * (1 - fee)
		result.Hops = append(result.Hops, Hop{From: from, To: to, Rate: rate, Fee: fee, AmountOut: amount})
	}

	result.PathFound = true
	result.FinalAmount = amount
	result.ProfitPct = (amount - startAmount) / startAmount * 100
	if amount > startAmount {
		result.Viable = true
		result.Reason = ReasonViable
	} else {
		result.Reason = ReasonNoCycleProfit
	}
	return result, nil
}

func normalizePath(path []string) ([]string, error) {
	cycle := make([]string, 0, len(path)+1)
	for _, token := range path {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, invalid("empty token in path")
		}
		if n := len(cycle); n > 0 && cycle[n-1] == token {
			return nil, invalid("path repeats %s on consecutive hops", token)
		}
		cycle = append(cycle, token)
	}
	if len(cycle) > 0 && cycle[len(cycle)-1] != cycle[0] {
		cycle = append(cycle, cycle[0])
	}
	// closed path A->B->C->A has four entries
	if len(cycle) < 4 {
		return nil, invalid("path needs at least three distinct hops, got %v", path)
	}
	return cycle, nil
}
