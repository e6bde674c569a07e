package extract

import "github.com/shopspring/decimal"

// Source identifies where a raw price candidate was found.
type Source string

const (
	SourceAttribute Source = "attribute"
	SourceText      Source = "text"
	SourceScript    Source = "script"
)

// PriceValue is a parsed price. Valid is false for any input the parser
// could not interpret as a positive amount under the pass locale.
type PriceValue struct {
	Amount         decimal.Decimal `json:"amount"`
	CurrencySymbol string          `json:"currency_symbol,omitempty"`
	Valid          bool            `json:"valid"`
}

// PriceInfo is one successfully parsed candidate. NodeID is a lookup-only
// handle into the pass's Document; it is meaningless once the document is
// discarded. -1 when the candidate has no originating node (script source).
type PriceInfo struct {
	Price         PriceValue `json:"price"`
	Source        Source     `json:"source"`
	AttributeName string     `json:"attribute_name,omitempty"`
	NodeID        int        `json:"node_id"`
}

// PriceGroup is the set of candidates sharing one exact decimal value,
// with its composite trust score.
type PriceGroup struct {
	Amount     decimal.Decimal `json:"amount"`
	Score      int             `json:"score"`
	Candidates []PriceInfo     `json:"candidates"`
}

// Status tags an extraction outcome.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusAmbiguous Status = "ambiguous"
	StatusFailed    Status = "failed"
)

// FailReason enumerates terminal extraction failures.
type FailReason string

const (
	FailNoResponse         FailReason = "no_response"
	FailInvalidResponse    FailReason = "invalid_response"
	FailNoProductDetected  FailReason = "no_product_detected"
	FailUnknownName        FailReason = "unknown_name"
	FailUnknownPrice       FailReason = "unknown_price"
	FailUnknownCulture     FailReason = "unknown_culture"
	FailMissingManualParam FailReason = "missing_manual_param"
	FailInvalidManualPrice FailReason = "invalid_manual_price"
)

// Result is the tagged outcome of one extraction pass.
type Result struct {
	Status Status `json:"status"`

	// Populated on success.
	Price  *PriceInfo `json:"price,omitempty"`
	Name   string     `json:"name,omitempty"`
	Title  string     `json:"title,omitempty"`
	Locale *Locale    `json:"locale,omitempty"`

	// Populated when ambiguous: ranked groups for the caller to choose from.
	Candidates []PriceGroup `json:"candidates,omitempty"`

	// Populated on failure.
	Reason FailReason `json:"reason,omitempty"`
}

func success(price PriceInfo, name, title string, loc Locale) Result {
	return Result{Status: StatusSuccess, Price: &price, Name: name, Title: title, Locale: &loc}
}

func ambiguous(groups []PriceGroup, name, title string, loc Locale) Result {
	return Result{Status: StatusAmbiguous, Candidates: groups, Name: name, Title: title, Locale: &loc}
}

func failed(reason FailReason) Result {
	return Result{Status: StatusFailed, Reason: reason}
}

// Failed builds a terminal failure result. Exposed so the page-loader
// boundary can map fetch errors into the same taxonomy.
func Failed(reason FailReason) Result { return failed(reason) }
