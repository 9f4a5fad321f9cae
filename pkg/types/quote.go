package types

import "time"

// Category is the closed OddsAxiom market taxonomy. Workers translate
// venue-native categories into it before publishing.
type Category string

const (
	CategoryPolitics  Category = "politics"
	CategoryEconomics Category = "economics"
	CategoryCrypto    Category = "crypto"
	CategoryScience   Category = "science"
	CategoryCulture   Category = "culture"
	CategorySports    Category = "sports"
)

// PriceFormat describes the native quoting convention of a venue.
type PriceFormat string

const (
	FormatProbability      PriceFormat = "probability"
	FormatCents            PriceFormat = "cents"
	FormatAmericanPositive PriceFormat = "american_positive"
	FormatAmericanNegative PriceFormat = "american_negative"
	FormatDecimal          PriceFormat = "decimal"
)

// OutcomeRef names one outcome of a market, in declaration order.
type OutcomeRef struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// RawQuote is one outcome's price as fetched from a venue, before normalisation.
// A worker batch contains one RawQuote per (market, outcome) pair it saw.
type RawQuote struct {
	VenueSlug        string
	ExternalMarketID string
	MarketTitle      string
	Category         Category
	OutcomeIndex     int
	OutcomeName      string
	OutcomeType      string
	Price            float64
	PriceFormat      PriceFormat
	Bid              float64
	Ask              float64
	Volume24h        float64
	VolumeUSD        float64
	LiquidityUSD     float64
	MarketURL        string
	Description      string
	EndDate          time.Time
	Outcomes         []OutcomeRef
	CapturedAt       time.Time
}

// NormalizedQuote is a RawQuote with its price mapped into probability space.
// Price is retained verbatim for display; ImpliedProb drives detection.
type NormalizedQuote struct {
	RawQuote
	ImpliedProb float64
}
