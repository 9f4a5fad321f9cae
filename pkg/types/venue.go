package types

// VenueClass groups venues by the kind of prices they quote.
type VenueClass string

const (
	VenueClassPrediction VenueClass = "prediction"
	VenueClassSports     VenueClass = "sports"
	VenueClassCrypto     VenueClass = "crypto"
)

// Venue identifies an upstream price source. Slugs are lower-case and stable;
// they appear in cache keys and stream entries, so renaming one is a breaking change.
type Venue struct {
	Slug  string
	Class VenueClass
}

// The closed venue enumeration. TheOddsAPI is an aggregator: quotes fetched
// through it carry the bookmaker's slug (draftkings, fanduel, ...), never "theoddsapi".
var (
	VenuePolymarket = Venue{Slug: "polymarket", Class: VenueClassPrediction}
	VenueKalshi     = Venue{Slug: "kalshi", Class: VenueClassPrediction}
	VenuePredictIt  = Venue{Slug: "predictit", Class: VenueClassPrediction}
	VenueGemini     = Venue{Slug: "gemini", Class: VenueClassCrypto}
	VenueCoinbase   = Venue{Slug: "coinbase", Class: VenueClassCrypto}
	VenueRobinhood  = Venue{Slug: "robinhood", Class: VenueClassPrediction}
	VenueLimitless  = Venue{Slug: "limitless", Class: VenueClassPrediction}
	VenueDraftKings = Venue{Slug: "draftkings", Class: VenueClassSports}
	VenueFanDuel    = Venue{Slug: "fanduel", Class: VenueClassSports}
	VenueBetMGM     = Venue{Slug: "betmgm", Class: VenueClassSports}
	VenueBovada     = Venue{Slug: "bovada", Class: VenueClassSports}
	VenueBetRivers  = Venue{Slug: "betrivers", Class: VenueClassSports}
)
