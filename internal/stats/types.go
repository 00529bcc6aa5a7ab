package stats

// Wire shapes for the W3Champions match search API. Only the fields the
// aggregator reads are decoded.

type Match struct {
	Teams []Team `json:"teams"`
}

type Team struct {
	Won     bool     `json:"won"`
	Players []Player `json:"players"`
}

type Player struct {
	BattleTag string `json:"battleTag"`
	Race      int    `json:"race"`
}

type searchResponse struct {
	Players []Player `json:"players"`
}

type matchesResponse struct {
	Matches []Match `json:"matches"`
}
