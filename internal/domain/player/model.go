package player

// Item is one row of the player-statistics table. Every stat is nullable:
// the upstream table renders missing values as placeholder glyphs, and a
// true observed zero must stay distinguishable from absence, so nil means
// "not reported" and 0 means "reported as zero".
type Item struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	// Database is the source-database tag the row was queried from.
	Database string `json:"database"`
	// Row is the 1-based position within the requested query window.
	Row int `json:"row"`

	Kills             *int64   `json:"kills"`
	Deaths            *int64   `json:"deaths"`
	KDRatio           *float64 `json:"kdRatio"`
	Score             *int64   `json:"score"`
	TimePlayed        *int64   `json:"timePlayed"`
	Teamkills         *int64   `json:"teamkills"`
	LongestKillStreak *int64   `json:"longestKillStreak"`
	TargetsDestroyed  *int64   `json:"targetsDestroyed"`
	VehiclesDestroyed *int64   `json:"vehiclesDestroyed"`
	SoldiersHealed    *int64   `json:"soldiersHealed"`
	DistanceMoved     *float64 `json:"distanceMoved"`
	ShotsFired        *int64   `json:"shotsFired"`
	ThrowablesThrown  *int64   `json:"throwablesThrown"`
	RankProgression   *float64 `json:"rankProgression"`
	RankName          *string  `json:"rankName"`
	RankIcon          *string  `json:"rankIcon"`
}

// Page wraps one query window of player rows. HasNext is derived from the
// window being full; the transport reports no total count.
type Page struct {
	Items   []Item `json:"items"`
	Start   int    `json:"start"`
	Size    int    `json:"size"`
	HasPrev bool   `json:"hasPrev"`
	HasNext bool   `json:"hasNext"`
}

// NewPage derives the prev/next flags for a fetched window.
func NewPage(items []Item, start, size int) Page {
	return Page{
		Items:   items,
		Start:   start,
		Size:    size,
		HasPrev: start > 0,
		HasNext: size > 0 && len(items) >= size,
	}
}
