package server

import "fmt"

// Item is the canonical display shape of one game server, rebuilt from the
// upstream wire payload on every fetch cycle.
//
// Mod and Realm are opaque upstream tags with an unconfirmed schema; they are
// carried verbatim and stay nil when the source element is absent.
type Item struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	IPAddress      string   `json:"ipAddress"`
	Port           int      `json:"port"`
	MapID          string   `json:"mapId"`
	MapName        *string  `json:"mapName"`
	Bots           int      `json:"bots"`
	Country        string   `json:"country"`
	CurrentPlayers int      `json:"currentPlayers"`
	TimeStamp      *int64   `json:"timeStamp"`
	Version        int      `json:"version"`
	Dedicated      bool     `json:"dedicated"`
	Mod            *string  `json:"mod"`
	PlayerList     []string `json:"playerList"`
	Comment        *string  `json:"comment"`
	URL            *string  `json:"url"`
	MaxPlayers     int      `json:"maxPlayers"`
	Mode           string   `json:"mode"`
	Realm          *string  `json:"realm"`
}

// Key builds the session-stable composite id for an address/port pair.
// Duplicates within one batch are possible upstream and are not collapsed
// here; keyed consumers resolve them last-write-wins.
func Key(address string, port int) string {
	return fmt.Sprintf("%s:%d", address, port)
}

// Occupancy returns the players/capacity ratio clamped to [0, 1] for display.
// Upstream may report currentPlayers > maxPlayers; the record itself is kept
// as-is and only the ratio is clamped.
func (i Item) Occupancy() float64 {
	if i.MaxPlayers <= 0 {
		return 0
	}
	ratio := float64(i.CurrentPlayers) / float64(i.MaxPlayers)
	if ratio > 1 {
		return 1
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}
