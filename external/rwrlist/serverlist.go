package rwrlist

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/rwrpulse/rwrpulse/internal/domain/server"
)

var (
	serverBlockRegex   = regexp.MustCompile(`(?s)<server\b[^>]*>.*?</server>`)
	leadingNumberRegex = regexp.MustCompile(`^-?\d+`)
)

// ParseServerList splits one batch payload into `<server>` blocks and decodes
// each block independently, preserving payload order. A malformed block is
// skipped rather than failing the batch: upstream data is not guaranteed
// clean and one broken entry must not blank the whole list.
//
// The second return is the number of blocks found, decoded or not. Pagination
// has to measure page fill by blocks; counting surviving rows would let one
// broken entry masquerade as a short page and cut the stream early.
func ParseServerList(payload []byte) ([]rawServer, int) {
	blocks := serverBlockRegex.FindAll(payload, -1)
	out := make([]rawServer, 0, len(blocks))
	for _, block := range blocks {
		var row rawServer
		if err := xml.Unmarshal(block, &row); err != nil {
			continue
		}
		out = append(out, row)
	}
	return out, len(blocks)
}

// normalizeServer maps one raw record onto the canonical display shape. It is
// a pure pairwise mapping: duplicate address:port ids pass through untouched.
func normalizeServer(raw rawServer) server.Item {
	address := strings.TrimSpace(raw.Address)
	port := lenientInt(raw.Port)

	players := make([]string, 0, len(raw.Players))
	for _, name := range raw.Players {
		players = append(players, strings.TrimSpace(name))
	}

	return server.Item{
		ID:             server.Key(address, port),
		Name:           strings.TrimSpace(raw.Name),
		IPAddress:      address,
		Port:           port,
		MapID:          strings.TrimSpace(raw.MapID),
		MapName:        optionalString(raw.MapName),
		Bots:           lenientInt(raw.Bots),
		Country:        strings.TrimSpace(raw.Country),
		CurrentPlayers: lenientInt(raw.CurrentPlayers),
		TimeStamp:      optionalInt64(raw.TimeStamp),
		Version:        lenientInt(raw.Version),
		Dedicated:      strings.TrimSpace(raw.Dedicated) == "1",
		Mod:            raw.Mod,
		PlayerList:     players,
		Comment:        raw.Comment,
		URL:            raw.URL,
		MaxPlayers:     lenientInt(raw.MaxPlayers),
		Mode:           strings.TrimSpace(raw.Mode),
		Realm:          raw.Realm,
	}
}

// lenientInt parses an integer and falls back to 0 instead of erroring.
// A leading digit run still counts ("1.96" -> 1) since upstream mixes
// decimal version strings into integer slots.
func lenientInt(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	if prefix := leadingNumberRegex.FindString(raw); prefix != "" {
		if v, err := strconv.Atoi(prefix); err == nil {
			return v
		}
	}
	return 0
}

// optionalInt64 keeps absence observable: empty or unparseable input stays
// nil rather than collapsing to 0.
func optionalInt64(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func optionalString(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}
