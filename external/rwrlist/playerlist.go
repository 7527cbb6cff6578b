package rwrlist

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rwrpulse/rwrpulse/internal/domain/player"
)

var (
	playerRowRegex  = regexp.MustCompile(`(?s)<tr[^>]*>(.*?)</tr>`)
	playerCellRegex = regexp.MustCompile(`(?s)<td[^>]*>(.*?)</td>`)
	markupTagRegex  = regexp.MustCompile(`<[^>]+>`)
	imgSrcRegex     = regexp.MustCompile(`<img[^>]*\bsrc\s*=\s*["']([^"']+)["']`)
	numberRegex     = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// Column order of the upstream player table. Rows shorter than the username
// column are decoration and get skipped; rows shorter than the full layout
// keep whatever stats they carry and leave the rest nil.
const (
	colUsername = iota
	colKills
	colDeaths
	colScore
	colKDRatio
	colTimePlayed
	colKillStreak
	colTargetsDestroyed
	colVehiclesDestroyed
	colSoldiersHealed
	colTeamkills
	colDistanceMoved
	colShotsFired
	colThrowablesThrown
	colRankProgression
	colRankName
	colRankIcon
)

// ParsePlayerList extracts player rows from the markup table payload.
// start is the 0-based window offset; row numbers are 1-based within the
// window. Header rows (no `<td>` cells) and rows without a username are
// skipped, never fatal.
func ParsePlayerList(payload []byte, database string, start int) []player.Item {
	rows := playerRowRegex.FindAllSubmatch(payload, -1)
	out := make([]player.Item, 0, len(rows))
	for _, row := range rows {
		cells := playerCellRegex.FindAllSubmatch(row[1], -1)
		if len(cells) == 0 {
			continue
		}

		raw := make([]string, len(cells))
		clean := make([]string, len(cells))
		for i, cell := range cells {
			raw[i] = string(cell[1])
			clean[i] = cleanCell(cell[1])
		}

		item, ok := mapPlayerRow(raw, clean, database, start+len(out)+1)
		if !ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

func mapPlayerRow(raw, clean []string, database string, row int) (player.Item, bool) {
	username := cellAt(clean, colUsername)
	if username == "" {
		return player.Item{}, false
	}

	item := player.Item{
		ID:                database + ":" + strings.ToLower(username),
		Username:          username,
		Database:          database,
		Row:               row,
		Kills:             statInt(clean, colKills),
		Deaths:            statInt(clean, colDeaths),
		Score:             statInt(clean, colScore),
		KDRatio:           statFloat(clean, colKDRatio),
		TimePlayed:        statInt(clean, colTimePlayed),
		LongestKillStreak: statInt(clean, colKillStreak),
		TargetsDestroyed:  statInt(clean, colTargetsDestroyed),
		VehiclesDestroyed: statInt(clean, colVehiclesDestroyed),
		SoldiersHealed:    statInt(clean, colSoldiersHealed),
		Teamkills:         statInt(clean, colTeamkills),
		DistanceMoved:     statFloat(clean, colDistanceMoved),
		ShotsFired:        statInt(clean, colShotsFired),
		ThrowablesThrown:  statInt(clean, colThrowablesThrown),
		RankProgression:   statFloat(clean, colRankProgression),
	}

	if name := cellAt(clean, colRankName); name != "" {
		item.RankName = &name
	}
	if colRankIcon < len(raw) {
		if match := imgSrcRegex.FindStringSubmatch(raw[colRankIcon]); match != nil {
			icon := strings.TrimSpace(match[1])
			if icon != "" {
				item.RankIcon = &icon
			}
		}
	}

	return item, true
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

// statInt keeps absence distinguishable from zero: a missing cell, a
// placeholder dash, or garbage stays nil while a reported "0" stays 0.
func statInt(cells []string, idx int) *int64 {
	number, ok := extractNumber(cellAt(cells, idx))
	if !ok {
		return nil
	}
	v, err := strconv.ParseInt(number, 10, 64)
	if err != nil {
		truncated, convErr := strconv.ParseFloat(number, 64)
		if convErr != nil {
			return nil
		}
		v = int64(truncated)
	}
	return &v
}

func statFloat(cells []string, idx int) *float64 {
	number, ok := extractNumber(cellAt(cells, idx))
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return nil
	}
	return &v
}

// extractNumber pulls the first numeric token out of a display cell, which
// may carry unit suffixes ("1110h", "23.4km") or thousands separators.
func extractNumber(cell string) (string, bool) {
	cell = strings.ReplaceAll(cell, ",", "")
	match := numberRegex.FindString(cell)
	if match == "" {
		return "", false
	}
	return match, true
}

func cleanCell(cell []byte) string {
	text := markupTagRegex.ReplaceAllString(string(cell), " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	return strings.Join(strings.Fields(text), " ")
}
