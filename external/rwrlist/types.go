package rwrlist

// rawServer is the wire shape of one `<server>` block. Every scalar stays a
// string at this level; type coercion and defaulting happen in the
// normalizer so one policy covers all fields. Pointer fields distinguish an
// absent element from a present-but-empty one.
type rawServer struct {
	Name           string   `xml:"name"`
	Address        string   `xml:"address"`
	Port           string   `xml:"port"`
	MapID          string   `xml:"map_id"`
	MapName        string   `xml:"map_name"`
	Bots           string   `xml:"bots"`
	Country        string   `xml:"country"`
	CurrentPlayers string   `xml:"current_players"`
	TimeStamp      string   `xml:"timeStamp"`
	Version        string   `xml:"version"`
	Dedicated      string   `xml:"dedicated"`
	Mod            *string  `xml:"mod"`
	Players        []string `xml:"player"`
	Comment        *string  `xml:"comment"`
	URL            *string  `xml:"url"`
	MaxPlayers     string   `xml:"max_players"`
	Mode           string   `xml:"mode"`
	Realm          *string  `xml:"realm"`
}
