// Package geo holds the static location catalog the host draws round
// targets from, plus the sequence generator used at session start.
package geo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

//go:embed assets/locations.json
var locationsJSON []byte

// Location is one candidate round target. Country, City, Img and Hint are
// presentation fields carried opaquely through broadcast payloads; the
// coordination core only acts on Lat/Lng.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	Img     string  `json:"img,omitempty"`
	Hint    string  `json:"hint,omitempty"`
}

var catalog []Location

func init() {
	if err := json.Unmarshal(locationsJSON, &catalog); err != nil {
		panic(fmt.Sprintf("geo: bad embedded locations.json: %v", err))
	}
}

// Catalog returns the full embedded location list.
func Catalog() []Location {
	out := make([]Location, len(catalog))
	copy(out, catalog)
	return out
}

// RandomSequence returns n locations for a session, shuffled without
// repeats while the catalog lasts. Only the host calls this; followers
// receive the chosen sequence in the session-starting broadcast.
func RandomSequence(n int) []Location {
	if n <= 0 {
		return nil
	}

	shuffled := Catalog()
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	out := make([]Location, 0, n)
	for len(out) < n {
		remaining := n - len(out)
		if remaining >= len(shuffled) {
			out = append(out, shuffled...)
			continue
		}
		out = append(out, shuffled[:remaining]...)
	}
	return out
}
