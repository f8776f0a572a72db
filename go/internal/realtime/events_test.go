package realtime

import (
	"errors"
	"testing"

	"github.com/geodueler/geodueler/go/internal/geo"
)

func TestDecodeEventRoundtrip(t *testing.T) {
	lat, lng := 48.85, 2.29
	tests := []struct {
		name string
		ev   Event
	}{
		{name: "session starting", ev: &SessionStarting{Locations: []geo.Location{{Lat: 48.85, Lng: 2.29, Country: "France", City: "Paris"}}}},
		{name: "round results", ev: &RoundResults{
			RoundIndex: 2,
			TargetLat:  48.85,
			TargetLng:  2.29,
			TargetCity: "Paris",
			Guesses: []GuessResult{
				{PlayerID: "p_1", PlayerName: "Ada", GuessLat: &lat, GuessLng: &lng, DistanceKm: 0, Score: 5000},
				{PlayerID: "p_2", PlayerName: "Lin", DistanceKm: 20000, Score: 0},
			},
		}},
		{name: "next round", ev: &NextRound{RoundIndex: 3}},
		{name: "session over", ev: &SessionOver{Players: []FinalStanding{{ID: "p_1", Name: "Ada", Score: 21000}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := MarshalEvent(tt.ev)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			got, err := DecodeEvent(raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.EventName() != tt.ev.EventName() {
				t.Fatalf("decoded %q, want %q", got.EventName(), tt.ev.EventName())
			}
		})
	}
}

func TestDecodeEventPreservesNilGuess(t *testing.T) {
	raw, err := MarshalEvent(&RoundResults{
		RoundIndex: 0,
		Guesses:    []GuessResult{{PlayerID: "p_1", PlayerName: "Ada", DistanceKm: 20000}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rr := got.(*RoundResults)
	if rr.Guesses[0].GuessLat != nil || rr.Guesses[0].GuessLng != nil {
		t.Fatalf("timed-out guess coordinates should stay nil, got %v/%v",
			rr.Guesses[0].GuessLat, rr.Guesses[0].GuessLng)
	}
}

func TestDecodeEventUnknown(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"event":"PLAYER_TAUNT","data":{}}`))
	if !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("want ErrUnknownEvent, got %v", err)
	}
}
