package trail

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geo"
)

func TestCanPlaceRejectsLondonNeighbours(t *testing.T) {
	placed := []Marker{{Lat: 51.5074, Lng: -0.1278}}

	err := CanPlace(placed, geo.Point{Lat: 51.5074, Lng: -0.1288}, DefaultMinSpacingMeters)
	require.ErrorIs(t, err, ErrTooClose)

	var tc *TooCloseError
	require.ErrorAs(t, err, &tc)
	assert.Equal(t, 0, tc.Index)
	assert.InDelta(t, 69, tc.DistanceMeters, 2)
}

func TestCanPlaceAcceptsDistantMarker(t *testing.T) {
	placed := []Marker{{Lat: 51.5074, Lng: -0.1278}}
	// ~0.003 degrees of latitude is ~334 m.
	assert.NoError(t, CanPlace(placed, geo.Point{Lat: 51.5104, Lng: -0.1278}, DefaultMinSpacingMeters))
	assert.NoError(t, CanPlace(nil, geo.Point{}, DefaultMinSpacingMeters))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		draft  Draft
		fields []string
	}{
		{
			name: "valid",
			draft: Draft{Name: "Park loop", Markers: []Marker{
				{Lat: 51.5074, Lng: -0.1278, Question: "Colour of the gate?", Answer: "green"},
				{Lat: 51.5104, Lng: -0.1278},
			}},
		},
		{
			name:   "missing name and markers",
			draft:  Draft{Name: "  "},
			fields: []string{"name", "markers"},
		},
		{
			name: "too close",
			draft: Draft{Name: "Crowded", Markers: []Marker{
				{Lat: 51.5074, Lng: -0.1278},
				{Lat: 51.5074, Lng: -0.1288},
			}},
			fields: []string{"markers[1]"},
		},
		{
			name: "question without answer",
			draft: Draft{Name: "Quiz", Markers: []Marker{
				{Lat: 1, Lng: 1, Question: "Why?"},
			}},
			fields: []string{"markers[0]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.draft, DefaultMinSpacingMeters)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, ErrValidation), "err = %v", err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			var got []string
			for _, p := range ve.Problems {
				got = append(got, p.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestParseDraft(t *testing.T) {
	doc := []byte(`
name: Riverside
markers:
  - {lat: 51.5074, lng: -0.1278, label: Start}
  - {lat: 51.5104, lng: -0.1278, question: "Bridge colour?", answer: blue}
`)
	d, err := ParseDraft(doc)
	require.NoError(t, err)
	assert.Equal(t, "Riverside", d.Name)
	require.Len(t, d.Markers, 2)
	assert.Equal(t, "blue", d.Markers[1].Answer)
	assert.NoError(t, Validate(d, DefaultMinSpacingMeters))
}

func TestParseDraftSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing markers", "name: x\n"},
		{"latitude out of range", "name: x\nmarkers:\n  - {lat: 91, lng: 0}\n"},
		{"unknown field", "name: x\nmarkers: []\ncolour: red\n"},
		{"lat not a number", "name: x\nmarkers:\n  - {lat: north, lng: 0}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDraft([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
