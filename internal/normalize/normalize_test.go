package normalize

import (
	"encoding/json"
	"testing"

	"github.com/kjstillabower/weather-snapshot-client/internal/models"
)

func assertDefaults(t *testing.T, got models.Snapshot) {
	t.Helper()
	want := models.Location{
		Name:     models.UnknownLocation,
		Country:  models.UnknownCountry,
		Timezone: models.DefaultTimezone,
	}
	if got.Location != want {
		t.Errorf("Location = %+v, want %+v", got.Location, want)
	}
	wantCurrent := models.Current{
		Condition:   models.UnknownCondition,
		Description: models.NoDescription,
		Icon:        models.DefaultIcon,
	}
	if got.Current != wantCurrent {
		t.Errorf("Current = %+v, want %+v", got.Current, wantCurrent)
	}
	if got.Hourly == nil || len(got.Hourly) != 0 {
		t.Errorf("Hourly = %#v, want empty non-nil slice", got.Hourly)
	}
	if got.Daily == nil || len(got.Daily) != 0 {
		t.Errorf("Daily = %#v, want empty non-nil slice", got.Daily)
	}
}

// TestPayload_EmptyObject verifies that an empty object yields every documented default.
func TestPayload_EmptyObject(t *testing.T) {
	assertDefaults(t, Payload([]byte(`{}`)))
}

// TestPayload_Malformed verifies the mapping is total for inputs that are not JSON objects.
func TestPayload_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"nil", nil},
		{"empty", []byte("")},
		{"not json", []byte("<html>gateway</html>")},
		{"truncated", []byte(`{"current":{"temperature":`)},
		{"array root", []byte(`[1,2,3]`)},
		{"string root", []byte(`"hello"`)},
		{"null", []byte(`null`)},
		{"null sections", []byte(`{"location":null,"current":null,"hourly":null,"daily":null}`)},
		{"wrong section types", []byte(`{"location":5,"current":"x","hourly":{},"daily":"y"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDefaults(t, Payload(tt.raw))
		})
	}
}

// TestPayload_OnlyTemperature verifies a lone current.temperature is preserved and
// every other field takes its default.
func TestPayload_OnlyTemperature(t *testing.T) {
	got := Payload([]byte(`{"current":{"temperature":21.5}}`))
	if got.Current.Temperature != 21.5 {
		t.Fatalf("Current.Temperature = %v, want 21.5", got.Current.Temperature)
	}
	got.Current.Temperature = 0
	assertDefaults(t, got)
}

func TestPayload_FullPayload(t *testing.T) {
	raw := []byte(`{
		"location": {"name": "Beverly Hills", "lat": 34.09, "lon": -118.41, "country": "US", "timezone": "America/Los_Angeles"},
		"current": {
			"temperature": 24.3, "feelsLike": 25.1, "humidity": 40, "pressure": 1013,
			"windSpeed": 3.6, "windDirection": 270, "visibility": 10000, "uvIndex": 6,
			"condition": "Clear", "description": "clear sky", "icon": "01d", "timestamp": 1700000000
		},
		"hourly": [
			{"time": "2024-01-01T10:00:00Z", "temperature": 20, "precipitationChance": 10, "condition": "Clouds", "icon": "03d"},
			{"time": "2024-01-01T11:00:00Z", "temperature": 21}
		],
		"daily": [
			{"date": "2024-01-01", "tempMin": 12, "tempMax": 25, "sunrise": "06:58", "sunset": "16:55", "description": "sunny"}
		]
	}`)
	got := Payload(raw)

	wantLoc := models.Location{Name: "Beverly Hills", Lat: 34.09, Lon: -118.41, Country: "US", Timezone: "America/Los_Angeles"}
	if got.Location != wantLoc {
		t.Errorf("Location = %+v, want %+v", got.Location, wantLoc)
	}
	if got.Current.FeelsLike != 25.1 || got.Current.WindDirection != 270 || got.Current.UVIndex != 6 {
		t.Errorf("Current = %+v, numeric fields not mapped", got.Current)
	}
	if got.Current.Description != "clear sky" || got.Current.Timestamp != 1700000000 {
		t.Errorf("Current = %+v, string/timestamp fields not mapped", got.Current)
	}
	if len(got.Hourly) != 2 {
		t.Fatalf("len(Hourly) = %d, want 2", len(got.Hourly))
	}
	if got.Hourly[0].Condition != "Clouds" || got.Hourly[0].PrecipitationChance != 10 {
		t.Errorf("Hourly[0] = %+v", got.Hourly[0])
	}
	if got.Hourly[1].Condition != models.UnknownCondition || got.Hourly[1].Icon != models.DefaultIcon {
		t.Errorf("Hourly[1] = %+v, want placeholders for missing fields", got.Hourly[1])
	}
	if len(got.Daily) != 1 {
		t.Fatalf("len(Daily) = %d, want 1", len(got.Daily))
	}
	d := got.Daily[0]
	if d.TempMax != 25 || d.Sunrise != "06:58" || d.Description != "sunny" || d.Condition != models.UnknownCondition {
		t.Errorf("Daily[0] = %+v", d)
	}
}

// TestPayload_WrongFieldTypes verifies that mistyped leaf fields fall back to defaults.
func TestPayload_WrongFieldTypes(t *testing.T) {
	got := Payload([]byte(`{
		"location": {"name": 42, "lat": "34.1", "country": ""},
		"current": {"temperature": "hot", "humidity": true, "icon": null},
		"hourly": [7, null, {"temperature": 3}]
	}`))
	if got.Location.Name != models.UnknownLocation || got.Location.Lat != 0 || got.Location.Country != models.UnknownCountry {
		t.Errorf("Location = %+v, want defaults", got.Location)
	}
	if got.Current.Temperature != 0 || got.Current.Humidity != 0 || got.Current.Icon != models.DefaultIcon {
		t.Errorf("Current = %+v, want defaults", got.Current)
	}
	if len(got.Hourly) != 3 {
		t.Fatalf("len(Hourly) = %d, want 3", len(got.Hourly))
	}
	if got.Hourly[0].Condition != models.UnknownCondition || got.Hourly[2].Temperature != 3 {
		t.Errorf("Hourly = %+v", got.Hourly)
	}
}

// TestPayload_EncodesEmptySequences verifies forecast sequences encode as [] rather than null.
func TestPayload_EncodesEmptySequences(t *testing.T) {
	b, err := json.Marshal(Payload([]byte(`{}`)))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if string(decoded["hourly"]) != "[]" || string(decoded["daily"]) != "[]" {
		t.Errorf("hourly = %s, daily = %s, want []", decoded["hourly"], decoded["daily"])
	}
}
