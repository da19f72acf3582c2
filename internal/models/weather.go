package models

// Placeholders used when a string field is absent from the backend payload.
const (
	UnknownLocation  = "Unknown Location"
	UnknownCountry   = "Unknown"
	DefaultTimezone  = "UTC"
	UnknownCondition = "Unknown"
	NoDescription    = "No description available"
	DefaultIcon      = "01d"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Snapshot is the display-ready weather record produced by normalization.
type Snapshot struct {
	Location Location      `json:"location"`
	Current  Current       `json:"current"`
	Hourly   []HourlyPoint `json:"hourly"`
	Daily    []DailyPoint  `json:"daily"`
}

// Coordinates returns the location the backend resolved the lookup to.
func (s Snapshot) Coordinates() Coordinates {
	return Coordinates{Lat: s.Location.Lat, Lon: s.Location.Lon}
}

type Location struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Country  string  `json:"country"`
	Timezone string  `json:"timezone"`
}

type Current struct {
	Temperature   float64 `json:"temperature"`
	FeelsLike     float64 `json:"feelsLike"`
	Humidity      float64 `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	WindSpeed     float64 `json:"windSpeed"`
	WindDirection float64 `json:"windDirection"`
	Visibility    float64 `json:"visibility"`
	UVIndex       float64 `json:"uvIndex"`
	Condition     string  `json:"condition"`
	Description   string  `json:"description"`
	Icon          string  `json:"icon"`
	Timestamp     int64   `json:"timestamp"` // unix seconds
}

type HourlyPoint struct {
	Time                string  `json:"time"`
	Temperature         float64 `json:"temperature"`
	FeelsLike           float64 `json:"feelsLike"`
	Humidity            float64 `json:"humidity"`
	WindSpeed           float64 `json:"windSpeed"`
	PrecipitationChance float64 `json:"precipitationChance"`
	Condition           string  `json:"condition"`
	Description         string  `json:"description"`
	Icon                string  `json:"icon"`
}

type DailyPoint struct {
	Date                string  `json:"date"`
	TempMin             float64 `json:"tempMin"`
	TempMax             float64 `json:"tempMax"`
	Humidity            float64 `json:"humidity"`
	WindSpeed           float64 `json:"windSpeed"`
	PrecipitationChance float64 `json:"precipitationChance"`
	UVIndex             float64 `json:"uvIndex"`
	Sunrise             string  `json:"sunrise"`
	Sunset              string  `json:"sunset"`
	Condition           string  `json:"condition"`
	Description         string  `json:"description"`
	Icon                string  `json:"icon"`
}
