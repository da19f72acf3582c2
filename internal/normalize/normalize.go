// Package normalize maps arbitrary backend payloads into models.Snapshot.
//
// The mapping is total: every field that is absent, empty, or of the wrong JSON
// type is replaced by its default (0 for numbers, a placeholder for strings, an
// empty slice for forecast sequences). Payload never fails.
package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/kjstillabower/weather-snapshot-client/internal/models"
)

// Payload normalizes a raw JSON body. Invalid JSON and non-object roots are
// treated as an empty object.
func Payload(raw []byte) models.Snapshot {
	root := parseObject(raw)
	return models.Snapshot{
		Location: location(root.Get("location")),
		Current:  current(root.Get("current")),
		Hourly:   hourly(root.Get("hourly")),
		Daily:    daily(root.Get("daily")),
	}
}

func parseObject(raw []byte) gjson.Result {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		return gjson.Result{}
	}
	return r
}

func location(r gjson.Result) models.Location {
	return models.Location{
		Name:     text(r.Get("name"), models.UnknownLocation),
		Lat:      number(r.Get("lat")),
		Lon:      number(r.Get("lon")),
		Country:  text(r.Get("country"), models.UnknownCountry),
		Timezone: text(r.Get("timezone"), models.DefaultTimezone),
	}
}

func current(r gjson.Result) models.Current {
	return models.Current{
		Temperature:   number(r.Get("temperature")),
		FeelsLike:     number(r.Get("feelsLike")),
		Humidity:      number(r.Get("humidity")),
		Pressure:      number(r.Get("pressure")),
		WindSpeed:     number(r.Get("windSpeed")),
		WindDirection: number(r.Get("windDirection")),
		Visibility:    number(r.Get("visibility")),
		UVIndex:       number(r.Get("uvIndex")),
		Condition:     text(r.Get("condition"), models.UnknownCondition),
		Description:   text(r.Get("description"), models.NoDescription),
		Icon:          text(r.Get("icon"), models.DefaultIcon),
		Timestamp:     integer(r.Get("timestamp")),
	}
}

func hourly(r gjson.Result) []models.HourlyPoint {
	points := make([]models.HourlyPoint, 0)
	if !r.IsArray() {
		return points
	}
	for _, item := range r.Array() {
		points = append(points, models.HourlyPoint{
			Time:                text(item.Get("time"), ""),
			Temperature:         number(item.Get("temperature")),
			FeelsLike:           number(item.Get("feelsLike")),
			Humidity:            number(item.Get("humidity")),
			WindSpeed:           number(item.Get("windSpeed")),
			PrecipitationChance: number(item.Get("precipitationChance")),
			Condition:           text(item.Get("condition"), models.UnknownCondition),
			Description:         text(item.Get("description"), models.NoDescription),
			Icon:                text(item.Get("icon"), models.DefaultIcon),
		})
	}
	return points
}

func daily(r gjson.Result) []models.DailyPoint {
	points := make([]models.DailyPoint, 0)
	if !r.IsArray() {
		return points
	}
	for _, item := range r.Array() {
		points = append(points, models.DailyPoint{
			Date:                text(item.Get("date"), ""),
			TempMin:             number(item.Get("tempMin")),
			TempMax:             number(item.Get("tempMax")),
			Humidity:            number(item.Get("humidity")),
			WindSpeed:           number(item.Get("windSpeed")),
			PrecipitationChance: number(item.Get("precipitationChance")),
			UVIndex:             number(item.Get("uvIndex")),
			Sunrise:             text(item.Get("sunrise"), ""),
			Sunset:              text(item.Get("sunset"), ""),
			Condition:           text(item.Get("condition"), models.UnknownCondition),
			Description:         text(item.Get("description"), models.NoDescription),
			Icon:                text(item.Get("icon"), models.DefaultIcon),
		})
	}
	return points
}

// number returns the value of a JSON number, 0 otherwise.
func number(r gjson.Result) float64 {
	if r.Type != gjson.Number {
		return 0
	}
	return r.Num
}

func integer(r gjson.Result) int64 {
	if r.Type != gjson.Number {
		return 0
	}
	return r.Int()
}

// text returns a non-empty JSON string, placeholder otherwise.
func text(r gjson.Result, placeholder string) string {
	if r.Type != gjson.String || r.Str == "" {
		return placeholder
	}
	return r.Str
}
