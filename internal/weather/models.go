package weather

import (
	"encoding/json"
)

// Units selects the measurement system used by the upstream provider.
type Units string

const (
	UnitsStandard Units = "standard"
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// ClientConfig holds the provider settings shared by every upstream call.
// APIKey must be non-empty.
type ClientConfig struct {
	APIKey   string `validate:"required"`
	Language string `validate:"required"`
	Units    Units  `validate:"required,oneof=standard metric imperial"`
	BaseURL  string `validate:"required,url"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// City is a registry entry.
type City struct {
	Name        string
	Coordinates Coordinates
}

// Conditions are the measurements shared by current readings and forecast timeslots.
type Conditions struct {
	Temp     float64 `json:"temp"`
	Pressure float64 `json:"pressure"`
	Humidity float64 `json:"humidity"`
}

// CurrentWeather is the provider's current weather payload. The fields needed
// for aggregation are decoded; Raw keeps the payload exactly as received so it
// can be passed through to callers unchanged.
type CurrentWeather struct {
	Coord Coordinates `json:"coord"`
	Main  Conditions  `json:"main"`
	Name  string      `json:"name"`

	Raw json.RawMessage `json:"-"`
}

// MarshalJSON renders the upstream payload as received.
func (c CurrentWeather) MarshalJSON() ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}
	type plain CurrentWeather
	return json.Marshal(plain(c))
}

// Timeslot is one 3-hour entry of the provider's forecast list.
type Timeslot struct {
	Dt     int64      `json:"dt"`
	DtText string     `json:"dt_txt"`
	Main   Conditions `json:"main"`
}

// ForecastList is the provider's 5-day / 3-hour forecast payload.
type ForecastList struct {
	List []Timeslot `json:"list"`
}

// FiveDayForecast maps a timeslot's textual timestamp to its conditions.
type FiveDayForecast map[string]Conditions

// CityValue pairs a city with a measured value.
type CityValue struct {
	CityName string  `json:"cityName"`
	Value    float64 `json:"value"`
}

// GroupedForecast summarizes current weather across every registered city.
type GroupedForecast struct {
	MeanTemp           float64   `json:"meanTemp"`
	HighestHumidity    CityValue `json:"highestHumidity"`
	HighestTemperature CityValue `json:"highestTemperature"`
}
