package weather

// initialHighest is below any reading, so the first city always takes the lead.
const initialHighest = -999

// CityReading is the current weather fetched for one registered city.
type CityReading struct {
	City    string
	Weather CurrentWeather
}

// AggregateReadings computes the mean temperature and the cities with the
// highest humidity and temperature. Readings are scanned in order and a later
// city only takes the lead when strictly greater, so ties keep the earlier one.
func AggregateReadings(readings []CityReading) (GroupedForecast, error) {
	if len(readings) == 0 {
		return GroupedForecast{}, ErrNoCities
	}

	result := GroupedForecast{
		HighestHumidity:    CityValue{Value: initialHighest},
		HighestTemperature: CityValue{Value: initialHighest},
	}

	var sumTemp float64
	for _, r := range readings {
		name := r.Weather.Name
		if name == "" {
			name = r.City
		}
		m := r.Weather.Main

		sumTemp += m.Temp

		if m.Humidity > result.HighestHumidity.Value {
			result.HighestHumidity = CityValue{CityName: name, Value: m.Humidity}
		}
		if m.Temp > result.HighestTemperature.Value {
			result.HighestTemperature = CityValue{CityName: name, Value: m.Temp}
		}
	}

	result.MeanTemp = sumTemp / float64(len(readings))
	return result, nil
}

// ReshapeForecast keys each timeslot by its textual timestamp and keeps only
// temperature, pressure and humidity. Duplicate timestamps keep the last entry.
func ReshapeForecast(list ForecastList) FiveDayForecast {
	out := make(FiveDayForecast, len(list.List))
	for _, slot := range list.List {
		out[slot.DtText] = slot.Main
	}
	return out
}
