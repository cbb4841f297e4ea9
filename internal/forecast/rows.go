package forecast

// Metric field names shared by hourly and daily rows. They match the JSON
// field names of the normalized shape.
const (
	FieldTemperatureC         = "temperatureC"
	FieldTempMaxC             = "tempMaxC"
	FieldTempMinC             = "tempMinC"
	FieldPrecipProbability    = "precipProbability"
	FieldPrecipProbabilityMax = "precipProbabilityMax"
	FieldPrecipMm             = "precipMm"
	FieldWindKph              = "windKph"
	FieldWindGustKph          = "windGustKph"
	FieldWindMaxKph           = "windMaxKph"
	FieldWeatherCode          = "weatherCode"
)

// SeriesRow is one time-keyed row of an hourly or daily series.
type SeriesRow interface {
	// RowKey is the aligning identity: the hour timestamp or the date.
	RowKey() string
	// Field returns the named numeric field; unknown names are null.
	Field(name string) Number
	// Condition is the human-readable label for the row's weather code.
	Condition() string
}

// HourlyRow is one forecast hour.
type HourlyRow struct {
	Time              string `json:"time"`
	TemperatureC      Number `json:"temperatureC"`
	PrecipProbability Number `json:"precipProbability"`
	PrecipMm          Number `json:"precipMm"`
	WindKph           Number `json:"windKph"`
	WindGustKph       Number `json:"windGustKph"`
	WeatherCode       Number `json:"weatherCode"`
	ConditionLabel    string `json:"conditionLabel,omitempty"`
	ConditionIcon     string `json:"conditionIcon,omitempty"`
}

func (r HourlyRow) RowKey() string    { return r.Time }
func (r HourlyRow) Condition() string { return r.ConditionLabel }

func (r HourlyRow) Field(name string) Number {
	switch name {
	case FieldTemperatureC:
		return r.TemperatureC
	case FieldPrecipProbability:
		return r.PrecipProbability
	case FieldPrecipMm:
		return r.PrecipMm
	case FieldWindKph:
		return r.WindKph
	case FieldWindGustKph:
		return r.WindGustKph
	case FieldWeatherCode:
		return r.WeatherCode
	}
	return Null()
}

// DailyRow is one forecast day.
type DailyRow struct {
	Date                 string `json:"date"`
	TempMaxC             Number `json:"tempMaxC"`
	TempMinC             Number `json:"tempMinC"`
	PrecipProbabilityMax Number `json:"precipProbabilityMax"`
	PrecipMm             Number `json:"precipMm"`
	WindMaxKph           Number `json:"windMaxKph"`
	WeatherCode          Number `json:"weatherCode"`
	ConditionLabel       string `json:"conditionLabel,omitempty"`
	ConditionIcon        string `json:"conditionIcon,omitempty"`
}

func (r DailyRow) RowKey() string    { return r.Date }
func (r DailyRow) Condition() string { return r.ConditionLabel }

func (r DailyRow) Field(name string) Number {
	switch name {
	case FieldTempMaxC:
		return r.TempMaxC
	case FieldTempMinC:
		return r.TempMinC
	case FieldPrecipProbabilityMax:
		return r.PrecipProbabilityMax
	case FieldPrecipMm:
		return r.PrecipMm
	case FieldWindMaxKph:
		return r.WindMaxKph
	case FieldWeatherCode:
		return r.WeatherCode
	}
	return Null()
}
