package models

// Forecast represents the hourly solar forecast payload from the Open-Meteo API
type Forecast struct {
	Latitude         float64     `json:"latitude"`
	Longitude        float64     `json:"longitude"`
	Elevation        float64     `json:"elevation"`
	Timezone         string      `json:"timezone"`
	UTCOffsetSeconds int         `json:"utc_offset_seconds"`
	HourlyUnits      HourlyUnits `json:"hourly_units"`
	Hourly           Hourly      `json:"hourly"`
	GenerationTimeMs float64     `json:"generation_time_ms"`
}

type HourlyUnits struct {
	Time                   string `json:"time"`
	Temperature2m          string `json:"temperature_2m"`
	ShortwaveRadiation     string `json:"shortwave_radiation"`
	DirectNormalIrradiance string `json:"direct_normal_irradiance"`
	DiffuseRadiation       string `json:"diffuse_radiation"`
}

// Hourly holds the per-hour arrays. Values are pointers because the API
// returns null for hours it has no data for.
type Hourly struct {
	Time                   []string   `json:"time"`
	Temperature2m          []*float64 `json:"temperature_2m"`
	ShortwaveRadiation     []*float64 `json:"shortwave_radiation"`
	DirectNormalIrradiance []*float64 `json:"direct_normal_irradiance"`
	DiffuseRadiation       []*float64 `json:"diffuse_radiation"`
}
