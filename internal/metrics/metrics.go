package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	// DBQueriesTotal tracks the total number of database queries
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries executed",
		},
		[]string{"query_type", "table", "status"},
	)

	// DBQueryDuration tracks the duration of database queries
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type", "table"},
	)

	// DBConnectionsOpen tracks the number of open database connections
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of established connections both in use and idle",
		},
	)

	// DBConnectionsInUse tracks the number of connections currently in use
	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of connections currently in use",
		},
	)

	// DBConnectionsIdle tracks the number of idle connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle connections",
		},
	)

	// AppInfo provides static information about the application
	AppInfo = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "solarcast_app_info",
			Help: "Application information (always 1)",
		},
	)

	// AppStartTime records when the application started
	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "solarcast_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

// Forecast pipeline metrics
var (
	// ForecastRunsTotal counts pipeline runs by site and outcome kind
	ForecastRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarcast_forecast_runs_total",
			Help: "Total number of forecast runs",
		},
		[]string{"site", "status"},
	)

	// ForecastRunDuration tracks how long a full run takes, weather fetch included
	ForecastRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solarcast_forecast_run_duration_seconds",
			Help:    "Duration of forecast runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"site"},
	)

	// ForecastEnergyKWh holds the total energy of the latest forecast per site
	ForecastEnergyKWh = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "solarcast_forecast_energy_kwh",
			Help: "Forecast energy of the latest run in kWh",
		},
		[]string{"site"},
	)

	// ForecastPeakPowerKW holds the peak power of the latest forecast per site
	ForecastPeakPowerKW = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "solarcast_forecast_peak_power_kw",
			Help: "Peak power of the latest run in kW",
		},
		[]string{"site"},
	)

	// WeatherFetchesTotal counts weather feed requests
	WeatherFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarcast_weather_fetches_total",
			Help: "Total number of weather feed requests",
		},
		[]string{"status"},
	)

	// WeatherFetchDuration tracks weather feed latency
	WeatherFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "solarcast_weather_fetch_duration_seconds",
			Help:    "Duration of weather feed requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PredictorCallsTotal counts calls to out-of-process predictors
	PredictorCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarcast_predictor_calls_total",
			Help: "Total number of remote predictor calls",
		},
		[]string{"source", "status"},
	)

	// PredictorCallDuration tracks the round trip to remote predictors
	PredictorCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solarcast_predictor_call_duration_seconds",
			Help:    "Duration of remote predictor calls in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"source"},
	)
)

func init() {
	// Set app info to 1 (always visible)
	AppInfo.Set(1)
	// Record app start time
	AppStartTime.SetToCurrentTime()
}

// RecordDBQuery records a database query execution
func RecordDBQuery(queryType, table string, duration time.Duration, err error) {
	DBQueriesTotal.WithLabelValues(queryType, table, statusOf(err)).Inc()
	DBQueryDuration.WithLabelValues(queryType, table).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(open, inUse, idle int) {
	DBConnectionsOpen.Set(float64(open))
	DBConnectionsInUse.Set(float64(inUse))
	DBConnectionsIdle.Set(float64(idle))
}

// RecordForecastRun records one pipeline run. status is "success" or the error kind.
func RecordForecastRun(site, status string, duration time.Duration) {
	ForecastRunsTotal.WithLabelValues(site, status).Inc()
	ForecastRunDuration.WithLabelValues(site).Observe(duration.Seconds())
}

// SetForecastResult publishes the headline numbers of the latest run for site
func SetForecastResult(site string, energyKWh, peakKW float64) {
	ForecastEnergyKWh.WithLabelValues(site).Set(energyKWh)
	ForecastPeakPowerKW.WithLabelValues(site).Set(peakKW)
}

// RecordWeatherFetch records a weather feed request
func RecordWeatherFetch(duration time.Duration, err error) {
	WeatherFetchesTotal.WithLabelValues(statusOf(err)).Inc()
	WeatherFetchDuration.Observe(duration.Seconds())
}

// RecordPredictorCall records a remote predictor round trip
func RecordPredictorCall(source string, duration time.Duration, err error) {
	PredictorCallsTotal.WithLabelValues(source, statusOf(err)).Inc()
	PredictorCallDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
