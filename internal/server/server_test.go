package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"solarcast/internal/api"
	"solarcast/internal/database"
	"solarcast/internal/forecast"
	"solarcast/internal/irradiance"
	"solarcast/internal/models"
	"solarcast/internal/predictor"
	"strings"
	"testing"
	"time"
)

var (
	day    = time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	jaipur = models.Site{
		Name:        "jaipur",
		Location:    models.Location{Latitude: 26.9124, Longitude: 75.7873},
		Orientation: models.SurfaceOrientation{Tilt: 26, Azimuth: 180},
		CapacityKW:  5,
	}
)

type fakeWeather struct {
	err   error
	calls int
	loc   models.Location
}

// GetSolarForecast returns a synthetic bell-shaped day starting at midnight UTC
func (f *fakeWeather) GetSolarForecast(ctx context.Context, loc models.Location) (*models.Forecast, error) {
	f.calls++
	f.loc = loc
	if f.err != nil {
		return nil, f.err
	}

	out := &models.Forecast{Timezone: "GMT"}
	for h := 0; h < 24; h++ {
		ts := day.Add(time.Duration(h) * time.Hour)
		ghi := math.Max(0, 900*math.Sin(math.Pi*float64(h%24-1)/12))
		temp, dni, dhi := 30.0, ghi*0.8, ghi*0.15
		out.Hourly.Time = append(out.Hourly.Time, ts.Format("2006-01-02T15:04"))
		out.Hourly.Temperature2m = append(out.Hourly.Temperature2m, &temp)
		out.Hourly.ShortwaveRadiation = append(out.Hourly.ShortwaveRadiation, &ghi)
		out.Hourly.DirectNormalIrradiance = append(out.Hourly.DirectNormalIrradiance, &dni)
		out.Hourly.DiffuseRadiation = append(out.Hourly.DiffuseRadiation, &dhi)
	}
	return out, nil
}

type fakeStore struct {
	sites []models.Site
	obs   []models.SkyObservation
	err   error
}

func (f *fakeStore) GetAllSites() ([]models.Site, error) {
	return f.sites, f.err
}

func (f *fakeStore) GetSiteByName(name string) (*models.Site, error) {
	for _, s := range f.sites {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", database.ErrSiteNotFound, name)
}

func (f *fakeStore) GetObservations(site string, since time.Time) ([]models.SkyObservation, error) {
	return f.obs, f.err
}

func newTestServer(t *testing.T, weather *fakeWeather, store SiteStore, regressor predictor.Regressor) *Server {
	t.Helper()
	engine, err := irradiance.NewEngine(irradiance.Isotropic, irradiance.DefaultAlbedo)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	adapter, err := predictor.NewAdapter(regressor)
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	runner := forecast.NewRunner(weather, nil, forecast.NewForecaster(engine, adapter))
	return NewServer(runner, store, jaipur, []models.Site{jaipur}, time.UTC)
}

func do(t *testing.T, s *Server, method, target, body string) *http.Response {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w.Result()
}

func TestHandleHealth(t *testing.T) {
	s := &Server{
		mux: http.NewServeMux(),
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("handleHealth() status = %v, want %v", resp.StatusCode, http.StatusOK)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("handleHealth() content-type = %v, want application/json", contentType)
	}

	var response map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "healthy" {
		t.Errorf("handleHealth() status in body = %v, want healthy", response["status"])
	}
}

func TestHandleForecast_DefaultSite(t *testing.T) {
	weather := &fakeWeather{}
	s := newTestServer(t, weather, nil, predictor.NewReferenceModel())

	resp := do(t, s, http.MethodPost, "/forecast", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want 200", resp.StatusCode)
	}

	var body struct {
		Site     models.Site           `json:"site"`
		Headline string                `json:"headline"`
		Result   models.ForecastResult `json:"result"`
		Rows     []models.ForecastRow  `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body.Site.Name != "jaipur" || len(body.Rows) != 24 {
		t.Errorf("got site %q with %d rows", body.Site.Name, len(body.Rows))
	}
	if body.Result.TotalEnergyKWh <= 0 || !strings.HasPrefix(body.Headline, "Total energy") {
		t.Errorf("result %+v, headline %q", body.Result, body.Headline)
	}
	if weather.calls != 1 {
		t.Errorf("weather fetched %d times, want 1", weather.calls)
	}
}

func TestHandleForecast_Overrides(t *testing.T) {
	weather := &fakeWeather{}
	s := newTestServer(t, weather, nil, predictor.NewReferenceModel())

	resp := do(t, s, http.MethodPost, "/forecast", `{"name":"delhi","latitude":28.61,"longitude":77.21,"capacity_kw":3}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want 200", resp.StatusCode)
	}
	if weather.loc.Latitude != 28.61 || weather.loc.Longitude != 77.21 {
		t.Errorf("weather asked for %+v", weather.loc)
	}
}

func TestForecast_HorizonIsOneDay(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"horizon in body", http.MethodPost, "/forecast", `{"forecast_days":2}`},
		{"horizon in query", http.MethodGet, "/sites/forecast?name=jaipur&days=3", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weather := &fakeWeather{}
			s := newTestServer(t, weather, nil, predictor.NewReferenceModel())

			resp := do(t, s, tt.method, tt.target, tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %v, want 200", resp.StatusCode)
			}

			var body struct {
				Rows []models.ForecastRow `json:"rows"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(body.Rows) != 24 || weather.calls != 1 {
				t.Errorf("got %d rows from %d fetches, want one day of 24 rows", len(body.Rows), weather.calls)
			}
		})
	}
}

func TestHandleForecast_CSV(t *testing.T) {
	s := newTestServer(t, &fakeWeather{}, nil, predictor.NewReferenceModel())

	resp := do(t, s, http.MethodPost, "/forecast?format=csv", "")
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content-type = %v, want text/csv", ct)
	}
	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}
	if len(records) != 25 {
		t.Errorf("got %d records, want header + 24", len(records))
	}
}

func TestHandleForecast_HTML(t *testing.T) {
	s := newTestServer(t, &fakeWeather{}, nil, predictor.NewReferenceModel())

	resp := do(t, s, http.MethodPost, "/forecast?format=html", "")
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), "echarts") {
		t.Error("HTML response should embed the chart")
	}
}

func TestHandleForecast_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"invalid method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, "invalid json", http.StatusBadRequest},
		{"latitude too high", http.MethodPost, `{"latitude":91}`, http.StatusBadRequest},
		{"latitude too low", http.MethodPost, `{"latitude":-91}`, http.StatusBadRequest},
		{"longitude too high", http.MethodPost, `{"longitude":181}`, http.StatusBadRequest},
		{"longitude too low", http.MethodPost, `{"longitude":-181}`, http.StatusBadRequest},
		{"zero capacity", http.MethodPost, `{"capacity_kw":0}`, http.StatusBadRequest},
		{"tilt out of range", http.MethodPost, `{"tilt":120}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeWeather{}, nil, predictor.NewReferenceModel())
			resp := do(t, s, tt.method, "/forecast", tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status = %v, want %v", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHandleForecast_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		weather   *fakeWeather
		regressor predictor.Regressor
		want      int
		kind      string
	}{
		{"predictor not trained", &fakeWeather{}, nil, http.StatusServiceUnavailable, "dependency"},
		{"breaker open", &fakeWeather{err: fmt.Errorf("%w: open", api.ErrWeatherUnavailable)}, predictor.NewReferenceModel(), http.StatusBadGateway, "unknown"},
		{"feed error", &fakeWeather{err: errors.New("timeout")}, predictor.NewReferenceModel(), http.StatusInternalServerError, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.weather, nil, tt.regressor)
			resp := do(t, s, http.MethodPost, "/forecast", "")
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status = %v, want %v", resp.StatusCode, tt.want)
			}

			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body["kind"] != tt.kind {
				t.Errorf("kind = %q, want %q", body["kind"], tt.kind)
			}
		})
	}
}

func TestHandleSites(t *testing.T) {
	store := &fakeStore{sites: []models.Site{
		jaipur,
		{Name: "pune", Location: models.Location{Latitude: 18.52, Longitude: 73.86}, CapacityKW: 10},
	}}
	s := newTestServer(t, &fakeWeather{}, store, predictor.NewReferenceModel())

	resp := do(t, s, http.MethodGet, "/sites", "")
	defer resp.Body.Close()

	var body struct {
		Count int           `json:"count"`
		Sites []models.Site `json:"sites"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Count != 2 || body.Sites[1].Name != "pune" {
		t.Errorf("got %+v, want jaipur then pune", body.Sites)
	}
}

func TestHandleSites_StoreError(t *testing.T) {
	s := newTestServer(t, &fakeWeather{}, &fakeStore{err: errors.New("db down")}, predictor.NewReferenceModel())

	resp := do(t, s, http.MethodGet, "/sites", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %v, want 500", resp.StatusCode)
	}
}

func TestHandleSiteForecast(t *testing.T) {
	store := &fakeStore{sites: []models.Site{
		{Name: "pune", Location: models.Location{Latitude: 18.52, Longitude: 73.86}, Orientation: models.SurfaceOrientation{Tilt: 18, Azimuth: 180}, CapacityKW: 10},
	}}

	tests := []struct {
		name   string
		store  SiteStore
		target string
		want   int
	}{
		{"configured site", nil, "/sites/forecast?name=jaipur", http.StatusOK},
		{"stored site", store, "/sites/forecast?name=pune", http.StatusOK},
		{"unknown site with store", store, "/sites/forecast?name=nowhere", http.StatusNotFound},
		{"unknown site without store", nil, "/sites/forecast?name=nowhere", http.StatusNotFound},
		{"missing name", nil, "/sites/forecast", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeWeather{}, tt.store, predictor.NewReferenceModel())
			resp := do(t, s, http.MethodGet, tt.target, "")
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status = %v, want %v", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHandleObservations(t *testing.T) {
	store := &fakeStore{obs: []models.SkyObservation{{Timestamp: day, TemperatureC: 25, GHI: 100}}}
	s := newTestServer(t, &fakeWeather{}, store, predictor.NewReferenceModel())

	resp := do(t, s, http.MethodGet, "/observations?site=jaipur&hours=48", "")
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["count"] != float64(1) || body["hours"] != float64(48) {
		t.Errorf("got %v", body)
	}
}

func TestHandleObservations_Errors(t *testing.T) {
	tests := []struct {
		name   string
		store  SiteStore
		target string
		want   int
	}{
		{"no database", nil, "/observations?site=jaipur", http.StatusServiceUnavailable},
		{"missing site", &fakeStore{}, "/observations", http.StatusBadRequest},
		{"store error", &fakeStore{err: errors.New("db down")}, "/observations?site=jaipur", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeWeather{}, tt.store, predictor.NewReferenceModel())
			resp := do(t, s, http.MethodGet, tt.target, "")
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status = %v, want %v", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeWeather{}, nil, predictor.NewReferenceModel())

	resp := do(t, s, http.MethodGet, "/metrics", "")
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), "solarcast_app_info") {
		t.Error("/metrics should expose the application gauges")
	}
}

func TestForecastRequest_JSONMarshaling(t *testing.T) {
	lat := 37.7749
	req := ForecastRequest{Name: "sf", Latitude: &lat}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal ForecastRequest: %v", err)
	}

	var decoded ForecastRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal ForecastRequest: %v", err)
	}

	if decoded.Latitude == nil || *decoded.Latitude != lat {
		t.Errorf("Decoded latitude = %v, want %v", decoded.Latitude, lat)
	}
	if decoded.Longitude != nil {
		t.Errorf("Decoded longitude = %v, want nil", *decoded.Longitude)
	}

	site := decoded.apply(jaipur)
	if site.Name != "sf" || site.Location.Latitude != lat || site.Location.Longitude != jaipur.Location.Longitude {
		t.Errorf("apply() = %+v", site)
	}
}
