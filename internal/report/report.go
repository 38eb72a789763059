// Package report renders forecast results for people: a power curve chart,
// the per-hour calculation table and a one-line headline.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"solarcast/internal/models"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const labelLayout = "01-02 15:04"

// RenderChart writes a self-contained HTML line chart of predicted power, labelled in loc
func RenderChart(w io.Writer, fc *models.SiteForecast, loc *time.Location) error {
	if fc == nil || fc.Result == nil {
		return fmt.Errorf("render chart: %w", models.ErrEmptySeries)
	}
	if loc == nil {
		loc = time.UTC
	}

	labels := make([]string, len(fc.Rows))
	power := make([]opts.LineData, len(fc.Rows))
	for i, row := range fc.Rows {
		labels[i] = row.Timestamp.In(loc).Format(labelLayout)
		power[i] = opts.LineData{Value: round(row.PowerKW, 3)}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Solar forecast: " + fc.Site.Name,
			Width:     "1000px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s (%.1f kW)", fc.Site.Name, fc.Site.CapacityKW),
			Subtitle: Headline(fc, loc),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: loc.String()}),
		charts.WithYAxisOpts(opts.YAxis{Name: "kW"}),
	)

	line.SetXAxis(labels).
		AddSeries("Power (kW)", power).
		SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.2}),
		)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// TableHeader is the first line written by WriteTable
var TableHeader = []string{"time", "temperature_c", "ghi_w_m2", "poa_w_m2", "power_kw"}

// WriteTable writes the raw calculation table as CSV with times in loc
func WriteTable(w io.Writer, rows []models.ForecastRow, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(TableHeader); err != nil {
		return fmt.Errorf("failed to write table header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Timestamp.In(loc).Format(time.RFC3339),
			strconv.FormatFloat(row.TemperatureC, 'f', 1, 64),
			strconv.FormatFloat(row.GHI, 'f', 1, 64),
			strconv.FormatFloat(row.POA, 'f', 1, 64),
			strconv.FormatFloat(row.PowerKW, 'f', 3, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write table row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Headline summarizes a run: total energy, peak power with its local time, and specific yield
func Headline(fc *models.SiteForecast, loc *time.Location) string {
	if fc == nil || fc.Result == nil {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}

	r := fc.Result
	return fmt.Sprintf("Total energy %.2f kWh | Peak power %.2f kW at %s | Specific yield %.2f kWh/kW",
		r.TotalEnergyKWh, r.PeakPowerKW, r.PeakAt.In(loc).Format("15:04 MST"), r.SpecificYield)
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
