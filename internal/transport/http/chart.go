package mandihttp

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"mandimind/internal/analytics"
	"mandimind/internal/market"
)

const smaWindow = 3

// GET /chart/:commodity renders the current observations as a line chart
// with an SMA overlay.
func (h *handlers) commodityChart(c *gin.Context) {
	commodity := strings.TrimSpace(c.Param("commodity"))
	if err := market.ValidateCommodity(commodity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	observations, err := h.feed.CurrentPrices(c.Request.Context(), commodity, h.location)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "price feed unavailable"})
		return
	}
	if len(observations) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no observations for %s", commodity)})
		return
	}

	line := buildPriceChart(commodity, observations)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chart render failed"})
	}
}

func buildPriceChart(commodity string, observations []market.PriceObservation) *charts.Line {
	sorted := append([]market.PriceObservation(nil), observations...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	labels := make([]string, len(sorted))
	prices := make([]float64, len(sorted))
	data := make([]opts.LineData, len(sorted))
	for i, obs := range sorted {
		labels[i] = obs.Market
		prices[i] = obs.Price
		data[i] = opts.LineData{Value: obs.Price}
	}

	minPrice, maxPrice := priceBounds(prices)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1, math.Abs(maxPrice)*0.01)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  "1200px",
			Height: "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s mandi prices", strings.ToUpper(commodity)),
			Subtitle: fmt.Sprintf("%d markets", len(sorted)),
			Left:     "left",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
			Min:   minPrice - padding,
			Max:   maxPrice + padding,
		}),
	)

	line.SetXAxis(labels)
	line.AddSeries("price", data)

	smoothed := analytics.SmoothedSeries(prices, smaWindow)
	smaData := make([]opts.LineData, len(smoothed))
	for i, v := range smoothed {
		smaData[i] = opts.LineData{Value: v}
	}
	line.AddSeries(fmt.Sprintf("SMA%d", smaWindow), smaData,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

func priceBounds(prices []float64) (float64, float64) {
	min, max := prices[0], prices[0]
	for _, p := range prices {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return min, max
}
