package usecase

import "BrokerConsole/internal/domain/models"

const (
	seriesLabel  = "Trade Price"
	seriesXTitle = "Trade Index"
	seriesYTitle = "Price"
)

// RenderSeries maps trades to chart points: the i-th trade becomes (i+1, price).
func RenderSeries(trades []models.Trade) models.Series {
	points := make([]models.Point, len(trades))
	for i, t := range trades {
		points[i] = models.Point{X: i + 1, Y: t.Price}
	}
	return models.Series{
		Label:  seriesLabel,
		XTitle: seriesXTitle,
		YTitle: seriesYTitle,
		Points: points,
	}
}
