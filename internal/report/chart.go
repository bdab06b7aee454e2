package report

import (
	"fmt"

	"github.com/go-analyze/charts"
	"gitlab.com/yelinaung/trackify/internal/ledger"
)

// CategoryPieChart renders category totals as a PNG pie chart.
func CategoryPieChart(totals []ledger.CategoryTotal, title string) ([]byte, error) {
	if len(totals) == 0 {
		return nil, ErrEmpty
	}

	values := make([]float64, 0, len(totals))
	names := make([]string, 0, len(totals))
	for _, t := range totals {
		names = append(names, t.Category)
		values = append(values, t.Total.InexactFloat64())
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}
