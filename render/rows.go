package render

import "tickerbot/quotes"

// RowsFromBatch converts batch lookup results into watchlist rows.
func RowsFromBatch(results []quotes.BatchResult) []WatchlistRow {
	rows := make([]WatchlistRow, len(results))
	for i, res := range results {
		rows[i] = WatchlistRow{
			Symbol: res.Symbol,
			OK:     res.OK,
		}
		if res.OK {
			rows[i].Price = res.Quote.PriceString()
			rows[i].Currency = res.Quote.Currency
		}
	}
	return rows
}
