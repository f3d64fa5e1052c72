package pricing

import "github.com/shopspring/decimal"

// DefaultTier is a row of the standard credits package table.
type DefaultTier struct {
	Tier
	MinNumbers int
	MaxNumbers int
}

// defaultRows is credits, min numbers, max numbers, unit price, price.
var defaultRows = []struct {
	credits    int64
	minNumbers int
	maxNumbers int
	unitPrice  string
	price      string
}{
	{10000, 2000, 2500, "0.0030", "30"},
	{30000, 6000, 6500, "0.0029", "87"},
	{50000, 10000, 11500, "0.00288", "144"},
	{80000, 16000, 17500, "0.00275", "220"},
	{120000, 24000, 27000, "0.0026", "312"},
	{160000, 32000, 35000, "0.00245", "392"},
	{200000, 40000, 43000, "0.0023", "460"},
	{250000, 50000, 54000, "0.0022", "550"},
	{300000, 60000, 64000, "0.00218", "655"},
	{350000, 70000, 75000, "0.00213", "747"},
	{400000, 80000, 86000, "0.00205", "820"},
	{450000, 90000, 96000, "0.0020", "900"},
	{500000, 100000, 107000, "0.00195", "975"},
	{550000, 110000, 117000, "0.0019", "1045"},
	{600000, 120000, 128000, "0.00185", "1110"},
}

// DefaultTiers returns a fresh copy of the standard credits package table,
// ascending by credits.
func DefaultTiers() []DefaultTier {
	out := make([]DefaultTier, 0, len(defaultRows))
	for _, r := range defaultRows {
		out = append(out, DefaultTier{
			Tier: Tier{
				Credits:   r.credits,
				UnitPrice: decimal.RequireFromString(r.unitPrice),
				Price:     decimal.RequireFromString(r.price),
			},
			MinNumbers: r.minNumbers,
			MaxNumbers: r.maxNumbers,
		})
	}
	return out
}
