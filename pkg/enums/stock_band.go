package enums

// StockBand classifies a SKU's current availability against its thresholds.
type StockBand string

const (
	StockBandCritical    StockBand = "critical"
	StockBandLow         StockBand = "low"
	StockBandHealthy     StockBand = "healthy"
	StockBandOverstocked StockBand = "overstocked"
)

// String implements fmt.Stringer.
func (b StockBand) String() string {
	return string(b)
}
