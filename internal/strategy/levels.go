package strategy

// symbolRangeDefaults gives sensible support/resistance/breakout defaults
// per coin so an operator doesn't have to hand-tune MeanReversion for every
// pair before the auto-detect pass has enough history to take over.
// Values mirror the reference bot's per-coin defaults; anything not listed
// falls back to the BTC/USD range.
var symbolRangeDefaults = map[string][4]float64{
	"XBTUSD": {94000, 102000, 93000, 106000},
	"ETHUSD": {3000, 3300, 2900, 3400},
	"SOLUSD": {130, 150, 120, 160},
	"XRPUSD": {2.15, 2.35, 2.05, 2.45},
}

// defaultRangeFor returns (support, resistance, breakoutLower, breakoutUpper).
func defaultRangeFor(symbol string) (support, resistance, lower, upper float64) {
	if d, ok := symbolRangeDefaults[symbol]; ok {
		return d[0], d[1], d[2], d[3]
	}
	d := symbolRangeDefaults["XBTUSD"]
	return d[0], d[1], d[2], d[3]
}
