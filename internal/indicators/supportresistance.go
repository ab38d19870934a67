package indicators

import "sort"

// SupportResistance finds local minima (support) and maxima (resistance)
// in prices over a +/-window neighborhood, then clusters nearby levels
// together (levels within threshold of a cluster's running average merge
// into it). Both results are sorted ascending.
func SupportResistance(prices []float64, window int, threshold float64) (support, resistance []float64) {
	if len(prices) < window*2 {
		return nil, nil
	}

	var supportRaw, resistanceRaw []float64
	for i := window; i < len(prices)-window; i++ {
		price := prices[i]
		lo, hi := i-window, i+window+1

		if price == minOf(prices[lo:hi]) {
			supportRaw = append(supportRaw, price)
		}
		if price == maxOf(prices[lo:hi]) {
			resistanceRaw = append(resistanceRaw, price)
		}
	}

	return clusterLevels(supportRaw, threshold), clusterLevels(resistanceRaw, threshold)
}

func clusterLevels(levels []float64, threshold float64) []float64 {
	if len(levels) == 0 {
		return nil
	}
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)

	var clustered []float64
	cluster := []float64{sorted[0]}

	for _, level := range sorted[1:] {
		avg := average(cluster)
		if avg != 0 && absF(level-avg)/avg <= threshold {
			cluster = append(cluster, level)
		} else {
			clustered = append(clustered, average(cluster))
			cluster = []float64{level}
		}
	}
	clustered = append(clustered, average(cluster))
	return clustered
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
