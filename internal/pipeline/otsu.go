package pipeline

// OtsuThreshold selects the intensity threshold maximizing between-class
// variance over the channel's 256-bin histogram. Running sums keep the scan
// O(W*H + 256). Ties resolve to the lowest maximizing threshold.
func OtsuThreshold(ch *ChannelImage) byte {
	var hist [256]int
	for _, v := range ch.Pix {
		hist[v]++
	}
	return otsuFromHistogram(hist, len(ch.Pix))
}

func otsuFromHistogram(hist [256]int, total int) byte {
	if total == 0 {
		return 0
	}

	var weightedTotal float64
	for i, count := range hist {
		weightedTotal += float64(i) * float64(count)
	}

	var (
		bestThreshold byte
		bestVariance  float64
		backWeight    int
		backSum       float64
	)
	for t := 0; t < 256; t++ {
		backWeight += hist[t]
		if backWeight == 0 {
			continue
		}
		foreWeight := total - backWeight
		if foreWeight == 0 {
			break
		}

		backSum += float64(t) * float64(hist[t])
		meanBack := backSum / float64(backWeight)
		meanFore := (weightedTotal - backSum) / float64(foreWeight)

		diff := meanBack - meanFore
		variance := float64(backWeight) * float64(foreWeight) * diff * diff
		if variance > bestVariance {
			bestVariance = variance
			bestThreshold = byte(t)
		}
	}
	return bestThreshold
}
