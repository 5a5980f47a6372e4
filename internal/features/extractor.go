package features

import (
	"math"
)

const (
	// MinStringLength is the shortest printable run counted as a string
	MinStringLength = 4

	printableLow  = 0x20
	printableHigh = 0x7e
	asciiHigh     = 0x7f
	maxEntropy    = 8.0
)

// ByteStats holds the scalar statistics computed from raw file bytes
type ByteStats struct {
	Entropy        float64
	NumStrings     int
	NonASCIIRatio  float64
	PrintableRatio float64
	IsPE           bool
}

// ExtractByteStats computes all byte statistics in a single pass over data
func ExtractByteStats(data []byte) ByteStats {
	var stats ByteStats
	if len(data) == 0 {
		return stats
	}

	var histogram [256]int
	printable, nonASCII, run := 0, 0, 0

	for _, b := range data {
		histogram[b]++

		if b > asciiHigh {
			nonASCII++
		}

		if isPrintable(b) {
			printable++
			run++
			continue
		}

		// A run only counts once it is closed
		if run >= MinStringLength {
			stats.NumStrings++
		}
		run = 0
	}
	if run >= MinStringLength {
		stats.NumStrings++
	}

	total := float64(len(data))
	stats.Entropy = entropyFromHistogram(&histogram, total)
	stats.NonASCIIRatio = float64(nonASCII) / total
	stats.PrintableRatio = float64(printable) / total
	stats.IsPE = HasPEMarker(data)

	return stats
}

// HasPEMarker reports whether data starts with the DOS "MZ" magic
func HasPEMarker(data []byte) bool {
	return len(data) >= 2 && data[0] == 'M' && data[1] == 'Z'
}

func entropyFromHistogram(histogram *[256]int, total float64) float64 {
	h := 0.0
	for _, count := range histogram {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		h -= p * math.Log2(p)
	}

	// Avoid reporting -0 for single-valued inputs
	if h <= 0 {
		return 0
	}
	return math.Min(h, maxEntropy)
}

func isPrintable(b byte) bool {
	return b >= printableLow && b <= printableHigh
}
