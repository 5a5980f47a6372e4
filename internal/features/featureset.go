package features

// Feature names, in the fixed order they are computed
const (
	FileSize       = "file_size"
	EntropyBits    = "entropy"
	NumStrings     = "num_strings"
	NonASCIIRatio  = "non_ascii_ratio"
	PrintableRatio = "printable_ratio"
	IsPE           = "is_pe"
	ExtensionCode  = "extension_code"
)

// ComputedFeatures lists every feature the extractor produces
var ComputedFeatures = []string{
	FileSize,
	EntropyBits,
	NumStrings,
	NonASCIIRatio,
	PrintableRatio,
	IsPE,
	ExtensionCode,
}

// ModelFeatures is the subset the shipped model consumes. printable_ratio and
// extension_code are computed and recorded but are not model inputs.
var ModelFeatures = []string{
	FileSize,
	EntropyBits,
	NumStrings,
	NonASCIIRatio,
	IsPE,
}

// Source provides feature values by name
type Source interface {
	// Value returns the numeric value of a feature and whether it is present
	Value(name string) (float64, bool)
}

// FeatureSet is the full set of features derived from a scanned file
type FeatureSet struct {
	FileSize       int64   `json:"file_size"`
	Entropy        float64 `json:"entropy"`
	NumStrings     int     `json:"num_strings"`
	NonASCIIRatio  float64 `json:"non_ascii_ratio"`
	PrintableRatio float64 `json:"printable_ratio"`
	IsPE           bool    `json:"is_pe"`
	ExtensionCode  int     `json:"extension_code"`
}

// NewFeatureSet assembles a FeatureSet from byte statistics and file metadata
func NewFeatureSet(size int64, stats ByteStats, extensionCode int) FeatureSet {
	return FeatureSet{
		FileSize:       size,
		Entropy:        stats.Entropy,
		NumStrings:     stats.NumStrings,
		NonASCIIRatio:  stats.NonASCIIRatio,
		PrintableRatio: stats.PrintableRatio,
		IsPE:           stats.IsPE,
		ExtensionCode:  extensionCode,
	}
}

// Value implements Source
func (fs FeatureSet) Value(name string) (float64, bool) {
	switch name {
	case FileSize:
		return float64(fs.FileSize), true
	case EntropyBits:
		return fs.Entropy, true
	case NumStrings:
		return float64(fs.NumStrings), true
	case NonASCIIRatio:
		return fs.NonASCIIRatio, true
	case PrintableRatio:
		return fs.PrintableRatio, true
	case IsPE:
		return boolToFloat(fs.IsPE), true
	case ExtensionCode:
		return float64(fs.ExtensionCode), true
	default:
		return 0, false
	}
}

// Row is a loosely populated Source, such as one line of a training dataset
type Row map[string]float64

// Value implements Source
func (r Row) Value(name string) (float64, bool) {
	v, ok := r[name]
	return v, ok
}

// IsKnown reports whether name is one of the computed features
func IsKnown(name string) bool {
	for _, f := range ComputedFeatures {
		if f == name {
			return true
		}
	}
	return false
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
