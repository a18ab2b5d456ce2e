package module

import "sondeo/internal/platform/config"

// Options holds configuration settings for the batch module
type Options struct {
	ChunkSize      int
	Workers        int
	TargetMemoryMB float64
	Fuzzy          bool
	Threshold      float64
	Analyses       []string
	PackPath       string
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	bf := cfg.Prefix("CORE_BATCH_")
	return Options{
		ChunkSize:      bf.MayInt("CHUNK_SIZE", 0),
		Workers:        bf.MayInt("WORKERS", 1),
		TargetMemoryMB: bf.MayFloat64("TARGET_MEMORY_MB", 256),
		Fuzzy:          bf.MayBool("FUZZY", false),
		Threshold:      bf.MayFloat64("SIMILARITY_THRESHOLD", 0.95),
		Analyses:       bf.MayCSV("ANALYSES", nil),
		PackPath:       bf.MayString("PACK_PATH", ""),
	}
}
