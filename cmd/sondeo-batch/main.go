// Command sondeo-batch runs one analytics pass over a feedback source and
// writes the report to a sink
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"

	"sondeo/internal/adapters/classify/openai"
	chsink "sondeo/internal/adapters/sink/clickhouse"
	"sondeo/internal/adapters/sink/jsonfile"
	"sondeo/internal/adapters/source/jsonl"
	pgsource "sondeo/internal/adapters/source/pg"
	"sondeo/internal/modkit"
	"sondeo/internal/modkit/module"
	"sondeo/internal/platform/config"
	perr "sondeo/internal/platform/errors"
	"sondeo/internal/platform/logger"
	batchdom "sondeo/internal/services/batch/domain"
	batchmod "sondeo/internal/services/batch/module"
)

func mustSetEnv(k, v string) {
	if v != "" {
		_ = os.Setenv(k, v)
	}
}

func main() {
	logger.Init(logger.FromEnv())
	root := config.New()
	l := logger.Get()

	var (
		input     = flag.String("input", "", "feedback JSONL file (exclusive with -pg)")
		usePG     = flag.Bool("pg", false, "read from Postgres (SERVICE_PGSQL_DBURL)")
		output    = flag.String("output", "", "report JSON file (default stdout)")
		useCH     = flag.Bool("ch", false, "also write to ClickHouse (SERVICE_CLICKHOUSE_DBURL)")
		chunkSize = flag.Int("chunk-size", 0, "records per chunk (0 = auto-size)")
		workers   = flag.Int("workers", 1, "concurrency (1 = sequential)")
		memoryMB  = flag.Float64("memory-mb", 256, "chunk memory budget for auto-sizing")
		analyses  = flag.String("analyses", "", "comma separated subset of duplicates,emotions,themes")
		fuzzy     = flag.Bool("fuzzy", false, "report near-duplicate pairs (O(n^2) per chunk)")
		threshold = flag.Float64("threshold", 0, "near-duplicate similarity cutoff (0 = default 0.95)")
		classify  = flag.Bool("classify", false, "override lexical emotions via OpenAI (OPENAI_API_KEY)")
		pack      = flag.String("pack", "", "lexicon pack file (default embedded)")
	)
	flag.Parse()

	if (*input == "") == !*usePG {
		log.Fatal("exactly one of -input or -pg is required")
	}

	// Pass CLI flags into CORE_BATCH_* so the module can read its own config
	mustSetEnv("CORE_BATCH_CHUNK_SIZE", strconv.Itoa(*chunkSize))
	mustSetEnv("CORE_BATCH_WORKERS", strconv.Itoa(*workers))
	mustSetEnv("CORE_BATCH_TARGET_MEMORY_MB", strconv.FormatFloat(*memoryMB, 'f', -1, 64))
	mustSetEnv("CORE_BATCH_ANALYSES", *analyses)
	mustSetEnv("CORE_BATCH_FUZZY", map[bool]string{true: "1", false: "0"}[*fuzzy])
	if *threshold > 0 {
		mustSetEnv("CORE_BATCH_SIMILARITY_THRESHOLD", strconv.FormatFloat(*threshold, 'f', -1, 64))
	}
	mustSetEnv("CORE_BATCH_PACK_PATH", *pack)

	ctx := context.Background()

	var source batchdom.SourcePort
	if *usePG {
		pgCfg := root.Prefix("SERVICE_PGSQL_")
		src, err := pgsource.Open(ctx, pgsource.Config{
			URL:      pgCfg.MustString("DBURL"),
			Table:    pgCfg.MayString("TABLE", "feedback"),
			MaxConns: int32(pgCfg.MayInt("MAX_CONNS", 4)),
		})
		if err != nil {
			l.Panic().Err(err).Msg("postgres source open failed")
		}
		defer src.Close()
		source = src
	} else {
		source = jsonl.New(*input)
	}

	var sink batchdom.SinkPort
	if *useCH {
		chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
		s, err := chsink.Open(ctx, chsink.Config{URL: chCfg.MustString("DBURL")})
		if err != nil {
			l.Panic().Err(err).Msg("clickhouse sink open failed")
		}
		defer s.Close()
		sink = s
	} else if *output != "" {
		sink = jsonfile.New(*output)
	} else {
		sink = jsonfile.NewWriter(os.Stdout)
	}

	var classifier batchdom.ClassifierPort
	if *classify {
		classifier = openai.New(openai.Config{
			APIKey: root.MustString("OPENAI_API_KEY"),
			Model:  root.MayString("OPENAI_MODEL", ""),
		})
	}

	deps := modkit.Deps{Cfg: root, Log: *l}
	bm := batchmod.New(
		deps,
		batchmod.Options{},
		modkit.WithPorts(batchdom.Ports{
			Source:     source,
			Classifier: classifier,
			Sink:       sink,
		}),
	)

	module.Register(bm.Name(), bm.Ports())

	runner := module.MustPortsOf[batchdom.RunnerPort](bm)
	rep, err := runner.Run(ctx)
	if err != nil {
		l.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("batch run failed")
		os.Exit(1)
	}

	l.Info().
		Str("run_id", rep.RunID).
		Int("records", rep.Aggregate.TotalRecords).
		Float64("nps", rep.Aggregate.NPS).
		Float64("csi", rep.Aggregate.CSI).
		Str("csi_band", string(rep.Aggregate.CSIBand)).
		Msg("done")
}
