package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hrygo/exemplar/embedding"
	"github.com/hrygo/exemplar/evaluation"
	"github.com/hrygo/exemplar/event"
	"github.com/hrygo/exemplar/internal/version"
	"github.com/hrygo/exemplar/retrieval"
	"github.com/hrygo/exemplar/similarity"
)

var rootCmd = &cobra.Command{
	Use:   "exemplar-eval",
	Short: `Offline evaluation tooling for the calendar exemplar retrieval engine. Replays labeled corpora to measure precision, recall and MRR.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Load .env from the current directory if present.
		_ = godotenv.Load()
		if viper.GetBool("verbose") {
			// slog.SetLogLoggerLevel requires go >= 1.22; this is the 1.21 equivalent.
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate retrieval quality over a labeled corpus",
	RunE: func(cmd *cobra.Command, _ []string) error {
		corpus, queries, err := loadCorpusAndQueries()
		if err != nil {
			return err
		}
		h, err := newHarness()
		if err != nil {
			return err
		}
		m, err := h.Evaluate(cmd.Context(), corpus, queries)
		if err != nil {
			return err
		}
		return emitReport(m, nil, nil)
	},
}

var crossvalidateCmd = &cobra.Command{
	Use:   "crossvalidate",
	Short: "Run k-fold cross-validation over a corpus",
	RunE: func(cmd *cobra.Command, _ []string) error {
		events, err := loadEvents(viper.GetString("corpus"))
		if err != nil {
			return err
		}
		folds, err := cmd.Flags().GetInt("folds")
		if err != nil {
			return err
		}
		seed, err := cmd.Flags().GetInt64("seed")
		if err != nil {
			return err
		}
		h, err := newHarness()
		if err != nil {
			return err
		}
		foldMetrics, mean, err := h.CrossValidate(cmd.Context(), events, folds, seed)
		if err != nil {
			return err
		}
		return emitReport(mean, foldMetrics, nil)
	},
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a corpus into train and test JSON files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		events, err := loadEvents(viper.GetString("corpus"))
		if err != nil {
			return err
		}
		ratio, err := cmd.Flags().GetFloat64("ratio")
		if err != nil {
			return err
		}
		seed, err := cmd.Flags().GetInt64("seed")
		if err != nil {
			return err
		}
		trainOut, err := cmd.Flags().GetString("train-out")
		if err != nil {
			return err
		}
		testOut, err := cmd.Flags().GetString("test-out")
		if err != nil {
			return err
		}

		train, test := evaluation.SplitTrainTest(events, ratio, seed)
		if err := writeEvents(trainOut, train); err != nil {
			return err
		}
		if err := writeEvents(testOut, test); err != nil {
			return err
		}
		slog.Info("corpus split", "train", len(train), "test", len(test), "seed", seed)
		return nil
	},
}

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List the worst-precision queries with retrieved vs expected sets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		corpus, queries, err := loadCorpusAndQueries()
		if err != nil {
			return err
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		h, err := newHarness()
		if err != nil {
			return err
		}
		m, err := h.Evaluate(cmd.Context(), corpus, queries)
		if err != nil {
			return err
		}
		cases, err := h.AnalyzeFailureCases(cmd.Context(), corpus, queries, limit)
		if err != nil {
			return err
		}
		return emitReport(m, nil, cases)
	},
}

func init() {
	rootCmd.Version = version.StringFull()

	rootCmd.PersistentFlags().String("corpus", "", "path to the corpus events JSON file")
	rootCmd.PersistentFlags().String("queries", "", "path to the query events JSON file (defaults to the corpus)")
	rootCmd.PersistentFlags().Int("k", evaluation.DefaultK, "retrieval depth for metrics")
	rootCmd.PersistentFlags().Float64("jaccard-threshold", evaluation.DefaultJaccardThreshold, "ground-truth keyword overlap floor")
	rootCmd.PersistentFlags().String("weights", "", "similarity weights as semantic,length,keyword,temporal")
	rootCmd.PersistentFlags().String("embedding", "local", `embedding backend: "local" or "openai"`)
	rootCmd.PersistentFlags().String("report", "", "write the Markdown report to this file instead of stdout")
	rootCmd.PersistentFlags().String("html", "", "also render the report as HTML to this file")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	for _, name := range []string{"corpus", "queries", "k", "jaccard-threshold", "weights", "embedding", "report", "html", "verbose"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("exemplar")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	crossvalidateCmd.Flags().Int("folds", evaluation.DefaultFolds, "number of folds")
	crossvalidateCmd.Flags().Int64("seed", 42, "shuffle seed")
	splitCmd.Flags().Float64("ratio", evaluation.DefaultTrainRatio, "train share of the corpus")
	splitCmd.Flags().Int64("seed", 42, "shuffle seed")
	splitCmd.Flags().String("train-out", "train.json", "train output file")
	splitCmd.Flags().String("test-out", "test.json", "test output file")
	failuresCmd.Flags().Int("limit", 10, "maximum failure cases to report")

	rootCmd.AddCommand(evaluateCmd, crossvalidateCmd, splitCmd, failuresCmd)
}

func loadCorpusAndQueries() (corpus, queries []event.Event, err error) {
	corpus, err = loadEvents(viper.GetString("corpus"))
	if err != nil {
		return nil, nil, err
	}
	queries = corpus
	if path := viper.GetString("queries"); path != "" {
		queries, err = loadEvents(path)
		if err != nil {
			return nil, nil, err
		}
	}
	return corpus, queries, nil
}

func loadEvents(path string) ([]event.Event, error) {
	if path == "" {
		return nil, errors.New("--corpus is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read events file")
	}
	var events []event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, errors.Wrapf(err, "parse events file %s", path)
	}
	return events, nil
}

func writeEvents(path string, events []event.Event) error {
	if path == "" {
		return errors.New("output path is required")
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal events")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "write events file")
}

func newHarness() (*evaluation.Harness, error) {
	weights, err := parseWeights(viper.GetString("weights"))
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(viper.GetString("embedding"))
	if err != nil {
		return nil, err
	}
	return evaluation.NewHarness(evaluation.Config{
		K:                viper.GetInt("k"),
		JaccardThreshold: viper.GetFloat64("jaccard-threshold"),
		Retrieval: retrieval.Config{
			Embedder: embedder,
			Weights:  weights,
		},
	}), nil
}

func newEmbedder(kind string) (embedding.Provider, error) {
	switch kind {
	case "", "local":
		return embedding.NewCachingProvider(embedding.NewHashingProvider(0)), nil
	case "openai":
		provider, err := embedding.NewOpenAIProvider(embedding.OpenAIConfigFromEnv())
		if err != nil {
			return nil, err
		}
		return embedding.NewCachingProvider(provider), nil
	default:
		return nil, errors.Errorf("unknown embedding backend %q", kind)
	}
}

func parseWeights(s string) (similarity.Weights, error) {
	if s == "" {
		return similarity.DefaultWeights(), nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return similarity.Weights{}, errors.Errorf("weights must be four comma-separated floats, got %q", s)
	}
	values := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return similarity.Weights{}, errors.Wrapf(err, "parse weight %q", part)
		}
		values[i] = v
	}
	return similarity.Weights{
		Semantic: values[0],
		Length:   values[1],
		Keyword:  values[2],
		Temporal: values[3],
	}, nil
}

func emitReport(m *evaluation.Metrics, folds []evaluation.FoldMetrics, failures []evaluation.FailureCase) error {
	var buf bytes.Buffer
	if err := evaluation.WriteReport(&buf, m, folds, failures); err != nil {
		return errors.Wrap(err, "render report")
	}

	if path := viper.GetString("report"); path != "" {
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return errors.Wrap(err, "write report")
		}
	} else {
		fmt.Print(buf.String())
	}

	if htmlPath := viper.GetString("html"); htmlPath != "" {
		md := goldmark.New(goldmark.WithExtensions(extension.GFM))
		var html bytes.Buffer
		if err := md.Convert(buf.Bytes(), &html); err != nil {
			return errors.Wrap(err, "render html report")
		}
		if err := os.WriteFile(htmlPath, html.Bytes(), 0o644); err != nil {
			return errors.Wrap(err, "write html report")
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
