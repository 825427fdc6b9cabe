package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"churnapi/db"
	"churnapi/ml"
	"churnapi/predict"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"

	historyLimitDefault = 20
)

// errInvalidInput 校验未通过，违规明细已输出
var errInvalidInput = errors.New("input failed validation")

func newApp(stdin io.Reader, stdout io.Writer) *cli.Command {
	modelPathFlag := func() *cli.StringFlag {
		return &cli.StringFlag{
			Name:    "model",
			Usage:   "Path to the model artifact",
			Value:   "models/churn_model.json",
			Sources: cli.EnvVars("MODEL_PATH"),
		}
	}
	inputFlag := func() *cli.StringFlag {
		return &cli.StringFlag{
			Name:  "input",
			Usage: "JSON file with one customer record ('-' reads stdin)",
			Value: "-",
		}
	}

	readInput := func(path string) (map[string]any, error) {
		var r io.Reader = stdin
		if path != "" && path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			r = f
		}
		return ml.DecodeRequest(r)
	}

	return &cli.Command{
		Name:    "churnctl",
		Usage:   "Offline tooling for the customer churn prediction service",
		Version: version,
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Check a customer record against the feature schema",
				Flags: []cli.Flag{inputFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					raw, err := readInput(cmd.String("input"))
					if err != nil {
						return err
					}
					if _, err := ml.Validate(raw); err != nil {
						var verr *ml.ValidationError
						if errors.As(err, &verr) {
							if err := printOut(stdout, cmd.String("format"), verr.Violations); err != nil {
								return err
							}
							return errInvalidInput
						}
						return err
					}
					_, err = fmt.Fprintln(stdout, "ok")
					return err
				},
			},
			{
				Name:  "predict",
				Usage: "Score a customer record with a local model artifact",
				Flags: []cli.Flag{
					modelPathFlag(),
					&cli.StringFlag{
						Name:    "model-version",
						Usage:   "Model version reported with predictions",
						Value:   "1.0.0",
						Sources: cli.EnvVars("MODEL_VERSION"),
					},
					inputFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					store := ml.NewStore(nil)
					if err := store.Load(cmd.String("model"), cmd.String("model-version")); err != nil {
						return err
					}

					raw, err := readInput(cmd.String("input"))
					if err != nil {
						return err
					}
					features, err := ml.Validate(raw)
					if err != nil {
						var verr *ml.ValidationError
						if errors.As(err, &verr) {
							if err := printOut(stdout, cmd.String("format"), verr.Violations); err != nil {
								return err
							}
							return errInvalidInput
						}
						return err
					}

					result, err := predict.NewService(store, nil).Predict(features)
					if err != nil {
						return err
					}
					return printOut(stdout, cmd.String("format"), map[string]any{
						"model_version": store.Version(),
						"result":        result,
					})
				},
			},
			{
				Name:  "inspect",
				Usage: "Describe a model artifact",
				Flags: []cli.Flag{modelPathFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, artifact, err := ml.LoadModel(cmd.String("model"))
					if err != nil {
						return err
					}
					return printOut(stdout, cmd.String("format"), describe(artifact))
				},
			},
			{
				Name:  "history",
				Usage: "Show predictions recorded by the service",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Usage:   "Path to the prediction log database",
						Value:   "data/predictions.db",
						Sources: cli.EnvVars("PREDICTION_LOG_PATH"),
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of predictions to show",
						Value: historyLimitDefault,
					},
					&cli.BoolFlag{
						Name:  "summary",
						Usage: "Show counts per risk level instead of individual predictions",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := cmd.String("db")
					if _, err := os.Stat(path); err != nil {
						return fmt.Errorf("prediction log %s: %w", path, err)
					}
					log, err := db.Open(path, 1, nil)
					if err != nil {
						return err
					}
					defer log.Close()

					if cmd.Bool("summary") {
						counts, err := log.RiskCounts()
						if err != nil {
							return err
						}
						return printOut(stdout, cmd.String("format"), counts)
					}

					recent, err := log.Recent(int(cmd.Int("limit")))
					if err != nil {
						return err
					}
					return printOut(stdout, cmd.String("format"), recent)
				},
			},
		},
	}
}

type artifactSummary struct {
	Kind         string   `json:"kind" yaml:"kind"`
	Version      string   `json:"version,omitempty" yaml:"version,omitempty"`
	Features     []string `json:"features" yaml:"features"`
	Coefficients int      `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	Scaled       bool     `json:"scaled,omitempty" yaml:"scaled,omitempty"`
	Trees        int      `json:"trees,omitempty" yaml:"trees,omitempty"`
	Nodes        int      `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

func describe(a *ml.Artifact) artifactSummary {
	s := artifactSummary{
		Kind:         a.Kind,
		Version:      a.Version,
		Features:     a.Features,
		Coefficients: len(a.Coefficients),
		Scaled:       a.Scaler != nil,
		Trees:        len(a.Trees),
	}
	for _, tree := range a.Trees {
		s.Nodes += len(tree)
	}
	return s
}

func printOut(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case formatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
