package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"go-pbpk-popsim/internal/pbpk"
	"go-pbpk-popsim/internal/population"
	"go-pbpk-popsim/internal/scenario"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "pbpkcli",
		Usage:   "Run PBPK population simulations from the command line",
		Version: version,
		Commands: []*cli.Command{
			populationCommand(),
			simulateCommand(),
			presetsCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func populationCommand() *cli.Command {
	return &cli.Command{
		Name:  "population",
		Usage: "Generate a virtual population and print its summary",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "subjects", Aliases: []string{"n"}, Value: 200, Usage: "Number of virtual subjects"},
			&cli.Uint64Flag{Name: "seed", Usage: "Deterministic seed (0 = random)"},
			&cli.IntFlag{Name: "age-min", Value: 18},
			&cli.IntFlag{Name: "age-max", Value: 65},
			&cli.Float64Flag{Name: "male-ratio", Value: 0.5, Usage: "Fraction of male subjects"},
			&cli.Float64Flag{Name: "weight-mean", Value: 70, Usage: "Mean body weight, kg"},
			&cli.Float64Flag{Name: "weight-sd", Value: 15, Usage: "Body weight SD, kg"},
			&cli.BoolFlag{Name: "json", Usage: "Print the full cohort as JSON"},
		},
		Action: func(c *cli.Context) error {
			params := population.DefaultParams()
			params.NSubjects = c.Int("subjects")
			params.Seed = c.Uint64("seed")
			params.AgeMin = c.Int("age-min")
			params.AgeMax = c.Int("age-max")
			params.GenderRatio = c.Float64("male-ratio")
			params.WeightMean = c.Float64("weight-mean")
			params.WeightSD = c.Float64("weight-sd")

			gen, err := population.NewGenerator(params)
			if err != nil {
				return err
			}
			cohort := gen.Generate()
			summary := population.Summarize(cohort)

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"individuals": cohort,
					"summary":     summary,
				})
			}

			color.New(color.Bold).Printf("Virtual population: %d subjects\n\n", summary.NSubjects)
			renderTable([]string{"Metric", "Value"}, [][]string{
				{"Age", fmt.Sprintf("%.1f ± %.1f y (range %g-%g)", summary.Demographics.Age.Mean, summary.Demographics.Age.SD, summary.Demographics.Age.Min, summary.Demographics.Age.Max)},
				{"Weight", fmt.Sprintf("%.1f ± %.1f kg", summary.Demographics.Weight.Mean, summary.Demographics.Weight.SD)},
				{"Gender", fmt.Sprintf("%d M / %d F", summary.Demographics.Gender.Male, summary.Demographics.Gender.Female)},
				{"Activity score", fmt.Sprintf("%.2f ± %.2f", summary.ActivityScore.Mean, summary.ActivityScore.SD)},
			})

			rows := make([][]string, 0, len(summary.MetabolizerDistribution))
			for status, n := range summary.MetabolizerDistribution {
				if n > 0 {
					rows = append(rows, []string{status, strconv.Itoa(n)})
				}
			}
			fmt.Println()
			renderTable([]string{"Metabolizer", "Subjects"}, rows)
			return nil
		},
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Generate a population, run the cohort simulation, and report PK statistics",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "subjects", Aliases: []string{"n"}, Value: 200},
			&cli.Uint64Flag{Name: "seed", Usage: "Deterministic seed (0 = random)"},
			&cli.StringFlag{Name: "preset", Usage: "Drug preset name (see the presets command)"},
			&cli.Float64Flag{Name: "dose", Usage: "Dose in mg (overrides the preset)"},
			&cli.StringFlag{Name: "route", Value: pbpk.RouteOral, Usage: "Administration route: oral or iv"},
			&cli.Float64Flag{Name: "threshold", Usage: "Toxic threshold in ng/mL (overrides the preset)"},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent subject solves (0 = auto)"},
			&cli.BoolFlag{Name: "json", Usage: "Print the full result as JSON"},
		},
		Action: func(c *cli.Context) error {
			drug := pbpk.DefaultDrugParams()
			simCfg := pbpk.DefaultSimConfig()
			threshold := 1000.0

			if name := c.String("preset"); name != "" {
				preset, err := scenario.Find(name)
				if err != nil {
					return err
				}
				drug = preset.DrugParams()
				simCfg.Dose = preset.Dose
				if preset.ToxicThreshold > 0 {
					threshold = preset.ToxicThreshold
				}
			}
			if c.Float64("dose") > 0 {
				simCfg.Dose = c.Float64("dose")
			}
			if c.Float64("threshold") > 0 {
				threshold = c.Float64("threshold")
			}
			simCfg.Route = c.String("route")

			params := population.DefaultParams()
			params.NSubjects = c.Int("subjects")
			params.Seed = c.Uint64("seed")
			gen, err := population.NewGenerator(params)
			if err != nil {
				return err
			}
			individuals := gen.Generate()
			cohort := make([]pbpk.Physiology, len(individuals))
			for i, ind := range individuals {
				cohort[i] = ind.PhysParams
			}

			bar := progressbar.NewOptions(len(cohort),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(30),
				progressbar.OptionSetDescription("simulating"),
				progressbar.OptionClearOnFinish(),
			)
			result, err := pbpk.SimulateCohort(c.Context, drug, cohort, simCfg, pbpk.CohortOptions{
				Workers:    c.Int("workers"),
				OnProgress: func() { _ = bar.Add(1) },
			})
			_ = bar.Finish()
			if err != nil {
				return err
			}

			safety, err := pbpk.AnalyzeSafety(result.CmaxDistribution, threshold)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"drug":   drug,
					"config": simCfg,
					"result": result,
					"safety": safety,
				})
			}

			color.New(color.Bold).Printf("%s, %g mg %s, %d subjects\n\n", drug.Name, simCfg.Dose, simCfg.Route, len(cohort))
			renderTable([]string{"Statistic", "Value"}, [][]string{
				{"Cmax median", fmt.Sprintf("%.1f ng/mL", pbpk.Percentile(result.CmaxDistribution, 50))},
				{"Cmax p95", fmt.Sprintf("%.1f ng/mL", pbpk.Percentile(result.CmaxDistribution, 95))},
				{"AUC median", fmt.Sprintf("%.1f ng*h/mL", pbpk.Percentile(result.AUCDistribution, 50))},
				{"AUC p95", fmt.Sprintf("%.1f ng*h/mL", pbpk.Percentile(result.AUCDistribution, 95))},
			})

			fmt.Println()
			sevColor := color.New(color.FgGreen)
			switch safety.Severity {
			case "danger":
				sevColor = color.New(color.FgRed, color.Bold)
			case "warning":
				sevColor = color.New(color.FgYellow)
			}
			sevColor.Printf("Safety: %s\n", safety.Severity)
			fmt.Printf("%d of %d subjects (%.1f%%) exceed %g ng/mL; safety ratio %.2f\n",
				safety.NExceeding, safety.NTotal, safety.PercentExceeding, threshold, safety.SafetyRatio)
			return nil
		},
	}
}

func presetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "presets",
		Usage: "List the built-in drug presets",
		Action: func(_ *cli.Context) error {
			presets, err := scenario.Presets()
			if err != nil {
				return err
			}
			rows := make([][]string, len(presets))
			for i, p := range presets {
				rows[i] = []string{
					p.Name,
					fmt.Sprintf("%.2f", p.LogP),
					fmt.Sprintf("%.2f", p.Fu),
					fmt.Sprintf("%.2f", p.Vd),
					fmt.Sprintf("%g", p.Dose),
					fmt.Sprintf("%g", p.ToxicThreshold),
					p.Description,
				}
			}
			renderTable([]string{"Name", "LogP", "Fu", "Vd", "Dose mg", "Threshold", "Description"}, rows)
			return nil
		},
	}
}

func renderTable(headers []string, rows [][]string) {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
			Settings: tw.Settings{
				Separators: tw.Separators{BetweenColumns: tw.Off},
			},
		}),
	)
	table.Header(headers)
	for _, row := range rows {
		_ = table.Append(row)
	}
	_ = table.Render()
}
