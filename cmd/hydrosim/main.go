package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/san-kum/hydrosim/internal/analysis"
	"github.com/san-kum/hydrosim/internal/automation"
	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/experiment"
	"github.com/san-kum/hydrosim/internal/export"
	"github.com/san-kum/hydrosim/internal/forcing"
	"github.com/san-kum/hydrosim/internal/integrators"
	"github.com/san-kum/hydrosim/internal/optim"
	"github.com/san-kum/hydrosim/internal/sim"
	"github.com/san-kum/hydrosim/internal/storage"
	"github.com/san-kum/hydrosim/internal/viz"
)

var (
	dataDir     string
	workers     int
	configFile  string
	preset      string
	model       string
	forcingFile string
	days        int
	seed        int64
	step        float64
	relTol      float64
	maxSteps    int
	series      string
	metricName  string
	gridFlags   []string
	outFile     string
	noSave      bool
	traceFile   string
	// sweep and monte carlo
	sweepParamName string
	sweepMin       float64
	sweepMax       float64
	sweepSteps     int
	rangeFlags     []string
	trials         int
	mcSeed         int64
)

var title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

// main wires the hydrosim commands. Environment settings supply flag
// defaults; the process exits 1 when a command fails.
func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:          "hydrosim",
		Short:        "conceptual rainfall-runoff simulation",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", env.DataDir, "data directory")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", env.Workers, "concurrent runs (0 = all cpus)")

	runCmd := &cobra.Command{
		Use:   "run [config]",
		Short: "run simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, args, env)
		},
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&traceFile, "trace", "", "write every attempted step to this CSV file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&series, "series", "", "plot only this column (default all)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectral and flow duration analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&series, "series", "", "column to analyse (default discharge)")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	calibrateCmd := &cobra.Command{
		Use:   "calibrate [config]",
		Short: "grid search parameters against observed discharge",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return calibrate(cmd, args, env)
		},
	}
	addRunFlags(calibrateCmd)
	calibrateCmd.Flags().StringVar(&metricName, "metric", "", "objective metric: rmse or nse (default from config)")
	calibrateCmd.Flags().StringArrayVar(&gridFlags, "grid", nil, "parameter axis, e.g. kf=1,2,4 (repeatable)")

	compareCmd := &cobra.Command{
		Use:   "compare [config] [rel_tol...]",
		Short: "compare integration tolerances on the same run",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compareTolerances(cmd, args, env)
		},
	}
	addRunFlags(compareCmd)

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export one column as an SVG chart",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&series, "series", "q", "column to draw")
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	sweepCmd := &cobra.Command{
		Use:   "sweep [config]",
		Short: "sweep one parameter linearly",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweepParam(cmd, args, env)
		},
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParamName, "param", "kf", "parameter to vary")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 10, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [config]",
		Short: "sample parameters uniformly and summarise the runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return monteCarlo(cmd, args, env)
		},
	}
	addRunFlags(monteCarloCmd)
	monteCarloCmd.Flags().StringArrayVar(&rangeFlags, "range", nil, "parameter range, e.g. kf=1:5 (repeatable)")
	monteCarloCmd.Flags().IntVar(&trials, "trials", 100, "number of samples")
	monteCarloCmd.Flags().Int64Var(&mcSeed, "mc-seed", 1, "sampling seed")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario]",
		Short: "run a scripted scenario and store each step",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().IntVar(&days, "days", 365, "synthetic forcing length for steps without a forcing file")
	batchCmd.Flags().Int64Var(&seed, "seed", 1, "synthetic forcing seed")

	forcingCmd := &cobra.Command{
		Use:   "forcing [out]",
		Short: "write a synthetic forcing series",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeForcing,
	}
	forcingCmd.Flags().IntVar(&days, "days", 365, "number of daily intervals")
	forcingCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportJSONCmd, analyzeCmd, viewCmd, presetsCmd, calibrateCmd, compareCmd,
		exportSVGCmd, sweepCmd, monteCarloCmd, batchCmd, forcingCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&model, "model", "", "model: crr or reservoir")
	cmd.Flags().StringVar(&forcingFile, "forcing", "", "forcing CSV (P, Ep, optional Q)")
	cmd.Flags().IntVar(&days, "days", 365, "synthetic forcing length when no forcing file is given")
	cmd.Flags().Int64Var(&seed, "seed", 1, "synthetic forcing seed")
	cmd.Flags().Float64Var(&step, "step", config.DefaultStep, "output interval length")
	cmd.Flags().Float64Var(&relTol, "rel-tol", 0, "relative tolerance")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step attempts per interval (0 = unbounded)")
}

// resolveConfig layers the configuration: defaults, then preset, then
// config file, then explicit flags.
func resolveConfig(cmd *cobra.Command, args []string, env config.Env) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		name := model
		if name == "" {
			name = config.DefaultModel
		}
		p := config.GetPreset(name, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(name))
		}
		cfg = p
	}

	path := env.ConfigFile
	if len(args) > 0 {
		path = args[0]
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.UseModel(model)
	}
	if flags.Changed("forcing") {
		cfg.Forcing = forcingFile
	}
	if flags.Changed("step") {
		cfg.Step = step
	}
	if flags.Changed("rel-tol") {
		cfg.Options.RelTol = relTol
	}
	if flags.Changed("max-steps") {
		cfg.Options.MaxSteps = maxSteps
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadForcing(cfg *config.Config) (*forcing.Series, error) {
	if cfg.Forcing == "" {
		return forcing.Synthetic(days, seed), nil
	}
	return forcing.Load(cfg.Forcing)
}

func setup(cmd *cobra.Command, args []string, env config.Env) (*experiment.Experiment, error) {
	cfg, err := resolveConfig(cmd, args, env)
	if err != nil {
		return nil, err
	}
	f, err := loadForcing(cfg)
	if err != nil {
		return nil, err
	}
	exp := experiment.New(cfg, f)
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return nil, err
	}
	return exp, nil
}

func runSimulation(cmd *cobra.Command, args []string, env config.Env) error {
	exp, err := setup(cmd, args, env)
	if err != nil {
		return err
	}
	cfg := exp.Config()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(title.Render(fmt.Sprintf("hydrosim %s", cfg.Model)))
	fmt.Printf("intervals: %d  step: %g  rel_tol: %g\n", exp.Forcing().Len(), cfg.Step, cfg.Options.RelTol)

	var trace *stepTrace
	if traceFile != "" {
		file, err := os.Create(traceFile)
		if err != nil {
			return err
		}
		defer file.Close()
		trace = newStepTrace(file)
		exp.Simulator().SetStepObserver(trace)
	}

	start := time.Now()
	result, err := exp.Run(ctx)
	elapsed := time.Since(start)
	if trace != nil {
		if terr := trace.Close(); terr != nil && err == nil {
			err = fmt.Errorf("trace: %w", terr)
		}
	}
	if err != nil {
		if result != nil {
			return fmt.Errorf("run failed after %d intervals: %w", len(result.Intervals), err)
		}
		return err
	}

	printStats(result.Stats, elapsed)
	printMetrics(result.Metrics)

	if noSave {
		return nil
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(exp.Record(exp.System(), result))
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved: %s\n", runID)
	return nil
}

func printStats(st integrators.Stats, elapsed time.Duration) {
	fmt.Printf("steps: %d accepted, %d rejected, %d evaluations\n", st.Accepted, st.Rejected, st.Evaluations)
	fmt.Printf("step size: min %.3g, max %.3g\n", st.MinStep, st.MaxStep)
	fmt.Printf("elapsed: %v\n", elapsed)
}

func printMetrics(m map[string]float64) {
	if len(m) == 0 {
		return
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.6g\n", name, m[name])
	}
	w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tOUTPUTS\tSTEPS\tREJECTED\tFORCING")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Outputs,
			run.Stats.Accepted,
			run.Stats.Rejected,
			run.Forcing,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	table, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", len(table.Times))

	for i, name := range table.Header {
		if series != "" && name != series {
			continue
		}
		fmt.Println(viz.Plot(table.Series(i), name+" vs time", 80, 10))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func output() (*os.File, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	out, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).CopyStates(out, args[0]); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	out, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).Export(out, args[0]); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	table, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	name := series
	if name == "" {
		name = "q"
		if _, ok := table.Discharge(); !ok {
			name = table.Header[0]
		}
	}
	data, ok := table.Column(name)
	if !ok {
		return fmt.Errorf("run %s has no column %q (have %v)", runID, name, table.Header)
	}

	fmt.Println(title.Render(fmt.Sprintf("analysis: %s", meta.ID)))
	fmt.Printf("model: %s  column: %s\n\n", meta.Model, name)

	dt := 1.0
	if len(table.Times) > 1 {
		dt = table.Times[1] - table.Times[0]
	}

	ps := analysis.PowerSpectrum(data)
	if len(ps) > 1 {
		fmt.Println(viz.Plot(ps[1:], "power spectrum ("+name+")", 80, 12))
		fmt.Println()
	}
	if period := analysis.DominantPeriod(data, dt); period > 0 {
		fmt.Printf("dominant period: %.3f\n", period)
	} else {
		fmt.Println("dominant period: none")
	}

	values, exceedance := analysis.FlowDuration(data)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nEXCEEDANCE\tVALUE")
	for _, p := range []float64{0.05, 0.5, 0.95} {
		for i, e := range exceedance {
			if e >= p {
				fmt.Fprintf(w, "%.0f%%\t%.6g\n", p*100, values[i])
				break
			}
		}
	}
	w.Flush()

	if q, ok := table.Discharge(); ok && len(table.Header) > 1 {
		stored := table.Series(len(table.Header) - 2)
		fmt.Printf("\n%s vs q\n", table.Header[len(table.Header)-2])
		fmt.Print(analysis.NewPortrait(stored, q).ToASCII(60, 15))
	}
	return nil
}

func viewRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	table, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	cols := make([]viz.Series, len(table.Header))
	for i, name := range table.Header {
		cols[i] = viz.Series{Name: name, Values: table.Series(i)}
	}

	v := viz.NewViewer(meta.ID, table.Times, cols, meta.Metrics)
	_, err = tea.NewProgram(v, tea.WithAltScreen()).Run()
	return err
}

// parseAxis reads a grid axis of the form name=v1,v2,...
func parseAxis(s string) (config.GridAxis, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return config.GridAxis{}, fmt.Errorf("grid axis %q: want name=v1,v2", s)
	}
	ax := config.GridAxis{Name: strings.ToLower(strings.TrimSpace(name))}
	for _, field := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return config.GridAxis{}, fmt.Errorf("grid axis %q: %w", s, err)
		}
		ax.Values = append(ax.Values, v)
	}
	return ax, nil
}

func calibrate(cmd *cobra.Command, args []string, env config.Env) error {
	exp, err := setup(cmd, args, env)
	if err != nil {
		return err
	}
	cfg := exp.Config()
	if !exp.Forcing().HasObserved() {
		return fmt.Errorf("calibration needs observed discharge (a Q column in the forcing file)")
	}

	axes := cfg.Calibration.Grid
	if len(gridFlags) > 0 {
		axes = nil
		for _, s := range gridFlags {
			ax, err := parseAxis(s)
			if err != nil {
				return err
			}
			axes = append(axes, ax)
		}
	}
	if len(axes) == 0 {
		return fmt.Errorf("no calibration grid: set calibration.grid or --grid")
	}

	metric := cfg.Calibration.Metric
	if metricName != "" {
		metric = metricName
	}
	if metric == "" {
		metric = "rmse"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := optim.FromAxes(axes).WithWorkers(workers)
	fmt.Println(title.Render(fmt.Sprintf("calibrating %s on %s", cfg.Model, metric)))
	fmt.Printf("candidates: %d\n\n", len(g.Points()))

	start := time.Now()
	best, all, err := g.Search(ctx, exp, metric)
	if err != nil {
		return err
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Err == nil && (all[j].Err != nil || all[i].Score < all[j].Score)
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PARAMS\t%s\n", strings.ToUpper(metric))
	for _, c := range all {
		if c.Err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", c.Label(), c.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.6g\n", c.Label(), c.Value)
	}
	w.Flush()

	fmt.Printf("\nbest: %s (%s %.6g) in %v\n", best.Label(), metric, best.Value, time.Since(start))
	return nil
}

func compareTolerances(cmd *cobra.Command, args []string, env config.Env) error {
	exp, err := setup(cmd, args[:1], env)
	if err != nil {
		return err
	}
	cfg := exp.Config()

	tols, jobs, err := toleranceJobs(exp, args[1:])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("comparing tolerances for %s (%d intervals)\n\n", cfg.Model, exp.Forcing().Len())

	results, errs := exp.Ensemble(workers).RunAll(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REL_TOL\tACCEPTED\tREJECTED\tEVALS\tMEAN_Q\tPEAK_Q")
	for i, tol := range tols {
		if errs[i] != nil {
			fmt.Fprintf(w, "%g\terror: %v\n", tol, errs[i])
			continue
		}
		st := results[i].Stats
		m := results[i].Metrics
		fmt.Fprintf(w, "%g\t%d\t%d\t%d\t%.6g\t%.6g\n",
			tol, st.Accepted, st.Rejected, st.Evaluations, m["mean_discharge"], m["peak_discharge"])
	}
	return w.Flush()
}

// toleranceJobs builds one job per relative tolerance, each validated
// before anything runs.
func toleranceJobs(exp *experiment.Experiment, args []string) ([]float64, []sim.Job, error) {
	tols := make([]float64, 0, len(args))
	jobs := make([]sim.Job, 0, len(args))
	for _, a := range args {
		tol, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("rel_tol %q: %w", a, err)
		}
		job, err := exp.Job(a, nil)
		if err != nil {
			return nil, nil, err
		}
		job.Options.RelTol = tol
		if err := job.Options.Validate(job.System.StateDim()); err != nil {
			return nil, nil, fmt.Errorf("rel_tol %s: %w", a, err)
		}
		tols = append(tols, tol)
		jobs = append(jobs, job)
	}
	return tols, jobs, nil
}

func writeForcing(cmd *cobra.Command, args []string) error {
	f := forcing.Synthetic(days, seed)
	if len(args) == 0 {
		return forcing.Write(os.Stdout, f)
	}
	file, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := forcing.Write(file, f); err != nil {
		file.Close()
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d intervals to %s\n", f.Len(), args[0])
	return file.Close()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	table, err := storage.New(dataDir).LoadStates(args[0])
	if err != nil {
		return err
	}
	values, ok := table.Column(series)
	if !ok {
		return fmt.Errorf("run %s has no column %q (have %v)", args[0], series, table.Header)
	}
	svg := export.SeriesToSVG(table.Times, values, 800, 300, string(viz.ThemeOcean.Secondary))
	if svg == "" {
		return fmt.Errorf("not enough data to draw %s", series)
	}

	out, closeFn, err := output()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, svg); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func sweepParam(cmd *cobra.Command, args []string, env config.Env) error {
	exp, err := setup(cmd, args, env)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sweep := &automation.ParameterSweep{
		ParamName: sweepParamName,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
	}
	fmt.Printf("sweeping %s from %g to %g (%d values)\n\n", sweep.ParamName, sweep.ParamMin, sweep.ParamMax, sweep.NumSteps)

	results, err := automation.RunSweep(ctx, exp, sweep, workers)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tMEAN_Q\tPEAK_Q\tFINAL_STATE\n", strings.ToUpper(sweep.ParamName))
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%g\terror: %v\n", r.ParamValue, r.Err)
			continue
		}
		fmt.Fprintf(w, "%g\t%.6g\t%.6g\t%.4g\n", r.ParamValue, r.MeanDischarge, r.PeakDischarge, []float64(r.FinalState))
	}
	return w.Flush()
}

// parseRange reads a sampling range of the form name=min:max
func parseRange(s string) (automation.ParamRange, error) {
	name, bounds, ok := strings.Cut(s, "=")
	lo, hi, ok2 := strings.Cut(bounds, ":")
	if !ok || !ok2 || strings.TrimSpace(name) == "" {
		return automation.ParamRange{}, fmt.Errorf("range %q: want name=min:max", s)
	}
	minV, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return automation.ParamRange{}, fmt.Errorf("range %q: %w", s, err)
	}
	maxV, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return automation.ParamRange{}, fmt.Errorf("range %q: %w", s, err)
	}
	if maxV < minV {
		return automation.ParamRange{}, fmt.Errorf("range %q: max below min", s)
	}
	return automation.ParamRange{Name: strings.ToLower(strings.TrimSpace(name)), Min: minV, Max: maxV}, nil
}

func monteCarlo(cmd *cobra.Command, args []string, env config.Env) error {
	exp, err := setup(cmd, args, env)
	if err != nil {
		return err
	}
	if len(rangeFlags) == 0 {
		return fmt.Errorf("no parameter ranges: use --range name=min:max")
	}

	mc := &automation.MonteCarloConfig{NumTrials: trials, Seed: mcSeed}
	for _, s := range rangeFlags {
		r, err := parseRange(s)
		if err != nil {
			return err
		}
		mc.Ranges = append(mc.Ranges, r)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	results, err := automation.RunMonteCarlo(ctx, exp, mc, workers)
	if err != nil {
		return err
	}
	stable, unstable, failed := automation.MonteCarloStats(results)

	fmt.Println(title.Render(fmt.Sprintf("monte carlo: %d trials in %v", len(results), time.Since(start))))
	fmt.Printf("in bounds: %d  out of bounds: %d  failed: %d\n", stable, unstable, failed)

	var qs []float64
	for _, r := range results {
		if r.Err == nil {
			qs = append(qs, r.Metrics["mean_discharge"])
		}
	}
	values, exceedance := analysis.FlowDuration(qs)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nEXCEEDANCE\tMEAN_Q")
	for _, p := range []float64{0.05, 0.5, 0.95} {
		for i, e := range exceedance {
			if e >= p {
				fmt.Fprintf(w, "%.0f%%\t%.6g\n", p*100, values[i])
				break
			}
		}
	}
	return w.Flush()
}

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(title.Render(fmt.Sprintf("scenario: %s", sc.Name)))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}

	results, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), loadForcing)
	for i, r := range results {
		rec := r.Experiment.Record(r.Experiment.System(), r.Result)
		rec.Name = r.Step.SaveAs
		runID, saveErr := st.Save(rec)
		if saveErr != nil {
			return saveErr
		}
		fmt.Printf("step %d/%d %s: %d steps, saved %s\n", i+1, len(sc.Steps), rec.Model, r.Result.Stats.Accepted, runID)
	}
	return err
}
