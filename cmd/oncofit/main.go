package main

import (
	"os"

	"oncofit/app"
	"oncofit/internal/calibrate"
	"oncofit/internal/errors"
	"oncofit/internal/incidence"
	"oncofit/internal/sensitivity"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "oncofit",
		Short: "Compare cancer incidence curves with a mutation-accumulation model",
		Long: `oncofit predicts age-specific malignancy risk from a mutation-accumulation
model and compares it with USCS age-incidence data.

Model parameters come from ONCOFIT_* environment variables (or .env) and can be
overridden with flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}
	opts.bindPersistent(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newPredictCmd(opts),
		newFitCmd(opts),
		newCurvesCmd(opts),
		newSweepCmd(opts),
		newCalibrateCmd(opts),
		newTrendCmd(opts),
	)
	return rootCmd
}

func newPredictCmd(opts *options) *cobra.Command {
	var ages []float64
	var scaleToMax float64

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict risk at the given ages",
		Long: `Evaluate the model at explicit ages.

Example: oncofit predict --ages 20,40,60,80 --scale-to-max 2000 --C 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := opts.service.Predict(cmd.Context(), app.PredictRequest{
				Model:      opts.modelSpec(),
				Ages:       ages,
				ScaleToMax: scaleToMax,
			})
			if err != nil {
				return err
			}
			return opts.write(cmd, doc)
		},
	}

	cmd.Flags().Float64SliceVar(&ages, "ages", nil, "Comma-separated ages in years")
	cmd.Flags().Float64Var(&scaleToMax, "scale-to-max", 0, "Rescale so the largest prediction equals this value")
	cmd.MarkFlagRequired("ages")
	return cmd
}

func newFitCmd(opts *options) *cobra.Command {
	var sel selectionFlags

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the model to one observed age-incidence curve",
		Long: `Scale predictions to the largest observed rate and report MSE, RMSE, MAE, R²
and residuals.

Example: oncofit fit --data BYAGE.TXT --year 2020 --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, selection := sel.resolve(opts.cfg)
			doc, err := opts.service.Fit(cmd.Context(), app.FitRequest{
				Model:     opts.modelSpec(),
				DataFile:  data,
				Selection: selection,
			})
			if err != nil {
				return err
			}
			return opts.write(cmd, doc)
		},
	}

	sel.bind(cmd.Flags())
	return cmd
}

func newCurvesCmd(opts *options) *cobra.Command {
	var sel selectionFlags
	var years []int

	cmd := &cobra.Command{
		Use:   "curves",
		Short: "Extract observed age-incidence curves for several years",
		Long: `Extract one curve per year. Years without data are skipped with a warning.

Example: oncofit curves --data BYAGE.TXT --years 2015,2018,2020,2022`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, selection := sel.resolve(opts.cfg)
			doc, err := opts.service.Curves(cmd.Context(), app.CurvesRequest{
				DataFile:  data,
				Selection: selection,
				Years:     years,
			})
			if err != nil {
				return err
			}
			return opts.write(cmd, doc)
		},
	}

	sel.bind(cmd.Flags())
	cmd.Flags().IntSliceVar(&years, "years", []int{2015, 2018, 2020, 2022}, "Comma-separated years")
	return cmd
}

func newSweepCmd(opts *options) *cobra.Command {
	var sel selectionFlags
	var planFile string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Vary one parameter at a time and score each variant",
		Long: `Run a sensitivity sweep against one observed curve. Without --plan, p and M
are swept around the reference values.

Example: oncofit sweep --data BYAGE.TXT --plan sweeps.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var plan *sensitivity.Plan
			if planFile != "" {
				loaded, err := sensitivity.LoadPlan(planFile)
				if err != nil {
					return errors.WithCode(errors.CodeInvalidInput, err)
				}
				plan = loaded
			}

			data, selection := sel.resolve(opts.cfg)
			doc, err := opts.service.Sweep(cmd.Context(), app.SweepRequest{
				Model:     opts.modelSpec(),
				DataFile:  data,
				Selection: selection,
				Plan:      plan,
			})
			if err != nil {
				return err
			}
			return opts.write(cmd, doc)
		},
	}

	sel.bind(cmd.Flags())
	cmd.Flags().StringVar(&planFile, "plan", "", "YAML sweep plan")
	return cmd
}

func newCalibrateCmd(opts *options) *cobra.Command {
	var sel selectionFlags
	settings := calibrate.DefaultSettings()

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Fit p to an observed curve",
		Long: `Minimize the MSE over log10(p) with Nelder-Mead, holding the other
parameters fixed. The calibrated fit is never worse than the starting one.

Example: oncofit calibrate --data BYAGE.TXT --M 100 --divisions-per-year 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, selection := sel.resolve(opts.cfg)
			doc, err := opts.service.Calibrate(cmd.Context(), app.CalibrateRequest{
				Model:     opts.modelSpec(),
				DataFile:  data,
				Selection: selection,
				Settings:  settings,
			})
			if err != nil {
				return err
			}
			return opts.write(cmd, doc)
		},
	}

	sel.bind(cmd.Flags())
	cmd.Flags().IntVar(&settings.MaxIterations, "max-iterations", settings.MaxIterations, "Optimizer iteration limit")
	cmd.Flags().IntVar(&settings.MaxFuncEvaluations, "max-evaluations", settings.MaxFuncEvaluations, "Objective evaluation limit")
	return cmd
}

func newTrendCmd(opts *options) *cobra.Command {
	var data string
	filter := incidence.PediatricMalignantBrain()

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Average age-adjusted rates per year from a BRAINBYSITE extract",
		Long: `Average the age-adjusted rate per year for the selected age group and
behavior. Defaults to malignant brain tumours in ages 0-19.

Example: oncofit trend --data BRAINBYSITE.TXT`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if data == "" {
				data = opts.cfg.Data.BrainBySiteFile
			}
			doc, err := opts.service.Trend(cmd.Context(), app.TrendRequest{
				DataFile: data,
				Filter:   filter,
			})
			if err != nil {
				return err
			}
			return opts.write(cmd, doc)
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "USCS BRAINBYSITE extract (.txt, .csv or .xlsx)")
	cmd.Flags().StringVar(&filter.Age, "age", filter.Age, "Age group")
	cmd.Flags().StringVar(&filter.Behavior, "behavior", filter.Behavior, "Behavior (Malignant, Benign, ...)")
	cmd.Flags().StringVar(&filter.Site, "site", "", "Site; empty keeps all sites")
	return cmd
}
