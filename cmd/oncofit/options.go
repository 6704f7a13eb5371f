package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"oncofit/adapters/report"
	"oncofit/adapters/uscs"
	"oncofit/app"
	"oncofit/domain/core"
	"oncofit/internal"
	"oncofit/internal/config"
	"oncofit/internal/errors"
	"oncofit/internal/incidence"
	"oncofit/internal/model"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options collects persistent flags. Flags left unset fall back to the
// environment configuration.
type options struct {
	params   model.Parameters
	tail     string
	format   string
	output   string
	envFile  string
	logLevel string

	cfg     *config.Config
	logger  *internal.Logger
	service *app.AnalysisService
}

// selectionFlags are shared by commands that read a BYAGE table
type selectionFlags struct {
	data      string
	year      int
	site      string
	sex       string
	race      string
	eventType string
}

func (o *options) bindPersistent(flags *pflag.FlagSet) {
	defaults := model.DefaultParameters()
	flags.Float64Var(&o.params.P, "p", defaults.P, "Per-division driver-mutation probability")
	flags.IntVar(&o.params.M, "M", defaults.M, "Number of independent stem-cell clones")
	flags.Float64Var(&o.params.DivisionsPerYear, "divisions-per-year", defaults.DivisionsPerYear, "Stem-cell divisions per year")
	flags.IntVar(&o.params.C, "C", defaults.C, "Driver hits a clone needs (clonal threshold)")
	flags.Float64Var(&o.params.R, "r", defaults.R, "Fraction of mutations repaired")
	flags.StringVar(&o.tail, "tail", "gonum", "Poisson tail strategy (gonum|recurrence)")
	flags.StringVar(&o.format, "format", "csv", "Report format (csv|json|markdown|html)")
	flags.StringVarP(&o.output, "output", "o", "", "Write the report to a file instead of stdout")
	flags.StringVar(&o.envFile, "env-file", "", "Load configuration from this file instead of .env")
	flags.StringVar(&o.logLevel, "log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE")
}

// resolve loads configuration and lets explicitly set flags override it
func (o *options) resolve(cmd *cobra.Command) error {
	var envFiles []string
	if o.envFile != "" {
		envFiles = append(envFiles, o.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	o.cfg = cfg

	flags := cmd.Flags()
	if !flags.Changed("p") {
		o.params.P = cfg.Model.P
	}
	if !flags.Changed("M") {
		o.params.M = cfg.Model.M
	}
	if !flags.Changed("divisions-per-year") {
		o.params.DivisionsPerYear = cfg.Model.DivisionsPerYear
	}
	if !flags.Changed("C") {
		o.params.C = cfg.Model.C
	}
	if !flags.Changed("r") {
		o.params.R = cfg.Model.R
	}
	if !flags.Changed("tail") {
		o.tail = cfg.Model.Tail
	}
	if !flags.Changed("format") {
		o.format = cfg.Report.Format
	}
	if !flags.Changed("output") {
		o.output = cfg.Report.Output
	}
	if o.logLevel == "" {
		o.logLevel = cfg.LogLevel
	}

	o.logger = internal.NewLogger(internal.ParseLogLevel(o.logLevel))
	o.service = app.NewAnalysisService(uscs.NewReader(o.logger), o.logger)
	return nil
}

func (o *options) modelSpec() app.ModelSpec {
	return app.ModelSpec{Parameters: o.params, Tail: o.tail}
}

// write renders doc fully before touching the destination, so a bad
// format never leaves an empty file behind
func (o *options) write(cmd *cobra.Command, doc *report.Document) error {
	var buf bytes.Buffer
	if err := report.Render(&buf, o.format, doc); err != nil {
		return errors.WithCode(errors.CodeInvalidInput, err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if o.output != "" {
		f, err := os.Create(o.output)
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", o.output)
		}
		defer f.Close()
		w = f
	}
	if _, err := buf.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	if o.output != "" {
		o.logger.Info("wrote %s report %s to %s", o.format, doc.RunID, o.output)
	}
	return nil
}

func (s *selectionFlags) bind(flags *pflag.FlagSet) {
	flags.StringVar(&s.data, "data", "", "USCS BYAGE extract (.txt, .csv or .xlsx)")
	flags.IntVar(&s.year, "year", 0, "Data year")
	flags.StringVar(&s.site, "site", "", "Cancer site")
	flags.StringVar(&s.sex, "sex", "", "Sex")
	flags.StringVar(&s.race, "race", "", "Race")
	flags.StringVar(&s.eventType, "event-type", "", "Incidence or Mortality")
}

// resolve fills unset selection flags from configuration
func (s *selectionFlags) resolve(cfg *config.Config) (string, incidence.Selection) {
	data := s.data
	if data == "" {
		data = cfg.Data.ByAgeFile
	}
	sel := incidence.Selection{
		Year:      pick(s.year, cfg.Data.Year),
		Site:      pick(s.site, cfg.Data.Site),
		Sex:       pick(s.sex, cfg.Data.Sex),
		Race:      pick(s.race, cfg.Data.Race),
		EventType: pick(s.eventType, cfg.Data.EventType),
	}
	return data, sel
}

func pick[T comparable](flag, fallback T) T {
	var zero T
	if flag == zero {
		return fallback
	}
	return flag
}

func exitCode(err error) int {
	if core.IsParameterError(err) {
		return 2
	}
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput, errors.CodeConfigInvalid:
		return 2
	default:
		return 1
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "error [%s]: %v\n", errors.GetCode(err), err)
}
