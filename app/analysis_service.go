package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"oncofit/adapters/report"
	"oncofit/adapters/uscs"
	"oncofit/domain/core"
	domain "oncofit/domain/incidence"
	"oncofit/internal"
	"oncofit/internal/calibrate"
	"oncofit/internal/errors"
	"oncofit/internal/fit"
	"oncofit/internal/incidence"
	"oncofit/internal/model"
	"oncofit/internal/probability"
	"oncofit/internal/sensitivity"
)

// TableSource loads USCS extracts by path
type TableSource interface {
	Open(path string) (*uscs.Table, error)
}

// AnalysisService wires table loading, curve extraction, the model and
// reporting into the runs the CLI exposes
type AnalysisService struct {
	tables    TableSource
	extractor *incidence.Extractor
	logger    *internal.Logger
}

// ModelSpec names the parameters and tail strategy of a run
type ModelSpec struct {
	Parameters model.Parameters
	Tail       string
}

// PredictRequest evaluates the model on an explicit age grid.
// ScaleToMax of zero leaves predictions as probabilities.
type PredictRequest struct {
	Model      ModelSpec
	Ages       []float64
	ScaleToMax float64
}

// FitRequest compares the model with one observed curve
type FitRequest struct {
	Model     ModelSpec
	DataFile  string
	Selection incidence.Selection
}

// CurvesRequest extracts observed curves for several years
type CurvesRequest struct {
	DataFile  string
	Selection incidence.Selection
	Years     []int
}

// SweepRequest runs a sensitivity plan against one observed curve.
// A nil Plan uses sensitivity.DefaultPlan.
type SweepRequest struct {
	Model     ModelSpec
	DataFile  string
	Selection incidence.Selection
	Plan      *sensitivity.Plan
}

// CalibrateRequest fits p to one observed curve
type CalibrateRequest struct {
	Model     ModelSpec
	DataFile  string
	Selection incidence.Selection
	Settings  calibrate.Settings
}

// TrendRequest averages age-adjusted rates per year from a BRAINBYSITE table
type TrendRequest struct {
	DataFile string
	Filter   incidence.TrendFilter
}

// NewAnalysisService creates an analysis service; a nil logger uses the default one
func NewAnalysisService(tables TableSource, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AnalysisService{
		tables:    tables,
		extractor: incidence.NewExtractor(logger),
		logger:    logger,
	}
}

// Predict evaluates the model on req.Ages
func (s *AnalysisService) Predict(ctx context.Context, req PredictRequest) (*report.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Ages) == 0 {
		return nil, errors.InvalidInput("at least one age is required")
	}
	if !(req.ScaleToMax >= 0) || math.IsInf(req.ScaleToMax, 0) {
		return nil, errors.InvalidInput(fmt.Sprintf("scale-to-max must be a finite non-negative number, got %v", req.ScaleToMax))
	}
	for _, age := range req.Ages {
		if !(age >= 0) || math.IsInf(age, 0) {
			return nil, errors.InvalidInput(fmt.Sprintf("ages must be finite and non-negative, got %v", age))
		}
	}

	m, err := s.newModel(req.Model)
	if err != nil {
		return nil, err
	}

	var predicted []float64
	if req.ScaleToMax > 0 {
		predicted = m.PredictScaled(req.Ages, req.ScaleToMax)
	} else {
		predicted = m.Predict(req.Ages)
	}

	doc := report.NewDocument("Predicted age-specific risk", req.Model.Parameters, m.Tail().Name())
	doc.Scaled = req.ScaleToMax > 0
	doc.ScaleToMax = req.ScaleToMax
	if err := doc.SetPredictions(req.Ages, nil, predicted); err != nil {
		return nil, err
	}
	s.logger.Info("predicted %d ages with %s", len(req.Ages), req.Model.Parameters)
	return doc, nil
}

// Fit scales predictions to the largest observed rate and scores them
// against the selected curve
func (s *AnalysisService) Fit(ctx context.Context, req FitRequest) (*report.Document, error) {
	startTime := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := s.newModel(req.Model)
	if err != nil {
		return nil, err
	}
	table, err := s.openTable(req.DataFile)
	if err != nil {
		return nil, err
	}
	curve, err := s.extractCurve(table, req.Selection)
	if err != nil {
		return nil, err
	}

	scale := curve.MaxRate()
	predicted := m.PredictScaled(curve.Ages, scale)
	fitReport, err := fit.Evaluate(curve.Rates, predicted)
	if err != nil {
		return nil, err
	}
	summary := fit.Classify(fitReport, curve.Rates)

	doc := report.NewDocument(fmt.Sprintf("Age-incidence fit, %s %d", curveSite(curve.Site), curve.Year),
		req.Model.Parameters, m.Tail().Name())
	doc.Scaled = true
	doc.ScaleToMax = scale
	doc.Curves = append(doc.Curves, curve)
	doc.Fit = &fitReport
	doc.Residuals = &summary
	if err := doc.SetPredictions(curve.Ages, curve.Rates, predicted); err != nil {
		return nil, err
	}

	s.logger.Info("fit %d ages of %d: MSE %.4g, R2 %.4g in %v",
		curve.Len(), curve.Year, fitReport.MSE, fitReport.R2, time.Since(startTime))
	return doc, nil
}

// Curves extracts one observed curve per requested year
func (s *AnalysisService) Curves(ctx context.Context, req CurvesRequest) (*report.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Years) == 0 {
		return nil, errors.InvalidInput("at least one year is required")
	}

	table, err := s.openTable(req.DataFile)
	if err != nil {
		return nil, err
	}
	curves, err := s.extractor.ExtractCurves(table, req.Selection, req.Years)
	if err != nil {
		return nil, err
	}
	if len(curves) == 0 {
		return nil, errors.NotFound(fmt.Sprintf("curves for years %v", req.Years))
	}

	doc := report.NewDocument(fmt.Sprintf("Observed age-incidence curves, %s", curveSite(req.Selection.Site)),
		model.DefaultParameters(), probability.DefaultTail.Name())
	doc.Curves = curves
	s.logger.Info("extracted %d of %d requested curves", len(curves), len(req.Years))
	return doc, nil
}

// Sweep evaluates every plan variant against the selected curve
func (s *AnalysisService) Sweep(ctx context.Context, req SweepRequest) (*report.Document, error) {
	startTime := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tail, err := probability.TailByName(req.Model.Tail)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	plan := req.Plan
	if plan == nil {
		plan = sensitivity.DefaultPlan()
	}

	table, err := s.openTable(req.DataFile)
	if err != nil {
		return nil, err
	}
	curve, err := s.extractCurve(table, req.Selection)
	if err != nil {
		return nil, err
	}

	variants, err := sensitivity.Run(req.Model.Parameters, curve, plan.Sweeps, tail)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}

	doc := report.NewDocument(fmt.Sprintf("Parameter sensitivity, %s %d", curveSite(curve.Site), curve.Year),
		req.Model.Parameters, tail.Name())
	doc.Scaled = true
	doc.ScaleToMax = curve.MaxRate()
	doc.Curves = append(doc.Curves, curve)
	doc.Variants = variants

	if best, ok := sensitivity.Best(variants); ok {
		s.logger.Info("sweep of %d variants in %v; best %s (MSE %.4g)",
			len(variants), time.Since(startTime), best.Label, best.Fit.MSE)
	}
	return doc, nil
}

// Calibrate fits p to the selected curve and reports the calibrated
// predictions
func (s *AnalysisService) Calibrate(ctx context.Context, req CalibrateRequest) (*report.Document, error) {
	startTime := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tail, err := probability.TailByName(req.Model.Tail)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	settings := req.Settings
	if settings.MaxIterations == 0 && settings.MaxFuncEvaluations == 0 {
		settings = calibrate.DefaultSettings()
	}
	settings.Tail = tail

	table, err := s.openTable(req.DataFile)
	if err != nil {
		return nil, err
	}
	curve, err := s.extractCurve(table, req.Selection)
	if err != nil {
		return nil, err
	}

	result, err := calibrate.Calibrate(req.Model.Parameters, curve, settings)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	summary := fit.Classify(result.Fit, curve.Rates)

	doc := report.NewDocument(fmt.Sprintf("Calibration of p, %s %d", curveSite(curve.Site), curve.Year),
		result.Parameters, tail.Name())
	doc.Scaled = true
	doc.ScaleToMax = curve.MaxRate()
	doc.Curves = append(doc.Curves, curve)
	doc.Calibration = result
	doc.Fit = &result.Fit
	doc.Residuals = &summary
	if err := doc.SetPredictions(curve.Ages, curve.Rates, result.Predicted); err != nil {
		return nil, err
	}

	s.logger.Info("calibrated p %.3g -> %.3g, MSE %.4g -> %.4g (%d evaluations, %v)",
		result.Initial.P, result.Parameters.P, result.InitialFit.MSE, result.Fit.MSE,
		result.Evaluations, time.Since(startTime))
	return doc, nil
}

// Trend averages the filtered age-adjusted rates per year
func (s *AnalysisService) Trend(ctx context.Context, req TrendRequest) (*report.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := s.openTable(req.DataFile)
	if err != nil {
		return nil, err
	}
	trend, err := s.extractor.AnnualTrend(table, req.Filter)
	if err != nil {
		return nil, classifyExtraction(err, table, "annual trend")
	}

	title := "Annual age-adjusted incidence"
	if req.Filter.Age != "" {
		title = fmt.Sprintf("%s, ages %s", title, req.Filter.Age)
	}
	doc := report.NewDocument(title, model.DefaultParameters(), probability.DefaultTail.Name())
	doc.Trend = trend
	s.logger.Info("trend covers %d years from %s", len(trend), table.Source)
	return doc, nil
}

func (s *AnalysisService) newModel(spec ModelSpec) (*model.Model, error) {
	tail, err := probability.TailByName(spec.Tail)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	m, err := model.New(spec.Parameters, model.WithTail(tail))
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	return m, nil
}

func (s *AnalysisService) extractCurve(table *uscs.Table, sel incidence.Selection) (domain.Curve, error) {
	curve, err := s.extractor.ExtractCurve(table, sel)
	if err != nil {
		return curve, classifyExtraction(err, table, fmt.Sprintf("%d curve", sel.Year))
	}
	return curve, nil
}

// classifyExtraction maps extraction failures onto app codes: a selection
// with no usable rows is NOT_FOUND, a table without the needed columns is
// DATA_SOURCE_ERROR.
func classifyExtraction(err error, table *uscs.Table, what string) error {
	switch {
	case core.IsShapeError(err):
		return errors.WithCode(errors.CodeNotFound, errors.Wrapf(err, "no %s in %s", what, table.Source))
	case stderrors.Is(err, core.ErrMissingColumn):
		return errors.DataSourceError(table.Source, err)
	default:
		return errors.Wrapf(err, "failed to extract %s", what)
	}
}

func (s *AnalysisService) openTable(path string) (*uscs.Table, error) {
	if path == "" {
		return nil, errors.InvalidInput("a data file is required")
	}
	s.logger.Debug("loading %s", path)
	table, err := s.tables.Open(path)
	if err != nil {
		return nil, errors.DataSourceError(path, err)
	}
	if table.Source == "" {
		table.Source = path
	}
	s.logger.Debug("loaded %d rows from %s", len(table.Rows), path)
	return table, nil
}

func curveSite(site string) string {
	if site == "" {
		return "all sites"
	}
	return site
}
