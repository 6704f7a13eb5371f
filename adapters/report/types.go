package report

import (
	"oncofit/domain/core"
	domain "oncofit/domain/incidence"
	"oncofit/internal/calibrate"
	"oncofit/internal/fit"
	"oncofit/internal/model"
	"oncofit/internal/sensitivity"
)

// Format names accepted by Render
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Point is one age on the prediction grid. Observed and Residual are nil
// when there is no observed curve.
type Point struct {
	Age       float64  `json:"age"`
	Observed  *float64 `json:"observed,omitempty"`
	Predicted float64  `json:"predicted"`
	Residual  *float64 `json:"residual,omitempty"`
}

// Document is everything a run reports. Sections that were not computed
// stay empty and are omitted from the output.
type Document struct {
	RunID       core.RunID            `json:"run_id"`
	CreatedAt   core.Timestamp        `json:"created_at"`
	Title       string                `json:"title"`
	Parameters  model.Parameters      `json:"parameters"`
	Fingerprint core.ParameterHash    `json:"fingerprint"`
	Tail        string                `json:"tail"`
	Scaled      bool                  `json:"scaled"`
	ScaleToMax  float64               `json:"scale_to_max,omitempty"`
	Points      []Point               `json:"points,omitempty"`
	Fit         *fit.Report           `json:"fit,omitempty"`
	Residuals   *fit.ResidualSummary  `json:"residual_summary,omitempty"`
	Curves      []domain.Curve        `json:"curves,omitempty"`
	Variants    []sensitivity.Variant `json:"variants,omitempty"`
	Calibration *calibrate.Result     `json:"calibration,omitempty"`
	Trend       []domain.AnnualRate   `json:"trend,omitempty"`
}

// NewDocument stamps a document with a fresh run ID and the parameter
// fingerprint.
func NewDocument(title string, params model.Parameters, tail string) *Document {
	return &Document{
		RunID:       core.NewRunID(),
		CreatedAt:   core.Now(),
		Title:       title,
		Parameters:  params,
		Fingerprint: params.Fingerprint(),
		Tail:        tail,
	}
}

// SetPredictions fills Points from a prediction grid. observed may be nil;
// otherwise it must align with ages.
func (d *Document) SetPredictions(ages, observed, predicted []float64) error {
	if len(ages) != len(predicted) {
		return core.NewShapeError("ages/predicted", len(ages), len(predicted))
	}
	if observed != nil && len(observed) != len(ages) {
		return core.NewShapeError("ages/observed", len(ages), len(observed))
	}
	d.Points = make([]Point, len(ages))
	for i := range ages {
		p := Point{Age: ages[i], Predicted: predicted[i]}
		if observed != nil {
			obs := observed[i]
			res := obs - predicted[i]
			p.Observed = &obs
			p.Residual = &res
		}
		d.Points[i] = p
	}
	return nil
}
