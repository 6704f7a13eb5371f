package report

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"oncofit/domain/core"
	domain "oncofit/domain/incidence"
	"oncofit/internal/fit"
	"oncofit/internal/model"
	"oncofit/internal/sensitivity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fittedDocument(t *testing.T) *Document {
	t.Helper()
	params := model.Parameters{P: 1e-9, M: 1000, DivisionsPerYear: 2, C: 1}
	doc := NewDocument("Age-incidence fit 2020", params, "gonum")

	ages := []float64{20, 40, 60}
	observed := []float64{100, 300, 500}
	predicted := []float64{150, 325, 500}
	require.NoError(t, doc.SetPredictions(ages, observed, predicted))

	report, err := fit.Evaluate(observed, predicted)
	require.NoError(t, err)
	summary := fit.Classify(report, observed)
	doc.Fit = &report
	doc.Residuals = &summary
	return doc
}

func TestNewDocument(t *testing.T) {
	doc := fittedDocument(t)

	_, err := uuid.Parse(doc.RunID.String())
	assert.NoError(t, err)
	assert.Equal(t, doc.Parameters.Fingerprint(), doc.Fingerprint)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestSetPredictions(t *testing.T) {
	doc := NewDocument("predict", model.DefaultParameters(), "gonum")

	require.NoError(t, doc.SetPredictions([]float64{1, 2}, nil, []float64{0.1, 0.2}))
	assert.Nil(t, doc.Points[0].Observed)
	assert.Nil(t, doc.Points[0].Residual)

	assert.ErrorIs(t, doc.SetPredictions([]float64{1, 2}, nil, []float64{0.1}), core.ErrShapeMismatch)
	assert.ErrorIs(t, doc.SetPredictions([]float64{1, 2}, []float64{1}, []float64{0.1, 0.2}), core.ErrShapeMismatch)
}

func TestRender_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatCSV, fittedDocument(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "age,observed,predicted,residual", lines[0])
	assert.Equal(t, "20,100,150,-50", lines[1])
	assert.Equal(t, "40,300,325,-25", lines[2])
	assert.Equal(t, "60,500,500,0", lines[3])
}

func TestRender_CSVWithoutObserved(t *testing.T) {
	doc := NewDocument("predict", model.DefaultParameters(), "gonum")
	require.NoError(t, doc.SetPredictions([]float64{20}, nil, []float64{0.5}))

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatCSV, doc))
	assert.Equal(t, "age,observed,predicted,residual\n20,,0.5,\n", buf.String())
}

func TestRender_CSVSweepAndTrend(t *testing.T) {
	curve := domain.Curve{Year: 2020, Ages: []float64{20, 40}, Rates: []float64{1, 2}}
	sweep := NewDocument("sweep", model.DefaultParameters(), "gonum")
	sweep.Curves = []domain.Curve{curve}
	sweep.Variants = []sensitivity.Variant{{Param: "p", Value: 1e-9, Label: "p = 1.00e-09", Predicted: []float64{1, 2}}}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatCSV, sweep))
	assert.Equal(t, "param,value,age,predicted\np,1e-09,20,1\np,1e-09,40,2\n", buf.String())

	trend := NewDocument("trend", model.DefaultParameters(), "gonum")
	trend.Trend = []domain.AnnualRate{{Year: 2019, MeanRate: 4, Count: 2}}
	buf.Reset()
	require.NoError(t, Render(&buf, FormatCSV, trend))
	assert.Equal(t, "year,mean_rate,rows\n2019,4,2\n", buf.String())
}

func TestRender_CSVKeepsFullPrecision(t *testing.T) {
	tests := []struct {
		name      string
		predicted float64
		csv       string
		markdown  string
	}{
		{"binary rounding", 0.30000000000000004, "0.30000000000000004", "0.3"},
		{"repeating fraction", 0.3333333333333333, "0.3333333333333333", "0.333333"},
		{"tiny probability", 2.5e-9, "2.5e-09", "2.5e-09"},
		{"incidence rate", 2100.3456789, "2100.3456789", "2100.35"},
		{"short value", 0.5, "0.5", "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument("predict", model.DefaultParameters(), "gonum")
			require.NoError(t, doc.SetPredictions([]float64{20}, nil, []float64{tt.predicted}))

			var buf bytes.Buffer
			require.NoError(t, Render(&buf, FormatCSV, doc))
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 2)
			fields := strings.Split(lines[1], ",")
			require.Len(t, fields, 4)
			assert.Equal(t, tt.csv, fields[2])

			parsed, err := strconv.ParseFloat(fields[2], 64)
			require.NoError(t, err)
			assert.Equal(t, tt.predicted, parsed)

			assert.Contains(t, Markdown(doc), "| 20 | – | "+tt.markdown+" | – |")
		})
	}
}

func TestRender_JSON(t *testing.T) {
	doc := fittedDocument(t)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, doc))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, doc.RunID.String(), decoded["run_id"])
	assert.Equal(t, doc.Fingerprint.String(), decoded["fingerprint"])
	assert.Len(t, decoded["points"], 3)
	assert.Contains(t, decoded, "fit")
	assert.Contains(t, decoded, "residual_summary")
}

func TestRender_JSONUndefinedR2(t *testing.T) {
	doc := NewDocument("constant", model.DefaultParameters(), "gonum")
	report, err := fit.Evaluate([]float64{5, 5}, []float64{4, 6})
	require.NoError(t, err)
	doc.Fit = &report

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, doc))
	assert.Contains(t, buf.String(), `"r2": null`)
}

func TestRender_MarkdownAndHTML(t *testing.T) {
	doc := fittedDocument(t)

	md := Markdown(doc)
	assert.Contains(t, md, "# Age-incidence fit 2020")
	assert.Contains(t, md, doc.RunID.String())
	assert.Contains(t, md, doc.Fingerprint.Short())
	assert.Contains(t, md, "## Fit")
	assert.Contains(t, md, "| 20 | 100 | 150 | -50 |")
	assert.Contains(t, md, "underestimates at 1 ages and overestimates at 2; 3 residuals lie within ±50")

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatHTML, doc))
	page := buf.String()
	assert.Contains(t, page, "<html")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "Age-incidence fit 2020")
}

func TestRender_UnsupportedFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, "pdf", fittedDocument(t))
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}
