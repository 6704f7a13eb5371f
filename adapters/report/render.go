// Package report renders run documents as CSV, JSON, Markdown or HTML.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"oncofit/domain/core"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Render writes doc to w in the named format
func Render(w io.Writer, format string, doc *Document) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return renderCSV(w, doc)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatMarkdown, "md":
		_, err := io.WriteString(w, Markdown(doc))
		return err
	case FormatHTML:
		_, err := w.Write(HTML(doc))
		return err
	default:
		return fmt.Errorf("%w: report format %q", core.ErrUnsupportedFormat, format)
	}
}

// HTML converts the Markdown rendering into a standalone page
func HTML(doc *Document) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: doc.Title,
	})
	return markdown.ToHTML([]byte(Markdown(doc)), p, renderer)
}

// Markdown renders every non-empty section of doc
func Markdown(doc *Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	fmt.Fprintf(&b, "Run `%s`, parameters `%s`, %s tail, created %s.\n\n",
		doc.RunID, doc.Fingerprint.Short(), doc.Tail, doc.CreatedAt)

	b.WriteString("## Parameters\n\n| p | M | divisions/year | C | r |\n|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %d | %s | %d | %s |\n\n",
		num(doc.Parameters.P), doc.Parameters.M, num(doc.Parameters.DivisionsPerYear), doc.Parameters.C, num(doc.Parameters.R))

	if doc.Fit != nil {
		b.WriteString("## Fit\n\n| MSE | RMSE | MAE | R² |\n|---|---|---|---|\n")
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n\n", num(doc.Fit.MSE), num(doc.Fit.RMSE), num(doc.Fit.MAE), num(doc.Fit.R2))
	}
	if doc.Residuals != nil {
		fmt.Fprintf(&b, "Model underestimates at %d ages and overestimates at %d; %d residuals lie within ±%s.\n\n",
			doc.Residuals.Underestimated, doc.Residuals.Overestimated, doc.Residuals.WithinThreshold, num(doc.Residuals.Threshold))
	}

	if len(doc.Points) > 0 {
		b.WriteString("## Predictions\n\n| age | observed | predicted | residual |\n|---|---|---|---|\n")
		for _, p := range doc.Points {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", num(p.Age), optional(p.Observed), num(p.Predicted), optional(p.Residual))
		}
		b.WriteString("\n")
	}

	if len(doc.Curves) > 0 {
		b.WriteString("## Observed curves\n\n| year | points | max rate |\n|---|---|---|\n")
		for _, c := range doc.Curves {
			fmt.Fprintf(&b, "| %d | %d | %s |\n", c.Year, c.Len(), num(c.MaxRate()))
		}
		b.WriteString("\n")
	}

	if len(doc.Variants) > 0 {
		b.WriteString("## Sensitivity\n\n| variant | MSE | RMSE | MAE | R² |\n|---|---|---|---|---|\n")
		for _, v := range doc.Variants {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", v.Label, num(v.Fit.MSE), num(v.Fit.RMSE), num(v.Fit.MAE), num(v.Fit.R2))
		}
		b.WriteString("\n")
	}

	if c := doc.Calibration; c != nil {
		b.WriteString("## Calibration\n\n| | p | MSE | R² |\n|---|---|---|---|\n")
		fmt.Fprintf(&b, "| initial | %s | %s | %s |\n", num(c.Initial.P), num(c.InitialFit.MSE), num(c.InitialFit.R2))
		fmt.Fprintf(&b, "| calibrated | %s | %s | %s |\n\n", num(c.Parameters.P), num(c.Fit.MSE), num(c.Fit.R2))
		fmt.Fprintf(&b, "%d evaluations, status %s.\n\n", c.Evaluations, c.Status)
	}

	if len(doc.Trend) > 0 {
		b.WriteString("## Annual trend\n\n| year | mean rate | rows |\n|---|---|---|\n")
		for _, r := range doc.Trend {
			fmt.Fprintf(&b, "| %d | %s | %d |\n", r.Year, num(r.MeanRate), r.Count)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderCSV writes the first tabular section present: predictions,
// sensitivity variants, observed curves or the annual trend.
func renderCSV(w io.Writer, doc *Document) error {
	cw := csv.NewWriter(w)

	switch {
	case len(doc.Points) > 0:
		cw.Write([]string{"age", "observed", "predicted", "residual"})
		for _, p := range doc.Points {
			cw.Write([]string{csvNum(p.Age), optionalCSV(p.Observed), csvNum(p.Predicted), optionalCSV(p.Residual)})
		}
	case len(doc.Variants) > 0:
		// Sweeps are evaluated on the grid of the first observed curve.
		var ages []float64
		if len(doc.Curves) > 0 {
			ages = doc.Curves[0].Ages
		}
		cw.Write([]string{"param", "value", "age", "predicted"})
		for _, v := range doc.Variants {
			for i, pred := range v.Predicted {
				age := ""
				if i < len(ages) {
					age = csvNum(ages[i])
				}
				cw.Write([]string{v.Param, csvNum(v.Value), age, csvNum(pred)})
			}
		}
	case len(doc.Curves) > 0:
		cw.Write([]string{"year", "age", "rate"})
		for _, c := range doc.Curves {
			for i := range c.Ages {
				cw.Write([]string{strconv.Itoa(c.Year), csvNum(c.Ages[i]), csvNum(c.Rates[i])})
			}
		}
	case len(doc.Trend) > 0:
		cw.Write([]string{"year", "mean_rate", "rows"})
		for _, r := range doc.Trend {
			cw.Write([]string{strconv.Itoa(r.Year), csvNum(r.MeanRate), strconv.Itoa(r.Count)})
		}
	}

	cw.Flush()
	return cw.Error()
}

// num formats a value for reading; Markdown and HTML show 6 significant digits
func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// csvNum uses the shortest representation that parses back to the same float64
func csvNum(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func optional(v *float64) string {
	if v == nil {
		return "–"
	}
	return num(*v)
}

func optionalCSV(v *float64) string {
	if v == nil {
		return ""
	}
	return csvNum(*v)
}
