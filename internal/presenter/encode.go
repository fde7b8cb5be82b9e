package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/electcast/internal/ranking"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q: must be text, json or yaml", s)
	}
}

// EncodeView writes v in the given format. The curve has one entry per grid point and
// is left out of structured output unless includeCurve is set; text output never
// prints it.
func EncodeView(w io.Writer, v *View, format Format, includeCurve bool) error {
	if v == nil {
		return fmt.Errorf("nothing to encode")
	}
	out := *v
	if !includeCurve {
		out.Curve = PosteriorCurve{ThresholdX: v.Curve.ThresholdX}
	}

	switch format {
	case FormatJSON:
		return encodeJSON(w, out)
	case FormatYAML:
		return encodeYAML(w, out)
	case FormatText, "":
		return writeViewText(w, &out)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// EncodeRanking writes ranked races in the given format.
func EncodeRanking(w io.Writer, races []ranking.Race, format Format) error {
	if races == nil {
		races = []ranking.Race{}
	}
	switch format {
	case FormatJSON:
		return encodeJSON(w, races)
	case FormatYAML:
		return encodeYAML(w, races)
	case FormatText, "":
		return writeRankingText(w, races)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// EncodeMapPoints writes map points in the given format.
func EncodeMapPoints(w io.Writer, points []MapPoint, format Format) error {
	if points == nil {
		points = []MapPoint{}
	}
	switch format {
	case FormatJSON:
		return encodeJSON(w, points)
	case FormatYAML:
		return encodeYAML(w, points)
	case FormatText, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CONSTITUENCY\tLATITUDE\tLONGITUDE\tSOURCE")
		for _, p := range points {
			src := "file"
			if p.Synthetic {
				src = "synthetic"
			}
			fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%s\n", p.Constituency, p.Latitude, p.Longitude, src)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

func writeViewText(w io.Writer, v *View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	priorSource := "fixed"
	if v.PriorFromRecord {
		priorSource = "historical votes"
	}

	fmt.Fprintf(tw, "Constituency:\t%s\n", v.Summary.Constituency)
	fmt.Fprintf(tw, "Leading:\t%s\n", v.Summary.Leading)
	fmt.Fprintf(tw, "Trailing:\t%s\n", v.Summary.Trailing)
	fmt.Fprintf(tw, "Margin:\t%s\n", v.Summary.Margin)
	for _, warning := range v.Summary.Warnings {
		fmt.Fprintf(tw, "Warning:\t%s\n", warning.Error())
	}
	fmt.Fprintf(tw, "Prior:\tBeta(%g, %g) from %s\n", v.Prior.AlphaPrior, v.Prior.BetaPrior, priorSource)
	fmt.Fprintf(tw, "Survey:\t%d lead / %d trail\n", v.Survey.SurveyLead, v.Survey.SurveyTrail)
	if v.Result != nil {
		fmt.Fprintf(tw, "Posterior:\tBeta(%g, %g), mean %.4f\n",
			v.Result.Posterior.AlphaPost, v.Result.Posterior.BetaPost, v.Result.Posterior.Mean())
		fmt.Fprintf(tw, "Simulations:\t%d\n", v.Result.Simulations)
		fmt.Fprintf(tw, "P(%s wins):\t%.4f (±%.4f)\n", v.Share.LeadingLabel, v.Result.ProbLead, v.Result.StandardError)
		fmt.Fprintf(tw, "P(%s wins):\t%.4f\n", v.Share.TrailingLabel, v.Result.ProbTrail)
	}
	fmt.Fprintf(tw, "Exact P(lead):\t%.4f\n", v.AnalyticProbLead)
	fmt.Fprintf(tw, "%.0f%% interval:\t[%.4f, %.4f]\n", CredibleLevel*100, v.CredibleLow, v.CredibleHigh)

	return tw.Flush()
}

func writeRankingText(w io.Writer, races []ranking.Race) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCONSTITUENCY\tLEADING\tTRAILING\tP(LEAD)\tEXACT\tCLOSENESS\tSHIFT")
	for i, r := range races {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.4f\t%.4f\t%.4f\t%.5f\n",
			i+1, r.Constituency, r.Leading, r.Trailing, r.ProbLead, r.AnalyticProbLead, r.Closeness, r.SurveyShift)
	}
	return tw.Flush()
}
