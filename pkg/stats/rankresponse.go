package stats

import (
	"math"
	"slices"
	"strconv"
	"strings"

	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
	"github.com/opst/yeastregulatorydb/pkg/table"
	"gonum.org/v1/gonum/stat/distuv"
)

// Score is a row of a table read through the identifier, effect and p-value columns of its FileFormat.
//
// A null cell is kept: Feature is "" and Effect or Pvalue is NaN.
type Score struct {
	Feature string
	Effect  float64
	Pvalue  float64

	// Row is the index of the row in its table.
	Row int
}

// Scores is a Score table of one source.
type Scores struct {
	Source    string
	HasEffect bool
	HasPvalue bool
	Rows      []Score

	// column names, for messages. "feature", "effect" and "pvalue" if empty.
	FeatureCol string
	EffectCol  string
	PvalueCol  string
}

// ReadScores reads t through the columns declared by ff.
//
// A column declared "none" is absent from Scores. Null cells are read as they are;
// whether they matter is up to Join.
func ReadScores(t *table.Table, ff fileformat.FileFormat, source string) (Scores, error) {
	if !ff.HasFeatureIdentifier() {
		return Scores{}, xe.Schema(ff.Name, "it has no feature identifier column")
	}
	out := Scores{
		Source: source, HasEffect: ff.HasEffect(), HasPvalue: ff.HasPvalue(),
		FeatureCol: ff.FeatureIdentifierCol, EffectCol: ff.EffectCol, PvalueCol: ff.PvalCol,
	}

	for _, col := range []string{ff.FeatureIdentifierCol, ff.EffectCol, ff.PvalCol} {
		if col != fileformat.None && !t.Has(col) {
			return Scores{}, xe.Invalid(col, "%s data lacks the column `%s` declared by %s", source, col, ff.Name)
		}
	}

	out.Rows = make([]Score, 0, t.Len())
	for n := range t.Rows {
		s := Score{Feature: strings.TrimSpace(t.Cell(n, ff.FeatureIdentifierCol)), Row: n}
		if table.IsNull(s.Feature) {
			s.Feature = ""
		}
		if out.HasEffect {
			v, err := parseCell(t.Cell(n, ff.EffectCol))
			if err != nil {
				return Scores{}, xe.Invalid(ff.EffectCol, "%s row %d: %s", source, n, err)
			}
			s.Effect = v
		}
		if out.HasPvalue {
			v, err := parseCell(t.Cell(n, ff.PvalCol))
			if err != nil {
				return Scores{}, xe.Invalid(ff.PvalCol, "%s row %d: %s", source, n, err)
			}
			s.Pvalue = v
		}
		out.Rows = append(out.Rows, s)
	}
	return out, nil
}

// parseCell reads a number. Null cells are NaN.
func parseCell(cell string) (float64, error) {
	if table.IsNull(cell) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, xe.New("not a number: " + cell)
	}
	return v, nil
}

func incomplete(source string, row int, col string) error {
	return xe.Invalid(col, "There are incomplete cases in the data: %s row %d", source, row)
}

func orName(col string, def string) string {
	if col == "" || col == fileformat.None {
		return def
	}
	return col
}

// complete fails when s has a null in a column that scores declares.
func (scores Scores) complete(s Score) error {
	switch {
	case s.Feature == "":
		return incomplete(scores.Source, s.Row, orName(scores.FeatureCol, "feature"))
	case scores.HasEffect && math.IsNaN(s.Effect):
		return incomplete(scores.Source, s.Row, orName(scores.EffectCol, "effect"))
	case scores.HasPvalue && math.IsNaN(s.Pvalue):
		return incomplete(scores.Source, s.Row, orName(scores.PvalueCol, "pvalue"))
	}
	return nil
}

// Joined is a feature having both binding and expression scores.
type Joined struct {
	Feature    string
	Binding    Score
	Expression Score
}

// Join pairs binding and expression scores on the feature.
//
// The result is in the order of expression. Rows left out of the join may have nulls,
// but a joined row with a null is an incomplete case and fails.
// When no feature is shared, it fails: there is nothing to rank.
func Join(binding, expression Scores) ([]Joined, error) {
	byFeature := make(map[string]Score, len(binding.Rows))
	for _, s := range binding.Rows {
		byFeature[s.Feature] = s
	}
	out := []Joined{}
	for _, e := range expression.Rows {
		b, ok := byFeature[e.Feature]
		if !ok {
			continue
		}
		if err := binding.complete(b); err != nil {
			return nil, err
		}
		if err := expression.complete(e); err != nil {
			return nil, err
		}
		out = append(out, Joined{Feature: e.Feature, Binding: b, Expression: e})
	}
	if len(out) == 0 {
		return nil, xe.Invalid(
			"feature", "There are incomplete cases in the data: %s and %s share no feature", binding.Source, expression.Source,
		)
	}
	return out, nil
}

// RankResponseOptions controls summarizing.
type RankResponseOptions struct {
	// EffectThreshold: a feature is responsive only if |effect| > EffectThreshold.
	// Ignored when expression has no effect column.
	EffectThreshold float64

	// PvalueThreshold: a feature is responsive only if pvalue < PvalueThreshold.
	// Ignored when expression has no p-value column.
	PvalueThreshold float64

	// Normalize limits the ranking to as many top ranked features as there are responsive features.
	Normalize bool

	// BinSize is the width of rank bins. 5 if zero.
	BinSize int

	// SignificanceBins is how many leading bins decide the significance. 50 if zero.
	SignificanceBins int

	// Confidence of intervals. 0.95 if zero.
	Confidence float64
}

func (o RankResponseOptions) withDefaults() RankResponseOptions {
	if o.BinSize <= 0 {
		o.BinSize = 5
	}
	if o.SignificanceBins <= 0 {
		o.SignificanceBins = 50
	}
	if o.Confidence <= 0 || 1 <= o.Confidence {
		o.Confidence = 0.95
	}
	return o
}

// Bin is the summary of the top Rank features.
type Bin struct {
	Rank          int
	NResponsive   int
	ResponseRatio float64

	// Random is the response ratio of the whole ranking.
	Random float64

	// confidence interval of ResponseRatio, relative to Random.
	CILower float64
	CIUpper float64
}

type RankResponseResult struct {
	// Annotated is the ranked join with the responsiveness of each feature.
	Annotated *table.Table

	Bins []Bin

	// Significant is true iff any of the leading bins has CILower > 0.
	Significant bool
}

// AnnotatedHeader is the header of RankResponseResult.Annotated.
var AnnotatedHeader = []string{
	"feature", "binding_rank",
	"binding_effect", "binding_pvalue", "binding_source",
	"expression_effect", "expression_pvalue", "expression_source",
	"responsive",
}

// BinHeader is the header of SummaryTable.
var BinHeader = []string{"rank_bin", "n_responsive", "response_ratio", "random", "ci_lower", "ci_upper"}

// RankResponse ranks joined features by binding strength and summarizes the response ratio
// of expression in cumulative rank bins.
//
// Binding is ranked by p-value ascending when binding has p-values, by |effect| descending otherwise;
// ties keep the order of rows.
func RankResponse(binding, expression Scores, rows []Joined, opts RankResponseOptions) (RankResponseResult, error) {
	opts = opts.withDefaults()
	if !binding.HasEffect && !binding.HasPvalue {
		return RankResponseResult{}, xe.Invalid("binding", "%s has neither effect nor p-value to rank", binding.Source)
	}
	if !expression.HasEffect && !expression.HasPvalue {
		return RankResponseResult{}, xe.Invalid("expression", "%s has neither effect nor p-value to call responses", expression.Source)
	}

	ranked := slices.Clone(rows)
	slices.SortStableFunc(ranked, func(a, b Joined) int {
		if binding.HasPvalue {
			if c := compareFloat(a.Binding.Pvalue, b.Binding.Pvalue); c != 0 {
				return c
			}
		}
		if binding.HasEffect {
			return compareFloat(math.Abs(b.Binding.Effect), math.Abs(a.Binding.Effect))
		}
		return 0
	})

	responsive := make([]bool, len(ranked))
	nResponsive := 0
	for i, r := range ranked {
		ok := true
		if expression.HasEffect {
			ok = ok && math.Abs(r.Expression.Effect) > opts.EffectThreshold
		}
		if expression.HasPvalue {
			ok = ok && r.Expression.Pvalue < opts.PvalueThreshold
		}
		responsive[i] = ok
		if ok {
			nResponsive += 1
		}
	}
	random := float64(nResponsive) / float64(len(ranked))

	if opts.Normalize {
		ranked = ranked[:nResponsive]
		responsive = responsive[:nResponsive]
	}

	annotated := table.New(AnnotatedHeader...)
	for i, r := range ranked {
		annotated.Append(
			r.Feature, strconv.Itoa(i+1),
			optional(binding.HasEffect, r.Binding.Effect), optional(binding.HasPvalue, r.Binding.Pvalue), binding.Source,
			optional(expression.HasEffect, r.Expression.Effect), optional(expression.HasPvalue, r.Expression.Pvalue), expression.Source,
			strconv.FormatBool(responsive[i]),
		)
	}

	bins := []Bin{}
	count := 0
	for i := range ranked {
		if responsive[i] {
			count += 1
		}
		n := i + 1
		if n%opts.BinSize != 0 && n != len(ranked) {
			continue
		}
		lo, hi := ClopperPearson(count, n, opts.Confidence)
		bins = append(bins, Bin{
			Rank:          n,
			NResponsive:   count,
			ResponseRatio: float64(count) / float64(n),
			Random:        random,
			CILower:       lo - random,
			CIUpper:       hi - random,
		})
	}

	return RankResponseResult{
		Annotated:   annotated,
		Bins:        bins,
		Significant: Significant(bins, opts.SignificanceBins),
	}, nil
}

// Significant reports whether any of the first n bins has CILower > 0.
func Significant(bins []Bin, n int) bool {
	for i, b := range bins {
		if i >= n {
			break
		}
		if b.CILower > 0 {
			return true
		}
	}
	return false
}

// SummaryTable renders bins as a table with BinHeader.
func SummaryTable(bins []Bin) *table.Table {
	out := table.New(BinHeader...)
	for _, b := range bins {
		out.Append(
			strconv.Itoa(b.Rank), strconv.Itoa(b.NResponsive),
			formatFloat(b.ResponseRatio), formatFloat(b.Random),
			formatFloat(b.CILower), formatFloat(b.CIUpper),
		)
	}
	return out
}

// ClopperPearson is the exact binomial confidence interval of k successes in n trials.
func ClopperPearson(k, n int, confidence float64) (lower, upper float64) {
	if n <= 0 {
		return 0, 1
	}
	alpha := 1 - confidence
	lower, upper = 0, 1
	if k > 0 {
		lower = distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}.Quantile(alpha / 2)
	}
	if k < n {
		upper = distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}.Quantile(1 - alpha/2)
	}
	return lower, upper
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func optional(present bool, v float64) string {
	if !present {
		return ""
	}
	return formatFloat(v)
}
