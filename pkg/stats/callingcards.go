package stats

import (
	"math"
	"strconv"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	"github.com/opst/yeastregulatorydb/pkg/table"
	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pseudocount is added to background hops so that enrichment is finite.
const Pseudocount = 0.2

// CallingCardsHeader is the header of promoter significance tables of calling cards.
var CallingCardsHeader = []string{
	"name",
	"background_hops", "experiment_hops",
	"background_total_hops", "experiment_total_hops",
	"callingcards_enrichment", "poisson_pval", "hypergeometric_pval",
}

// CallingCardsPromoterSig scores promoters by insertions of experiment against background.
//
// Hops are rows; the total hops of each table count rows on genomic contigs only.
func CallingCardsPromoterSig(
	experiment, background *table.Table, promoters []Promoter, chrmap domain.ChrMap, chrFormat string,
) (*table.Table, error) {
	idx, err := newPromoterIndex(promoters, chrmap, chrFormat)
	if err != nil {
		return nil, err
	}
	expHits, expTotal, err := idx.countHits(experiment)
	if err != nil {
		return nil, err
	}
	bgHits, bgTotal, err := idx.countHits(background)
	if err != nil {
		return nil, err
	}

	out := table.New(CallingCardsHeader...)
	for i, p := range promoters {
		e, b := expHits[i], bgHits[i]
		out.Append(
			p.Name,
			strconv.FormatInt(b, 10), strconv.FormatInt(e, 10),
			strconv.FormatInt(bgTotal, 10), strconv.FormatInt(expTotal, 10),
			formatFloat(Enrichment(e, expTotal, b, bgTotal)),
			formatFloat(PoissonPval(e, expTotal, b, bgTotal)),
			formatFloat(HypergeometricPval(e, expTotal, b, bgTotal)),
		)
	}
	return out, nil
}

// Enrichment is the ratio of the experiment hop rate to the background hop rate.
func Enrichment(expHops, expTotal, bgHops, bgTotal int64) float64 {
	if expTotal == 0 || bgTotal == 0 {
		return 0
	}
	return (float64(expHops) / float64(expTotal)) / ((float64(bgHops) + Pseudocount) / float64(bgTotal))
}

// PoissonPval is P(X >= expHops) where X is the number of hops expected from the background.
func PoissonPval(expHops, expTotal, bgHops, bgTotal int64) float64 {
	if expHops <= 0 || bgTotal == 0 {
		return 1
	}
	lambda := (float64(bgHops) + Pseudocount) * float64(expTotal) / float64(bgTotal)
	d := distuv.Poisson{Lambda: lambda}
	return clamp01(1 - d.CDF(float64(expHops-1)))
}

// HypergeometricPval is P(X >= expHops) drawing bgHops+expHops hops from the pooled
// bgTotal+expTotal hops of which expTotal are of the experiment.
func HypergeometricPval(expHops, expTotal, bgHops, bgTotal int64) float64 {
	if expHops <= 0 {
		return 1
	}
	population := float64(expTotal + bgTotal)
	successes := float64(expTotal)
	draws := float64(expHops + bgHops)
	if draws > population {
		return 1
	}

	logDenom := combin.LogGeneralizedBinomial(population, draws)
	upper := math.Min(successes, draws)
	p := 0.0
	for k := float64(expHops); k <= upper; k++ {
		if draws-k > population-successes {
			continue
		}
		p += math.Exp(
			combin.LogGeneralizedBinomial(successes, k) +
				combin.LogGeneralizedBinomial(population-successes, draws-k) -
				logDenom,
		)
	}
	return clamp01(p)
}

func clamp01(p float64) float64 {
	return math.Min(1, math.Max(0, p))
}
