package evo

import (
	"slices"
)

// NaturalSelection returns clones of the n fittest individuals. Ties keep
// their population order.
func (g *Generation) NaturalSelection(n int) []*Individual {
	ranked := slices.Clone(g.population)
	slices.SortStableFunc(ranked, func(a, b *Individual) int {
		return a.Fitness().Compare(b.Fitness())
	})
	n = min(n, len(ranked))
	out := make([]*Individual, n)
	for i := range out {
		out[i] = ranked[i].Clone()
	}
	return out
}

// TournamentSelection draws TournamentSize individuals with replacement and
// returns a clone of the fittest, the earliest drawn winning ties. A winner
// without a valid fitness or with an invalid tree forfeits and the tournament
// is rerun; after maxTournamentRetries reruns a freshly grown individual is
// returned instead.
func (g *Generation) TournamentSelection() *Individual {
	cfg := g.rt.Config
	for attempt := 0; ; attempt++ {
		if attempt > maxTournamentRetries {
			g.rt.Logger.Warn("tournament fallback", "retries", maxTournamentRetries)
			if g.rt.Observer != nil {
				g.rt.Observer.OnTournamentFallback()
			}
			return g.rt.newIndividual(g.rt.Factory.Grow(cfg.InitialHeight))
		}

		var winner *Individual
		for i := 0; i < cfg.TournamentSize; i++ {
			candidate := g.population[g.rt.Rand.Intn(len(g.population))]
			if winner == nil || candidate.Fitness().Less(winner.Fitness()) {
				winner = candidate
			}
		}
		if winner.Fitness().IsValid() && winner.IsTreeValid() {
			return winner.Clone()
		}
	}
}
