// Package agent implements the autonomous trading population.
//
// Four archetypes share one Act contract: market makers quote two-sided
// around the reference price, noise traders emit random flow, informed
// traders chase short-horizon momentum, momentum traders chase a longer
// window less frequently. Agents act once per tick in fixed id order and
// mutate only their own state, which keeps replays reproducible.
package agent
