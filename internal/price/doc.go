// Package price evolves a symbol's reference ("fair") price.
//
// Each step combines a brownian draw, a k-tick momentum term and a
// mean-reverting pull toward the fair-price anchor, plus whatever market
// impact accumulated since the previous step. The process is a pure
// function of its own state and the supplied random source; determinism
// requires callers to pass an explicitly seeded *rand.Rand.
package price
