// Package council implements the three-stage deliberation pipeline:
// every enabled participant answers the query in parallel (collection),
// the surviving answers are anonymized and peer-ranked in parallel
// (evaluation), and a designated synthesizer reconciles answers and
// critiques into one final response (synthesis).
//
// The leaves — anonymizer, ranking parser, rank aggregator, prompt
// assembly — are pure functions; every suspension point lives behind
// the gateway. Partial failure is the normal case: the pipeline prefers
// a degraded turn over no turn wherever the data allows it.
package council
