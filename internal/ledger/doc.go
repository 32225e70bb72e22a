// Package ledger holds the authoritative-cache data model for every
// spendable or earnable credit: free spins, ad-unlocked extra spins,
// purchased spin tickets and currency balances.
//
// The ledger mirrors server truth and nothing else. Updates arrive from
// two uncoordinated channels (request replies and push events); both are
// funneled through the reconcile package so that apply order is
// well-defined. ApplyPartial merges only the fields present in a message,
// ApplyFull replaces the whole state on the initial fetch.
package ledger
