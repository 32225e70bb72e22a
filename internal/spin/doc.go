// Package spin orchestrates spin and ticket-purchase settlements:
// single-flight guards per domain, credit source selection, reply-driven
// ledger updates and the animation-bound settle delay before a spin
// surfaces as succeeded.
package spin
