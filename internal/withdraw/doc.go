// Package withdraw implements the withdrawal settlement state machine,
// resolved by whichever arrives first of a withdrawal-status push, a
// failing request reply, the never-connected fallback delay, or the
// operator maximum wait.
package withdraw
