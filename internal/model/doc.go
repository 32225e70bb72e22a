// Package model defines the domain types shared across the client: prizes,
// spin outcomes, spin sources and the per-session wheel configuration
// snapshot.
package model
