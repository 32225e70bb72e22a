// Package api implements the REST client for the wheel backend. One call
// exists per mutating action (spin, spin-with-ticket, purchase-ticket,
// submit-withdrawal) plus the config and state reads. Every reply uses the
// {success, data | error} envelope; mutating calls are never retried.
package api
