// Package activity provides default persistence helpers for the go-portfolio
// ActivitySink. The Repository implements both the sink (writes) and the
// ActivityRepository read-side contract so commands can log portfolio events
// and owners can later browse them. Payloads are masked with go-masker before
// they are stored.
package activity
