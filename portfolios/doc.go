// Package portfolios persists portfolio documents with Bun. Repository
// implements types.PortfolioRepository; creation is quota gated inside a
// transaction against the per-owner portfolio_owners counter.
package portfolios
