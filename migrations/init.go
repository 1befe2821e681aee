package migrations

import (
	"io/fs"

	portfolio "github.com/goliatone/go-portfolio"
)

func init() {
	coreFS, err := fs.Sub(portfolio.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return
	}
	Register(coreFS)
}
