package repository

import "database/sql"

// Catalog bundles the MySQL repositories behind the lookup interfaces of
// the booking and stats packages.
type Catalog struct {
	*EventRepo
	*SessionRepo
	*AreaRepo
	*UserRepo
}

// NewCatalog builds every repository on db.
func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{
		EventRepo:   NewEventRepo(db),
		SessionRepo: NewSessionRepo(db),
		AreaRepo:    NewAreaRepo(db),
		UserRepo:    NewUserRepo(db),
	}
}
