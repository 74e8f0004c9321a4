package core

import "database/sql"

// DBExecutor is the statement-level surface of *sql.DB that the postgres
// bootstrap helpers run against.
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// DBOrdering translates to an ORDER BY term; repositories that cannot sort
// natively honor it on a best-effort basis.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
