package storage

import "time"

const (
	connectAttempts = 3
	connectDelay    = 250 * time.Millisecond
)

// InitStore opens the run-history store, retrying the initial connection a
// few times so a database that is still starting up does not fail the run.
func InitStore(dbConnStr string) (*PostgresStore, error) {
	var store *PostgresStore
	var err error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		store, err = NewPostgresStore(dbConnStr)
		if err == nil {
			return store, nil
		}
		time.Sleep(connectDelay)
	}
	return nil, err
}
