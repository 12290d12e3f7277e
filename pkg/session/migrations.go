package session

import (
	"database/sql"

	"github.com/skillgate/skillgate/pkg/db"
)

var migrations = []db.Migration{
	{
		Version:     20250812000001,
		Description: "Create acknowledged_skills table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS acknowledged_skills (
					session_id TEXT NOT NULL,
					skill_id TEXT NOT NULL,
					injected_at DATETIME NOT NULL,
					injection_type TEXT NOT NULL,
					confidence REAL,
					PRIMARY KEY (session_id, skill_id)
				)
			`)
			return err
		},
	},
	{
		Version:     20250812000002,
		Description: "Index acknowledged_skills by injection time for retention cleanup",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_acknowledged_injected_at
				ON acknowledged_skills(injected_at)
			`)
			return err
		},
	},
}
