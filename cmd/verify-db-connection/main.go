// Checks the Postgres connection and the hex column sizes of the index
// tables. Addresses need VARCHAR(42), hashes VARCHAR(66).
package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"go-hedgevault/internal/config"
)

type columnCheck struct {
	table   string
	column  string
	minSize int64
}

var checks = []columnCheck{
	{"proxy_records", "proxy_address", 42},
	{"proxy_records", "owner", 42},
	{"proxy_records", "binding_hash", 66},
	{"withdrawal_records", "withdrawal_id", 66},
	{"withdrawal_records", "owner", 42},
	{"commitment_records", "commitment_hash", 66},
	{"commitment_records", "nullifier", 66},
	{"commitment_records", "stealth_address", 42},
	{"commitment_records", "merkle_root", 66},
	{"batch_records", "batch_root", 66},
}

func main() {
	fmt.Println("🔍 Verifying database connection and column sizes...")

	if err := config.LoadConfig(""); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	dsn := config.AppConfig.Database.DSN
	if dsn == "" {
		log.Fatal("Database DSN not configured")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqlDB.Close()

	var dbName string
	if err := sqlDB.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		log.Fatalf("Failed to query database name: %v", err)
	}
	fmt.Printf("📋 Connected to database: %s\n", dbName)

	failed := 0
	for _, check := range checks {
		var size sql.NullInt64
		err := sqlDB.QueryRow(`
			SELECT character_maximum_length
			FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		`, check.table, check.column).Scan(&size)
		if err == sql.ErrNoRows {
			fmt.Printf("❌ %s.%s does not exist (run the server once to migrate)\n", check.table, check.column)
			failed++
			continue
		}
		if err != nil {
			log.Fatalf("Failed to query column %s.%s: %v", check.table, check.column, err)
		}

		if !size.Valid {
			// Unbounded text column, always wide enough.
			fmt.Printf("✅ %s.%s: TEXT\n", check.table, check.column)
			continue
		}
		if size.Int64 < check.minSize {
			fmt.Printf("❌ %s.%s: VARCHAR(%d), need at least VARCHAR(%d)\n", check.table, check.column, size.Int64, check.minSize)
			failed++
			continue
		}
		fmt.Printf("✅ %s.%s: VARCHAR(%d)\n", check.table, check.column, size.Int64)
	}

	if failed > 0 {
		log.Fatalf("❌ %d column check(s) failed", failed)
	}
	fmt.Println("✅ All column checks passed")
}
