package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Applies the numbered SQL files in this directory, starting after the
// version recorded in the vibtrix.migrations table.
func main() {
	err := godotenv.Load()
	if err != nil {
		log.Fatal("could not load .env file")
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable search_path=vibtrix",
		os.Getenv("DATABASE_HOST"),
		os.Getenv("DATABASE_PORT"),
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("DATABASE_NAME"),
	)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	version, err := currentVersion(db)
	if err != nil {
		log.Fatal(err)
	}

	for {
		version++
		if err := applyMigration(db, version); err != nil {
			break
		}
	}
}

func applyMigration(db *sql.DB, version int) error {
	file, err := os.ReadFile(fmt.Sprintf("migrations/%d.sql", version))
	if err != nil {
		fmt.Printf("no migration file for version %d, done\n", version)
		return err
	}
	_, err = db.Exec(string(file))
	if err != nil {
		fmt.Printf("migration %d failed: %v\n", version, err)
		return err
	}
	_, err = db.Exec("UPDATE migrations SET version = $1", version)
	if err != nil {
		fmt.Printf("could not record version %d: %v\n", version, err)
		return err
	}
	fmt.Printf("applied migration %d\n", version)
	return nil
}

// currentVersion reads the version row, bootstrapping the schema and the
// migrations table on a fresh database.
func currentVersion(db *sql.DB) (version int, err error) {
	db.Exec("CREATE SCHEMA IF NOT EXISTS vibtrix;")
	err = db.QueryRow("SELECT version FROM migrations").Scan(&version)
	if err != nil {
		_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS migrations (
				version INT PRIMARY KEY
			);
			INSERT INTO migrations (version) VALUES (0);
		`)
		if err != nil {
			return 0, err
		}
		return 0, nil
	}
	return version, nil
}
