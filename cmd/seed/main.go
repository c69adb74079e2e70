// Command seed loads a development dataset: one school with a couple of
// departments, a program, a classroom and some equipment.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	schoolName := envOrDefault("SEED_SCHOOL_NAME", "Central High School")
	schoolCode := envOrDefault("SEED_SCHOOL_CODE", "CENTRAL")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback(ctx)

	var schoolID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO schools (uuid, name, code, city, status)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, uuid.New(), schoolName, schoolCode, "Springfield").Scan(&schoolID); err != nil {
		log.Fatalf("seed school: %v", err)
	}

	departments := []struct {
		name string
		code string
	}{
		{"Mathematics", "MATH"},
		{"Science", "SCI"},
	}
	departmentIDs := map[string]int64{}
	for _, d := range departments {
		var id int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO school_departments (uuid, school_id, name, code, status)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, uuid.New(), schoolID, d.name, d.code).Scan(&id); err != nil {
			log.Fatalf("seed department %s: %v", d.code, err)
		}
		departmentIDs[d.code] = id
	}

	mathID := departmentIDs["MATH"]
	if _, err := tx.Exec(ctx, `
		INSERT INTO school_programs (uuid, school_id, department_id, name, code, degree_level, duration_years, status)
		VALUES ($1, $2, $3, $4, $5, 'bachelor', 4, true)
		ON CONFLICT (code) DO NOTHING
	`, uuid.New(), schoolID, mathID, "Bachelor of Science", "BSC"); err != nil {
		log.Fatalf("seed program: %v", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO school_classrooms (uuid, department_id, name, code, capacity, type, status)
		VALUES ($1, $2, $3, $4, 32, 'classroom', true)
		ON CONFLICT (code) DO NOTHING
	`, uuid.New(), mathID, "Room 101", "RM-101"); err != nil {
		log.Fatalf("seed classroom: %v", err)
	}

	for _, name := range []string{"Projector", "Whiteboard", "Lab Bench"} {
		if _, err := tx.Exec(ctx, `
			INSERT INTO school_equipment (uuid, name, slug, category, status)
			VALUES ($1, $2, $3, 'other', true)
			ON CONFLICT (slug) DO NOTHING
		`, uuid.New(), name, slug.Make(name)); err != nil {
			log.Fatalf("seed equipment %s: %v", name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit: %v", err)
	}

	log.Printf("seeded school %s (%s)", schoolName, schoolCode)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
