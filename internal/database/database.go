package database

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"time"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "mathquest_user")
	password := getEnv("DB_PASSWORD", "mathquest_password")
	dbname := getEnv("DB_NAME", "mathquest")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id           BIGSERIAL PRIMARY KEY,
		email        VARCHAR(255) UNIQUE NOT NULL,
		display_name VARCHAR(100) NOT NULL,
		role         VARCHAR(10) NOT NULL DEFAULT 'student',
		teacher_id   BIGINT REFERENCES users(id),
		class_code   VARCHAR(12) UNIQUE,
		password     VARCHAR(255) NOT NULL,
		created_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_teacher ON users(teacher_id) WHERE teacher_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_users_class_code ON users(class_code) WHERE class_code IS NOT NULL;

	CREATE TABLE IF NOT EXISTS user_stats (
		user_id          BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		total_correct    INT NOT NULL DEFAULT 0,
		total_incorrect  INT NOT NULL DEFAULT 0,
		streak           INT NOT NULL DEFAULT 0,
		last_played_date VARCHAR(10),
		last_active_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		badges           JSONB NOT NULL DEFAULT '[]',
		badges_count     INT NOT NULL DEFAULT 0,
		created_at       TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at       TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_stats_total_correct ON user_stats(total_correct DESC);

	CREATE TABLE IF NOT EXISTS user_daily_history (
		user_id   BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		day       VARCHAR(10) NOT NULL,
		correct   INT NOT NULL DEFAULT 0,
		incorrect INT NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, day)
	);

	CREATE INDEX IF NOT EXISTS idx_daily_history_user ON user_daily_history(user_id);
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// rng is a seeded random source for class-code generation.
var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

const classCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateClassCode creates a 6-character join code for a teacher's
// class. The alphabet drops easily confused characters (0/O, 1/I/L).
// Caller handles the unique constraint and retries on collision.
func GenerateClassCode() string {
	code := make([]byte, 6)
	for i := range code {
		code[i] = classCodeAlphabet[rng.Intn(len(classCodeAlphabet))]
	}
	return string(code)
}
