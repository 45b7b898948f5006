package main

import (
	"log"
	"os"

	"clinical-scribe-be/internal/model"
	"clinical-scribe-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Starting Authoritative GORM Migration...")

	// 3. Pre-Migration: Extensions & Enums (Things GORM AutoMigrate doesn't do perfectly)
	color.Yellow("Step 1: Setting up Extensions and Enums...")

	setupSQL := []string{
		// Extensions
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,

		// Enums (Idempotent creation)
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'user_role') THEN CREATE TYPE user_role AS ENUM ('professional', 'admin'); END IF; END $$;`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'user_status') THEN CREATE TYPE user_status AS ENUM ('pending', 'active', 'blocked'); END IF; END $$;`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'upload_status') THEN CREATE TYPE upload_status AS ENUM ('uploaded', 'extracting', 'extracted', 'failed'); END IF; END $$;`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models (The Core Task)
	color.Yellow("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.User{},
		&model.EmailVerificationToken{},
		&model.UserRefreshToken{},
		&model.PasswordResetToken{},
		&model.PatientSession{},
		&model.Document{},
		&model.SoapNote{},
		&model.NoteEmbedding{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: Views & Indexes
	color.Yellow("Step 3: Creating Views and Indexes...")

	postMigrationSQL := []string{
		// ANN index for similarity search over note chunks
		`CREATE INDEX IF NOT EXISTS idx_note_embeddings_value ON note_embeddings
		 USING hnsw (embedding_value vector_cosine_ops);`,

		// View: searchable chunks joined to their approved notes
		`CREATE OR REPLACE VIEW retrievable_note_chunks AS
		 SELECT ne.id AS chunk_id, ne.note_id, ne.chunk_index, ne.content, ne.embedding_value AS embedding,
		        sn.professional_id, sn.session_id
		 FROM note_embeddings ne JOIN soap_notes sn ON sn.id = ne.note_id
		 WHERE sn.deleted_at IS NULL AND ne.deleted_at IS NULL AND sn.user_approved = true;`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	color.Green("✅ Success: Database migration completed successfully via GORM.")
}
