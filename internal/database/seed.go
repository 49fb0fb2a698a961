// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data: a default
// admin user and a few starter categories. It is a no-op once any user
// exists. The admin will be prompted to set up 2FA on first login.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO users (username, email, password_hash, display_name, role, totp_enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, "admin", "admin@quillpress.local", string(hash), "Admin", "admin", false)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	categories := []struct {
		name, slug, color string
	}{
		{"AI & LLM", "ai-llm", "#6366f1"},
		{"Engineering", "engineering", "#0ea5e9"},
		{"News", "news", "#f59e0b"},
	}
	for _, c := range categories {
		_, err := db.Exec(`
			INSERT INTO categories (name, slug, color)
			VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO NOTHING
		`, c.name, c.slug, c.color)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.slug, err)
		}
	}

	slog.Info("database seeded with default admin user",
		"username", "admin",
		"password", "admin",
	)

	return nil
}
