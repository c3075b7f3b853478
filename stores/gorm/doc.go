//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based secrets.UserStore.
// It supports any database that GORM supports; Open wires the SQLite and
// PostgreSQL drivers.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: one row per account, unique on username and on google_id
//     (NULL for local accounts)
//   - secrets: one row per submitted secret, ordered by id within a user
//
// # Usage
//
//	db, _ := gormstore.Open("postgres", dsn)
//	gormstore.AutoMigrate(db)
//	users := gormstore.NewUserStore(db)
package gorm
