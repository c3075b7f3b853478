//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore implementation of
// secrets.UserStore. It supports multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
//   - User: the account, including its secrets (unindexed)
//   - Username: reservation keyed by username, pointing at the User
//   - GoogleID: reservation keyed by Google subject, pointing at the User
//
// Reservations are written in the same transaction as the User, which is how
// uniqueness is enforced without a unique index.
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	users := gae.NewUserStore(client, "")  // default namespace
package gae
