// Package models defines the client-side data types exchanged with the
// user directory backend.
package models
