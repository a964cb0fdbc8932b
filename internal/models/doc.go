// Package models defines the records kept in the vault: OTP secrets,
// password entries, trash entries and activity events.
//
// Every collection is a flat list of records addressed by a stable ID;
// identity is the ID alone, the other fields are payload.
package models
