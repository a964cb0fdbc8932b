package models

import (
	"fmt"
	"strings"
	"time"
)

// Category classifies a VaultEntry. The string values are the persisted form.
type Category string

const (
	CategoryGame    Category = "Game"
	CategoryApp     Category = "APP"
	CategoryEmail   Category = "Email"
	CategoryWebsite Category = "Website"
	CategoryOther   Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryGame, CategoryApp, CategoryEmail, CategoryWebsite, CategoryOther}

// ParseCategory resolves s case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// VaultEntry is one stored login.
type VaultEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Account   string    `json:"account"`
	Password  string    `json:"password"`
	Note      string    `json:"note"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"createDate"`
}

func (e VaultEntry) RecordID() string { return e.ID }

// Matches reports whether query occurs in the title, account or note.
func (e VaultEntry) Matches(query string) bool {
	return containsFold(query, e.Title, e.Account, e.Note)
}
