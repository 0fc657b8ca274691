package userstore

import (
	"fmt"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// AddSearchHistory records a search. Re-adding an entry moves it to the front.
func (s *Store) AddSearchHistory(entry string) error {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("INSERT INTO search_history (entry) VALUES (?)", entry); err != nil {
		return fmt.Errorf("failed to add search history entry: %w", err)
	}
	return nil
}

// SearchHistory returns entries starting with prefix, newest first.
// A limit <= 0 returns every match.
func (s *Store) SearchHistory(prefix string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT entry FROM search_history WHERE entry LIKE ? ESCAPE '\' ORDER BY id DESC`
	args := []any{likeEscaper.Replace(prefix) + "%"}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	entries := []string{}
	if err := s.db.Select(&entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to read search history: %w", err)
	}
	return entries, nil
}

// ClearSearchHistory deletes every entry
func (s *Store) ClearSearchHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM search_history"); err != nil {
		return fmt.Errorf("failed to clear search history: %w", err)
	}
	return nil
}
