package database

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"luminexus/internal/logger"
)

const badWordsURL = "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/refs/heads/master/en"

// BadWordFilter screens player display names against the bad_words table
type BadWordFilter struct {
	db        *DB
	log       *logger.Logger
	sourceURL string
	client    *http.Client
}

// NewBadWordFilter creates a filter backed by db
func NewBadWordFilter(db *DB, log *logger.Logger) *BadWordFilter {
	return &BadWordFilter{
		db:        db,
		log:       log.With("component", "bad_words"),
		sourceURL: badWordsURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Seed fetches the word list and fills the table if it is empty
func (f *BadWordFilter) Seed(ctx context.Context) error {
	var count int
	if err := f.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bad_words").Scan(&count); err != nil {
		return fmt.Errorf("failed to check bad words count: %w", err)
	}

	if count > 0 {
		f.log.Info("Bad words filter already populated", "words", count)
		return nil
	}

	f.log.Info("Downloading bad words list", "url", f.sourceURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build bad words request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download bad words list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status code from bad words URL: %d", resp.StatusCode)
	}

	added, err := f.SeedFrom(ctx, resp.Body)
	if err != nil {
		return err
	}

	f.log.Info("Bad words filter populated", "words", added)
	return nil
}

// SeedFrom inserts one word per line from r into an empty table and returns how many were added
func (f *BadWordFilter) SeedFrom(ctx context.Context, r io.Reader) (int, error) {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, f.db.Dialect.RewriteQuery("INSERT INTO bad_words (word) VALUES (?)"))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	// A failed insert aborts the whole transaction on postgres, so
	// duplicates are dropped before they reach the unique index
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	added := 0
	for scanner.Scan() {
		word := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true

		if _, err := stmt.ExecContext(ctx, word); err != nil {
			return 0, fmt.Errorf("failed to insert bad word: %w", err)
		}
		added++
	}

	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("error reading bad words: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return added, nil
}

// IsBadWord checks if a single word is in the bad words list
func (f *BadWordFilter) IsBadWord(ctx context.Context, word string) (bool, error) {
	cleanWord := strings.TrimSpace(strings.ToLower(word))

	var count int
	err := f.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bad_words WHERE word = ?", cleanWord).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check bad word: %w", err)
	}
	return count > 0, nil
}

// ContainsBadWord checks the whole name and each of its words
func (f *BadWordFilter) ContainsBadWord(ctx context.Context, name string) (bool, error) {
	candidates := []string{name}
	candidates = append(candidates, strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})...)

	for _, candidate := range candidates {
		bad, err := f.IsBadWord(ctx, candidate)
		if err != nil {
			return false, err
		}
		if bad {
			f.log.Info("Bad word detected in display name")
			return true, nil
		}
	}
	return false, nil
}
