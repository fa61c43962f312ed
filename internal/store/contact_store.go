package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

// ErrNotFound is returned by mutations that target a row that does not exist
// for the given owner.
var ErrNotFound = errors.New("not found")

const contactColumns = `id, owner_id, full_name, job_title, company, email, phone, website, address,
	raw_text, front_mime, back_mime, scanned_at`

type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanContact fills the row columns only. Image payloads live in the photo
// store, so FrontImage and BackImage carry just their MIME types here.
func scanContact(row rowScanner) (*domain.Contact, error) {
	c := &domain.Contact{}
	var backMime sql.NullString
	err := row.Scan(&c.ID, &c.OwnerID, &c.FullName, &c.JobTitle, &c.Company, &c.Email, &c.Phone,
		&c.Website, &c.Address, &c.RawText, &c.FrontImage.MimeType, &backMime, &c.ScannedAt)
	if err != nil {
		return nil, err
	}
	if backMime.Valid {
		c.BackImage = &domain.Image{MimeType: backMime.String}
	}
	return c, nil
}

func backMimeOf(c *domain.Contact) sql.NullString {
	if c.BackImage == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.BackImage.MimeType, Valid: true}
}

// Create inserts c and its tags in one transaction.
func (s *ContactStore) Create(ctx context.Context, c *domain.Contact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.OwnerID, c.FullName, c.JobTitle, c.Company, c.Email, c.Phone, c.Website, c.Address,
		c.RawText, c.FrontImage.MimeType, backMimeOf(c), c.ScannedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	if err := replaceTags(ctx, tx, c.ID, c.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contact: %w", err)
	}
	return nil
}

// Update rewrites the editable fields and tags of an existing contact. The id,
// owner, scan time and images never change.
func (s *ContactStore) Update(ctx context.Context, c *domain.Contact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	result, err := tx.ExecContext(ctx, `
		UPDATE contacts
		SET full_name = ?, job_title = ?, company = ?, email = ?, phone = ?, website = ?, address = ?, raw_text = ?
		WHERE id = ? AND owner_id = ?
	`, c.FullName, c.JobTitle, c.Company, c.Email, c.Phone, c.Website, c.Address, c.RawText, c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}

	if err := replaceTags(ctx, tx, c.ID, c.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contact: %w", err)
	}
	return nil
}

func (s *ContactStore) GetByID(ctx context.Context, ownerID, id string) (*domain.Contact, error) {
	c, err := scanContact(s.db.QueryRowContext(ctx, `
		SELECT `+contactColumns+` FROM contacts WHERE id = ? AND owner_id = ?
	`, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	tags, err := s.tagsFor(ctx, []string{c.ID})
	if err != nil {
		return nil, err
	}
	c.Tags = tags[c.ID]
	return c, nil
}

// ListByOwner returns the owner's contacts, most recently scanned first.
func (s *ContactStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Contact, error) {
	return s.query(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE owner_id = ? ORDER BY scanned_at DESC, id ASC
	`, ownerID)
}

// Search matches query as a case-insensitive substring of the name, company,
// job title, email or phone. SQLite's LIKE only folds ASCII letters, so a
// query with other characters is matched in Go over the owner's contacts.
func (s *ContactStore) Search(ctx context.Context, ownerID, query string) ([]*domain.Contact, error) {
	query = strings.TrimSpace(query)
	if !isASCII(query) {
		all, err := s.ListByOwner(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		return slices.DeleteFunc(all, func(c *domain.Contact) bool { return !containsFold(c, query) }), nil
	}

	pattern := "%" + escapeLike(query) + "%"
	return s.query(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE owner_id = ? AND (
			full_name LIKE ? ESCAPE '\' OR
			company   LIKE ? ESCAPE '\' OR
			job_title LIKE ? ESCAPE '\' OR
			email     LIKE ? ESCAPE '\' OR
			phone     LIKE ? ESCAPE '\'
		)
		ORDER BY scanned_at DESC, id ASC
	`, ownerID, pattern, pattern, pattern, pattern, pattern)
}

func containsFold(c *domain.Contact, query string) bool {
	term := strings.ToLower(query)
	for _, v := range []string{c.FullName, c.Company, c.JobTitle, c.Email, c.Phone} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Companies returns the owner's distinct non-blank companies, sorted.
func (s *ContactStore) Companies(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT company FROM contacts
		WHERE owner_id = ? AND trim(company) != ''
		ORDER BY company ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer closeRows(rows)

	var companies []string
	for rows.Next() {
		var company string
		if err := rows.Scan(&company); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, company)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}
	return companies, nil
}

func (s *ContactStore) Delete(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM contacts WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return expectOneRow(result)
}

// DeleteByOwner removes every contact of ownerID and reports how many went.
func (s *ContactStore) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM contacts WHERE owner_id = ?
	`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear contacts: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (s *ContactStore) query(ctx context.Context, q string, args ...any) ([]*domain.Contact, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer closeRows(rows)

	var contacts []*domain.Contact
	var ids []string
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}

	tags, err := s.tagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range contacts {
		c.Tags = tags[c.ID]
	}
	return contacts, nil
}

func (s *ContactStore) tagsFor(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT contact_id, tag FROM contact_tags
		WHERE contact_id IN (`+placeholders+`) ORDER BY tag ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		out[id] = append(out[id], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return out, nil
}

func replaceTags(ctx context.Context, tx *sql.Tx, contactID string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM contact_tags WHERE contact_id = ?`, contactID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO contact_tags (contact_id, tag) VALUES (?, ?)
		`, contactID, tag); err != nil {
			return fmt.Errorf("failed to add tag: %w", err)
		}
	}
	return nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error("failed to roll back transaction", "error", err)
	}
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}
