package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Bruhadev45/Cardsnap-AI/internal/contacts"
	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
	"github.com/Bruhadev45/Cardsnap-AI/internal/photostore"
	"github.com/Bruhadev45/Cardsnap-AI/internal/store"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrMissingFront    = errors.New("contact has no front image")
	ErrUnknownSide     = errors.New("unknown card side")
)

// contactRepository is the subset of store.ContactStore that ContactService requires.
type contactRepository interface {
	Create(ctx context.Context, c *domain.Contact) error
	Update(ctx context.Context, c *domain.Contact) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.Contact, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Contact, error)
	Search(ctx context.Context, ownerID, query string) ([]*domain.Contact, error)
	Companies(ctx context.Context, ownerID string) ([]string, error)
	Delete(ctx context.Context, ownerID, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

// ContactService owns confirmed contacts: their rows and their card images.
// It is the sink the capture workflow hands confirmed contacts to.
type ContactService struct {
	contacts contactRepository
	photoStg photostore.PhotoStore
	logger   *slog.Logger
}

func NewContactService(contacts contactRepository, photoStg photostore.PhotoStore, logger *slog.Logger) *ContactService {
	return &ContactService{contacts: contacts, photoStg: photoStg, logger: logger}
}

type sideImage struct {
	side string
	img  domain.Image
}

func sides(c *domain.Contact) []sideImage {
	out := []sideImage{{side: photostore.Front, img: c.FrontImage}}
	if c.BackImage != nil {
		out = append(out, sideImage{side: photostore.Back, img: *c.BackImage})
	}
	return out
}

// Save persists c for ownerID. Both card images are written first, then the
// row; if any step fails everything already written is removed again.
func (s *ContactService) Save(ctx context.Context, ownerID string, c *domain.Contact) error {
	if c.FrontImage.Empty() {
		return ErrMissingFront
	}
	c.OwnerID = ownerID

	imgs := sides(c)
	keys := make([]string, len(imgs))
	written := make([]bool, len(imgs))

	g, gctx := errgroup.WithContext(ctx)
	for i, si := range imgs {
		keys[i] = photostore.Key(c.ID, si.side, si.img.MimeType)
		g.Go(func() error {
			if _, err := s.photoStg.Save(gctx, keys[i], bytes.NewReader(si.img.Data)); err != nil {
				return fmt.Errorf("failed to save %s image: %w", si.side, err)
			}
			written[i] = true
			return nil
		})
	}

	rollback := func() {
		for i, key := range keys {
			if !written[i] {
				continue
			}
			if err := s.photoStg.Delete(context.WithoutCancel(ctx), key); err != nil {
				s.logger.Error("failed to roll back card image", "contact_id", c.ID, "storage_key", key, "error", err)
			}
		}
	}

	if err := g.Wait(); err != nil {
		rollback()
		return err
	}

	if err := s.contacts.Create(ctx, c); err != nil {
		rollback()
		return fmt.Errorf("failed to save contact: %w", err)
	}

	s.logger.Info("contact saved", "contact_id", c.ID, "owner_id", ownerID, "has_back", c.BackImage != nil)
	return nil
}

// Get returns the contact with both card images loaded.
func (s *ContactService) Get(ctx context.Context, ownerID, id string) (*domain.Contact, error) {
	c, err := s.contacts.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if c == nil {
		return nil, ErrContactNotFound
	}

	front, err := s.readImage(ctx, photostore.Key(c.ID, photostore.Front, c.FrontImage.MimeType))
	if err != nil {
		return nil, err
	}
	c.FrontImage = front

	if c.BackImage != nil {
		back, err := s.readImage(ctx, photostore.Key(c.ID, photostore.Back, c.BackImage.MimeType))
		if err != nil {
			return nil, err
		}
		c.BackImage = &back
	}
	return c, nil
}

func (s *ContactService) readImage(ctx context.Context, key string) (domain.Image, error) {
	rc, mimeType, err := s.photoStg.Get(ctx, key)
	if err != nil {
		return domain.Image{}, fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer closeWithLog(s.logger, rc, key)

	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.Image{}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return domain.Image{Data: data, MimeType: mimeType}, nil
}

// Image opens one side of a contact's card for streaming. The caller closes
// the reader.
func (s *ContactService) Image(ctx context.Context, ownerID, id, side string) (io.ReadCloser, string, error) {
	c, err := s.contacts.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get contact: %w", err)
	}
	if c == nil {
		return nil, "", ErrContactNotFound
	}

	var mimeType string
	switch side {
	case photostore.Front:
		mimeType = c.FrontImage.MimeType
	case photostore.Back:
		if c.BackImage == nil {
			return nil, "", photostore.ErrNotFound
		}
		mimeType = c.BackImage.MimeType
	default:
		return nil, "", ErrUnknownSide
	}
	return s.photoStg.Get(ctx, photostore.Key(c.ID, side, mimeType))
}

// List returns the owner's contacts narrowed and ordered by f. Images are not
// loaded.
func (s *ContactService) List(ctx context.Context, ownerID string, f contacts.Filter) ([]*domain.Contact, error) {
	var (
		all []*domain.Contact
		err error
	)
	if f.Query != "" {
		all, err = s.contacts.Search(ctx, ownerID, f.Query)
	} else {
		all, err = s.contacts.ListByOwner(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return f.Apply(all), nil
}

func (s *ContactService) Companies(ctx context.Context, ownerID string) ([]string, error) {
	return s.contacts.Companies(ctx, ownerID)
}

// Update replaces the editable card fields and tags of a saved contact.
func (s *ContactService) Update(ctx context.Context, ownerID, id string, fields domain.CardFields, tags []string) (*domain.Contact, error) {
	c, err := s.contacts.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if c == nil {
		return nil, ErrContactNotFound
	}

	c.CardFields = fields
	if tags != nil {
		c.Tags = tags
	}
	if err := s.contacts.Update(ctx, c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return s.contacts.GetByID(ctx, ownerID, id)
}

// Delete removes the contact row and then its card images. Image removal
// failures are logged, not returned.
func (s *ContactService) Delete(ctx context.Context, ownerID, id string) error {
	c, err := s.contacts.GetByID(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to get contact: %w", err)
	}
	if c == nil {
		return ErrContactNotFound
	}

	if err := s.contacts.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrContactNotFound
		}
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	s.deleteImages(ctx, c)
	return nil
}

// ClearAll deletes every contact the owner has and returns how many.
func (s *ContactService) ClearAll(ctx context.Context, ownerID string) (int64, error) {
	all, err := s.contacts.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	n, err := s.contacts.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	for _, c := range all {
		s.deleteImages(ctx, c)
	}
	s.logger.Info("contacts cleared", "owner_id", ownerID, "count", n)
	return n, nil
}

func (s *ContactService) deleteImages(ctx context.Context, c *domain.Contact) {
	for _, si := range sides(c) {
		key := photostore.Key(c.ID, si.side, si.img.MimeType)
		if err := s.photoStg.Delete(ctx, key); err != nil && !errors.Is(err, photostore.ErrNotFound) {
			s.logger.Error("failed to delete card image", "contact_id", c.ID, "storage_key", key, "error", err)
		}
	}
}

// StorageUsage sums the bytes held for the owner's contacts: the text fields
// plus every stored card image.
func (s *ContactService) StorageUsage(ctx context.Context, ownerID string) (int64, error) {
	all, err := s.contacts.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, c := range all {
		f := c.CardFields
		total += int64(len(c.ID) + len(f.FullName) + len(f.JobTitle) + len(f.Company) + len(f.Email) +
			len(f.Phone) + len(f.Website) + len(f.Address) + len(c.RawText))
		for _, si := range sides(c) {
			n, err := s.photoStg.Size(ctx, photostore.Key(c.ID, si.side, si.img.MimeType))
			if errors.Is(err, photostore.ErrNotFound) {
				continue
			}
			if err != nil {
				return 0, fmt.Errorf("failed to measure card image: %w", err)
			}
			total += n
		}
	}
	return total, nil
}

// FormatBytes renders n as "x.xx KB", switching to MB above one megabyte.
func FormatBytes(n int64) string {
	kb := float64(n) / 1024
	mb := kb / 1024
	if mb > 1 {
		return fmt.Sprintf("%.2f MB", mb)
	}
	return fmt.Sprintf("%.2f KB", kb)
}

func closeWithLog(logger *slog.Logger, c io.Closer, what string) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close", "what", what, "error", err)
	}
}
