package database

import (
	"context"
	"fmt"
	"strings"

	"lawdesk/internal/models"

	"gorm.io/gorm"
)

type DocumentFilter struct {
	CaseID   uint
	ClientID uint
	Status   models.DocumentStatus
	Tag      string
	Query    string
	// AllVersions includes superseded versions; by default only originals are listed.
	AllVersions bool
}

func (s *Store) ListDocuments(ctx context.Context, f DocumentFilter) ([]models.Document, error) {
	q := s.db.WithContext(ctx).Preload("Tags").Order("created_at desc, id desc")
	if f.CaseID != 0 {
		q = q.Where("case_id = ?", f.CaseID)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.AllVersions {
		q = q.Where("parent_id IS NULL")
	}
	if f.Tag != "" {
		sub := s.db.Table("document_tags").
			Select("document_tags.document_id").
			Joins("JOIN tags ON tags.id = document_tags.tag_id").
			Where("LOWER(tags.name) = ?", strings.ToLower(f.Tag))
		q = q.Where("id IN (?)", sub)
	}
	if f.Query != "" {
		p := likePattern(f.Query)
		q = q.Where("LOWER(title) LIKE ? OR LOWER(filename) LIKE ?", p, p)
	}
	var docs []models.Document
	if err := q.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (s *Store) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	var d models.Document
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("version asc") }).
		First(&d, id).Error
	if err != nil {
		return nil, lookupErr(err, "document", id)
	}
	return &d, nil
}

func (s *Store) CreateDocument(ctx context.Context, d *models.Document, tagNames []string) error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		d.Title = d.Filename
	}
	if d.Filename == "" || d.StorageKey == "" {
		return invalid("document filename and storage key are required")
	}
	if d.Status == "" {
		d.Status = models.DocumentActive
	}
	if d.Version == 0 {
		d.Version = 1
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if d.CaseID != nil {
			var c models.Case
			if err := tx.First(&c, *d.CaseID).Error; err != nil {
				return invalid("case %d does not exist", *d.CaseID)
			}
			if d.ClientID == nil {
				cid := c.ClientID
				d.ClientID = &cid
			}
		}
		tags, err := findOrCreateTags(tx, tagNames)
		if err != nil {
			return err
		}
		d.Tags = tags
		if err := tx.Create(d).Error; err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		return nil
	})
}

// AddDocumentVersion stores d as the next version of the document family
// that parentID belongs to.
func (s *Store) AddDocumentVersion(ctx context.Context, parentID uint, d *models.Document) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent models.Document
		if err := tx.First(&parent, parentID).Error; err != nil {
			return lookupErr(err, "document", parentID)
		}
		if parent.Status == models.DocumentArchived {
			return invalid("document %d is archived", parentID)
		}
		root := parent.RootID()

		var maxVersion int
		if err := tx.Model(&models.Document{}).
			Where("id = ? OR parent_id = ?", root, root).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error; err != nil {
			return fmt.Errorf("find latest version: %w", err)
		}

		d.ParentID = &root
		d.Version = maxVersion + 1
		d.CaseID = parent.CaseID
		d.ClientID = parent.ClientID
		d.Status = models.DocumentActive
		if strings.TrimSpace(d.Title) == "" {
			d.Title = parent.Title
		}
		if err := tx.Create(d).Error; err != nil {
			return fmt.Errorf("create document version: %w", err)
		}
		return nil
	})
}

// ArchiveDocument is the document "delete": status flips to archived.
func (s *Store) ArchiveDocument(ctx context.Context, id uint) (*models.Document, error) {
	var d models.Document
	if err := s.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, lookupErr(err, "document", id)
	}
	d.Status = models.DocumentArchived
	if err := s.db.WithContext(ctx).Omit("Tags", "Versions").Save(&d).Error; err != nil {
		return nil, fmt.Errorf("archive document: %w", err)
	}
	return &d, nil
}

// TagDocument adds tags (created on demand) to the document.
func (s *Store) TagDocument(ctx context.Context, id uint, names []string) (*models.Document, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Document
		if err := tx.First(&d, id).Error; err != nil {
			return lookupErr(err, "document", id)
		}
		tags, err := findOrCreateTags(tx, names)
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			return invalid("at least one tag is required")
		}
		if err := tx.Model(&d).Association("Tags").Append(tags); err != nil {
			return fmt.Errorf("tag document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetDocument(ctx, id)
}

func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name asc").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func (s *Store) CreateTag(ctx context.Context, t *models.Tag) error {
	t.Name = normalizeTag(t.Name)
	if t.Name == "" {
		return invalid("tag name is required")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Tag{}).Where("name = ?", t.Name).Count(&count).Error; err != nil {
		return fmt.Errorf("check tag: %w", err)
	}
	if count > 0 {
		return conflict("tag %s", t.Name)
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

func findOrCreateTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	var tags []models.Tag
	seen := map[string]bool{}
	for _, n := range names {
		n = normalizeTag(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		var t models.Tag
		if err := tx.Where(models.Tag{Name: n}).FirstOrCreate(&t).Error; err != nil {
			return nil, fmt.Errorf("tag %q: %w", n, err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func normalizeTag(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}
