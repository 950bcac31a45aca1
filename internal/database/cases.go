package database

import (
	"context"
	"fmt"
	"strings"

	"lawdesk/internal/models"

	"gorm.io/gorm"
)

type CaseFilter struct {
	Status     models.CaseStatus
	ClientID   uint
	AttorneyID uint
	Query      string
}

func (s *Store) ListCases(ctx context.Context, f CaseFilter) ([]models.Case, error) {
	q := s.db.WithContext(ctx).Preload("Client").Order("date_opened desc, id desc")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.AttorneyID != 0 {
		q = q.Where("id IN (?)", s.db.Table("case_attorneys").Select("case_id").Where("user_id = ?", f.AttorneyID))
	}
	if f.Query != "" {
		p := likePattern(f.Query)
		q = q.Where("LOWER(title) LIKE ? OR LOWER(case_number) LIKE ?", p, p)
	}
	var cases []models.Case
	if err := q.Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cases, nil
}

func (s *Store) GetCase(ctx context.Context, id uint) (*models.Case, error) {
	var c models.Case
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Attorneys").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("due_date asc, id asc") }).
		First(&c, id).Error
	if err != nil {
		return nil, lookupErr(err, "case", id)
	}
	return &c, nil
}

// CreateCase inserts c and links the given attorneys. A case number is
// generated when c.CaseNumber is empty.
func (s *Store) CreateCase(ctx context.Context, c *models.Case, attorneyIDs []uint) error {
	c.Title = strings.TrimSpace(c.Title)
	c.CaseNumber = strings.TrimSpace(c.CaseNumber)
	if len(c.Title) < 3 {
		return invalid("case title must be at least 3 characters")
	}
	if c.Status != "" && !c.Status.Valid() {
		return invalid("invalid case status %q", c.Status)
	}
	if c.Priority != "" && !c.Priority.Valid() {
		return invalid("invalid case priority %q", c.Priority)
	}
	if c.DateOpened.IsZero() {
		c.DateOpened = s.now()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client models.Client
		if err := tx.First(&client, c.ClientID).Error; err != nil {
			return invalid("client %d does not exist", c.ClientID)
		}
		if client.Status == models.ClientArchived {
			return invalid("client %d is archived", c.ClientID)
		}

		if c.CaseNumber == "" {
			var count int64
			prefix := fmt.Sprintf("CASE-%d-", c.DateOpened.Year())
			if err := tx.Unscoped().Model(&models.Case{}).Where("case_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
				return fmt.Errorf("count cases: %w", err)
			}
			c.CaseNumber = fmt.Sprintf("%s%04d", prefix, count+1)
		} else {
			var count int64
			if err := tx.Unscoped().Model(&models.Case{}).Where("case_number = ?", c.CaseNumber).Count(&count).Error; err != nil {
				return fmt.Errorf("check case number: %w", err)
			}
			if count > 0 {
				return conflict("case number %s", c.CaseNumber)
			}
		}

		attorneys, err := loadAttorneys(tx, attorneyIDs)
		if err != nil {
			return err
		}
		c.Client = nil
		c.Attorneys = attorneys
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("create case: %w", err)
		}
		return nil
	})
}

// UpdateCase overwrites the editable fields of c; status changes go through SetCaseStatus.
func (s *Store) UpdateCase(ctx context.Context, c *models.Case) error {
	c.Title = strings.TrimSpace(c.Title)
	if len(c.Title) < 3 {
		return invalid("case title must be at least 3 characters")
	}
	if !c.Priority.Valid() {
		return invalid("invalid case priority %q", c.Priority)
	}
	if err := s.db.WithContext(ctx).Omit("Client", "Attorneys", "Tasks").Save(c).Error; err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	return nil
}

// SetCaseStatus changes the status, setting or clearing date_closed.
func (s *Store) SetCaseStatus(ctx context.Context, id uint, status models.CaseStatus) (*models.Case, error) {
	if !status.Valid() {
		return nil, invalid("invalid case status %q", status)
	}
	var c models.Case
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, lookupErr(err, "case", id)
	}
	c.SetStatus(status, s.now())
	if err := s.db.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, fmt.Errorf("update case status: %w", err)
	}
	return &c, nil
}

// AssignAttorneys replaces the attorneys linked to the case.
func (s *Store) AssignAttorneys(ctx context.Context, caseID uint, attorneyIDs []uint) (*models.Case, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Case
		if err := tx.First(&c, caseID).Error; err != nil {
			return lookupErr(err, "case", caseID)
		}
		attorneys, err := loadAttorneys(tx, attorneyIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(&c).Association("Attorneys").Replace(attorneys); err != nil {
			return fmt.Errorf("assign attorneys: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCase(ctx, caseID)
}

func loadAttorneys(tx *gorm.DB, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := tx.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load attorneys: %w", err)
	}
	if len(users) != len(uniq(ids)) {
		return nil, invalid("unknown attorney in %v", ids)
	}
	for _, u := range users {
		if !u.Role.IsLawyer() {
			return nil, invalid("user %d (%s) cannot be assigned as attorney", u.ID, u.Role)
		}
	}
	return users, nil
}

func uniq(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Store) ListTasks(ctx context.Context, caseID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).Preload("Assignee").Preload("Tags").
		Where("case_id = ?", caseID).
		Order("due_date asc, id asc").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	if err := s.db.WithContext(ctx).Preload("Tags").First(&t, id).Error; err != nil {
		return nil, lookupErr(err, "task", id)
	}
	return &t, nil
}

func (s *Store) CreateTask(ctx context.Context, t *models.Task, tagNames []string) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return invalid("task title is required")
	}
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	if !t.Status.Valid() {
		return invalid("invalid task status %q", t.Status)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Case{}).Where("id = ?", t.CaseID).Count(&count).Error; err != nil {
			return fmt.Errorf("check case: %w", err)
		}
		if count == 0 {
			return invalid("case %d does not exist", t.CaseID)
		}
		tags, err := findOrCreateTags(tx, tagNames)
		if err != nil {
			return err
		}
		t.Tags = tags
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
}

func (s *Store) UpdateTask(ctx context.Context, t *models.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return invalid("task title is required")
	}
	if !t.Status.Valid() {
		return invalid("invalid task status %q", t.Status)
	}
	if err := s.db.WithContext(ctx).Omit("Tags", "Assignee").Save(t).Error; err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}
