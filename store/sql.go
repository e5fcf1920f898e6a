package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/questboard/questboard/config"
	"github.com/questboard/questboard/db"
	dbmysql "github.com/questboard/questboard/db/mysql"
	"github.com/questboard/questboard/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxNameLen bounds adventurer display names, in runes.
const MaxNameLen = 64

// SQLStore implements Store on top of a db.Backend.
type SQLStore struct {
	db        *gorm.DB
	backend   db.Backend
	opTimeout time.Duration
	now       func() time.Time
	inTx      bool
	logger    *zap.Logger
}

var _ Store = (*SQLStore)(nil)

// Open selects and opens the configured backend, then creates the schema if
// it is absent.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*SQLStore, error) {
	be, err := db.Open(cfg)
	if err != nil {
		if errors.Is(err, dbmysql.ErrBadDSN) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("%w: open %s backend: %w", ErrStoreUnavailable, db.ModeFor(cfg), err)
	}
	s := New(be, cfg.OpTimeout, logger)
	if err := s.Migrate(context.Background()); err != nil {
		_ = be.Close()
		return nil, err
	}
	logger.Info("store opened", zap.String("mode", be.Mode()))
	return s, nil
}

// New wraps an opened backend. opTimeout bounds every call made outside a
// transaction; zero disables the bound.
func New(be db.Backend, opTimeout time.Duration, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:        be.DB(),
		backend:   be,
		opTimeout: opTimeout,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock replaces the time source used for timestamps and versions.
func (s *SQLStore) SetClock(now func() time.Time) { s.now = now }

// Migrate creates or updates the schema. Safe to run repeatedly.
func (s *SQLStore) Migrate(ctx context.Context) error {
	return s.classify(model.AutoMigrate(s.backend.MigrationDB().WithContext(ctx)))
}

func (s *SQLStore) Mode() string { return s.backend.Mode() }

// Close releases the backend.
func (s *SQLStore) Close() error { return s.backend.Close() }

func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.classify(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout > 0 && !s.inTx {
		return context.WithTimeout(ctx, s.opTimeout)
	}
	return ctx, func() {}
}

func (s *SQLStore) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := s.bound(ctx)
	return s.db.WithContext(ctx), cancel
}

// Atomic runs fn inside one transaction. Nested calls join the outer one.
func (s *SQLStore) Atomic(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SQLStore{
			db:      tx,
			backend: s.backend,
			now:     s.now,
			inTx:    true,
			logger:  s.logger,
		})
	})
	return s.classify(err)
}

// ---- Quests ----

func (s *SQLStore) CreateQuest(ctx context.Context, q *model.Quest) error {
	if !q.Status.Valid() {
		return Invalid("unknown status %q", q.Status)
	}
	tx, cancel := s.conn(ctx)
	defer cancel()

	if err := s.requireAdventurer(tx, q.Creator); err != nil {
		return err
	}
	if q.Assignee != nil {
		if err := s.requireAdventurer(tx, *q.Assignee); err != nil {
			return err
		}
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now()
	}
	q.CreatedAt = Stamp(q.CreatedAt)
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = q.CreatedAt
	}
	q.UpdatedAt = Stamp(q.UpdatedAt)
	return s.classify(tx.Create(q).Error)
}

func (s *SQLStore) GetQuest(ctx context.Context, id int64) (*model.Quest, error) {
	tx, cancel := s.conn(ctx)
	defer cancel()
	var q model.Quest
	if err := tx.First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: quest %d", ErrNotFound, id)
		}
		return nil, s.classify(err)
	}
	return &q, nil
}

func (s *SQLStore) filtered(tx *gorm.DB, f QuestFilter) *gorm.DB {
	q := tx.Model(&model.Quest{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Assignee != nil {
		if *f.Assignee == "" {
			q = q.Where("assignee IS NULL")
		} else {
			q = q.Where("assignee = ?", *f.Assignee)
		}
	}
	return q
}

func (s *SQLStore) ListQuests(ctx context.Context, f QuestFilter) ([]model.Quest, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, Invalid("unknown status %q", f.Status)
	}
	tx, cancel := s.conn(ctx)
	defer cancel()
	var out []model.Quest
	err := s.filtered(tx, f).Order("created_at ASC").Order("id ASC").Find(&out).Error
	return out, s.classify(err)
}

func (s *SQLStore) CountQuests(ctx context.Context, f QuestFilter) (int64, error) {
	tx, cancel := s.conn(ctx)
	defer cancel()
	var n int64
	err := s.filtered(tx, f).Count(&n).Error
	return n, s.classify(err)
}

func (s *SQLStore) UpdateQuest(ctx context.Context, q *model.Quest, expected time.Time) error {
	if q.ID == 0 {
		return Invalid("quest id is required")
	}
	if !q.Status.Valid() {
		return Invalid("unknown status %q", q.Status)
	}
	tx, cancel := s.conn(ctx)
	defer cancel()

	if q.Assignee != nil {
		if err := s.requireAdventurer(tx, *q.Assignee); err != nil {
			return err
		}
	}

	expected = Stamp(expected)
	next := NextVersion(expected, s.now())
	res := tx.Model(&model.Quest{}).
		Where("id = ? AND updated_at = ?", q.ID, expected).
		Updates(map[string]interface{}{
			"title":             q.Title,
			"description":       q.Description,
			"status":            q.Status,
			"assignee":          q.Assignee,
			"priority":          q.Priority,
			"estimated_minutes": q.EstimatedMinutes,
			"start_date":        q.StartDate,
			"due_date":          q.DueDate,
			"rewarded":          q.Rewarded,
			"completed_at":      q.CompletedAt,
			"updated_at":        next,
		})
	if res.Error != nil {
		return s.classify(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&model.Quest{}).Where("id = ?", q.ID).Count(&n).Error; err != nil {
			return s.classify(err)
		}
		if n == 0 {
			return fmt.Errorf("%w: quest %d", ErrNotFound, q.ID)
		}
		return fmt.Errorf("%w (quest %d, version %s)", ErrConflict, q.ID, expected.Format(time.RFC3339Nano))
	}
	q.UpdatedAt = next
	return nil
}

// ---- Adventurers ----

// ValidName trims name and checks it can serve as an identity key.
func ValidName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", Invalid("adventurer name is required")
	case utf8.RuneCountInString(name) > MaxNameLen:
		return "", Invalid("adventurer name longer than %d characters", MaxNameLen)
	case name == model.SystemAuthor:
		return "", Invalid("adventurer name %q is reserved", name)
	}
	return name, nil
}

func (s *SQLStore) requireAdventurer(tx *gorm.DB, name string) error {
	var n int64
	if err := tx.Model(&model.Adventurer{}).Where("name = ?", name).Count(&n).Error; err != nil {
		return s.classify(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: adventurer %q", ErrInvalidReference, name)
	}
	return nil
}

func (s *SQLStore) CreateAdventurer(ctx context.Context, a *model.Adventurer) error {
	name, err := ValidName(a.Name)
	if err != nil {
		return err
	}
	if a.TotalXP < 0 {
		return Invalid("total_xp must not be negative")
	}
	a.Name = name
	tx, cancel := s.conn(ctx)
	defer cancel()
	if err := s.classify(tx.Create(a).Error); err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			return fmt.Errorf("%w: adventurer %q", ErrDuplicateIdentity, name)
		}
		return err
	}
	return nil
}

func (s *SQLStore) GetAdventurer(ctx context.Context, name string) (*model.Adventurer, error) {
	tx, cancel := s.conn(ctx)
	defer cancel()
	var a model.Adventurer
	if err := tx.Where("name = ?", strings.TrimSpace(name)).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: adventurer %q", ErrNotFound, name)
		}
		return nil, s.classify(err)
	}
	return &a, nil
}

// GetOrCreateAdventurer is the single place where identities come into
// existence on first use. Concurrent first uses of one name converge on the
// same row.
func (s *SQLStore) GetOrCreateAdventurer(ctx context.Context, name string) (*model.Adventurer, error) {
	name, err := ValidName(name)
	if err != nil {
		return nil, err
	}
	tx, cancel := s.conn(ctx)
	defer cancel()

	a := model.Adventurer{Name: name}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&a).Error; err != nil {
		return nil, s.classify(err)
	}
	var out model.Adventurer
	if err := tx.Where("name = ?", name).First(&out).Error; err != nil {
		return nil, s.classify(err)
	}
	return &out, nil
}

func (s *SQLStore) ListAdventurers(ctx context.Context, limit int) ([]model.Adventurer, error) {
	tx, cancel := s.conn(ctx)
	defer cancel()
	q := tx.Model(&model.Adventurer{}).Order("total_xp DESC").Order("name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.Adventurer
	return out, s.classify(q.Find(&out).Error)
}

func (s *SQLStore) AddXP(ctx context.Context, name string, xp int64) (*model.Adventurer, error) {
	if xp < 0 {
		return nil, Invalid("xp grant must not be negative")
	}
	if xp > 0 {
		tx, cancel := s.conn(ctx)
		res := tx.Model(&model.Adventurer{}).
			Where("name = ? AND total_xp <= ?", name, math.MaxInt64-xp).
			Update("total_xp", gorm.Expr("total_xp + ?", xp))
		cancel()
		if res.Error != nil {
			return nil, s.classify(res.Error)
		}
		if res.RowsAffected == 0 {
			if _, err := s.GetAdventurer(ctx, name); err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil, fmt.Errorf("%w: adventurer %q", ErrInvalidReference, name)
				}
				return nil, err
			}
			return nil, Invalid("xp grant of %d would overflow total_xp for %q", xp, name)
		}
	}
	return s.GetAdventurer(ctx, name)
}

// ---- Comments ----

func (s *SQLStore) AppendComment(ctx context.Context, c *model.Comment) error {
	if strings.TrimSpace(c.Text) == "" {
		return Invalid("comment text is required")
	}
	if strings.TrimSpace(c.Author) == "" {
		return Invalid("comment author is required")
	}
	if c.Kind == "" {
		c.Kind = model.CommentUser
	}
	tx, cancel := s.conn(ctx)
	defer cancel()

	var n int64
	if err := tx.Model(&model.Quest{}).Where("id = ?", c.QuestID).Count(&n).Error; err != nil {
		return s.classify(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: quest %d", ErrInvalidReference, c.QuestID)
	}
	c.ID = 0
	c.CreatedAt = Stamp(s.now())
	return s.classify(tx.Create(c).Error)
}

func (s *SQLStore) ListComments(ctx context.Context, questID int64) ([]model.Comment, error) {
	tx, cancel := s.conn(ctx)
	defer cancel()
	var out []model.Comment
	err := tx.Where("quest_id = ?", questID).
		Order("created_at ASC").Order("id ASC").
		Find(&out).Error
	return out, s.classify(err)
}

// ---- Templates ----

func (s *SQLStore) CreateTemplate(ctx context.Context, t *model.QuestTemplate) error {
	tx, cancel := s.conn(ctx)
	defer cancel()
	return s.classify(tx.Create(t).Error)
}

func (s *SQLStore) GetTemplate(ctx context.Context, id int64) (*model.QuestTemplate, error) {
	tx, cancel := s.conn(ctx)
	defer cancel()
	var t model.QuestTemplate
	if err := tx.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: template %d", ErrNotFound, id)
		}
		return nil, s.classify(err)
	}
	return &t, nil
}

func (s *SQLStore) ListTemplates(ctx context.Context) ([]model.QuestTemplate, error) {
	tx, cancel := s.conn(ctx)
	defer cancel()
	var out []model.QuestTemplate
	return out, s.classify(tx.Order("created_at DESC").Order("id DESC").Find(&out).Error)
}

func (s *SQLStore) UpdateTemplate(ctx context.Context, t *model.QuestTemplate) error {
	if _, err := s.GetTemplate(ctx, t.ID); err != nil {
		return err
	}
	tx, cancel := s.conn(ctx)
	defer cancel()
	err := tx.Model(&model.QuestTemplate{}).Where("id = ?", t.ID).Updates(map[string]interface{}{
		"title":             t.Title,
		"description":       t.Description,
		"priority":          t.Priority,
		"estimated_minutes": t.EstimatedMinutes,
	}).Error
	return s.classify(err)
}

func (s *SQLStore) DeleteTemplate(ctx context.Context, id int64) error {
	tx, cancel := s.conn(ctx)
	defer cancel()
	res := tx.Delete(&model.QuestTemplate{}, id)
	if res.Error != nil {
		return s.classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: template %d", ErrNotFound, id)
	}
	return nil
}

// classify maps driver and ORM errors onto the store taxonomy.
func (s *SQLStore) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case classified(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrDuplicateIdentity, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	case errors.Is(err, context.DeadlineExceeded), s.backend.Unavailable(err):
		s.logger.Warn("store unavailable", zap.String("mode", s.backend.Mode()), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrDuplicateIdentity, err)
	}
	return err
}
