package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/questboard/questboard/model"
	"gorm.io/gorm"
)

func (s *SQLStore) CreateResource(ctx context.Context, r *model.Resource) error {
	if r.Tags == nil {
		r.Tags = []string{}
	}
	tx, cancel := s.conn(ctx)
	defer cancel()
	return s.classify(tx.Create(r).Error)
}

func (s *SQLStore) GetResource(ctx context.Context, id int64) (*model.Resource, error) {
	tx, cancel := s.conn(ctx)
	defer cancel()
	var r model.Resource
	if err := tx.First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: resource %d", ErrNotFound, id)
		}
		return nil, s.classify(err)
	}
	return &r, nil
}

// ListResources returns favourites first, then the most viewed, then the
// newest.
func (s *SQLStore) ListResources(ctx context.Context, f ResourceFilter) ([]model.Resource, error) {
	tx, cancel := s.conn(ctx)
	defer cancel()
	q := tx.Model(&model.Resource{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.FavoritesOnly {
		q = q.Where("favorite = ?", true)
	}
	var out []model.Resource
	err := q.Order("favorite DESC").
		Order("view_count DESC").
		Order("created_at DESC").
		Order("id DESC").
		Find(&out).Error
	return out, s.classify(err)
}

func (s *SQLStore) UpdateResource(ctx context.Context, r *model.Resource) error {
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if _, err := s.GetResource(ctx, r.ID); err != nil {
		return err
	}
	tx, cancel := s.conn(ctx)
	defer cancel()
	err := tx.Model(&model.Resource{}).Where("id = ?", r.ID).Updates(map[string]interface{}{
		"title":      r.Title,
		"url":        r.URL,
		"category":   r.Category,
		"tags":       r.Tags,
		"memo":       r.Memo,
		"favorite":   r.Favorite,
		"updated_at": Stamp(s.now()),
	}).Error
	return s.classify(err)
}

func (s *SQLStore) TouchResource(ctx context.Context, id int64) (*model.Resource, error) {
	tx, cancel := s.conn(ctx)
	res := tx.Model(&model.Resource{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"view_count":     gorm.Expr("view_count + ?", 1),
		"last_viewed_at": Stamp(s.now()),
	})
	cancel()
	if res.Error != nil {
		return nil, s.classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: resource %d", ErrNotFound, id)
	}
	return s.GetResource(ctx, id)
}

func (s *SQLStore) DeleteResource(ctx context.Context, id int64) error {
	tx, cancel := s.conn(ctx)
	defer cancel()
	res := tx.Delete(&model.Resource{}, id)
	if res.Error != nil {
		return s.classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: resource %d", ErrNotFound, id)
	}
	return nil
}

// ResourceCategories lists the categories in use, alphabetically.
func (s *SQLStore) ResourceCategories(ctx context.Context) ([]string, error) {
	tx, cancel := s.conn(ctx)
	defer cancel()
	var out []string
	err := tx.Model(&model.Resource{}).Distinct().Order("category ASC").Pluck("category", &out).Error
	return out, s.classify(err)
}
