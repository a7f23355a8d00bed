package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	metrics "github.com/ssiitsupport/SSI360V2/prometheus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements identifier-keyed persistence for one entity type
type Repository[T any] struct {
	db   *gorm.DB
	name string
}

func newRepository[T any](db *gorm.DB, name string) Repository[T] {
	return Repository[T]{db: db, name: name}
}

// Create inserts entity. A uniqueness violation becomes a Conflict error.
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	defer metrics.TrackDBOperation("insert")()
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return r.wrap("create", err)
	}
	return nil
}

// GetByID returns the entity or nil when it does not exist
func (r *Repository[T]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

// Lock reads the entity with a row lock held until the surrounding transaction ends
func (r *Repository[T]) Lock(ctx context.Context, id uuid.UUID) (*T, error) {
	return r.first(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// Exists reports whether an entity with id is stored
func (r *Repository[T]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	defer metrics.TrackDBOperation("query")()
	var count int64
	if err := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, r.wrap("check", err)
	}
	return count > 0, nil
}

// Update writes every mutable column of entity. Identifier and creation attribution are never changed.
func (r *Repository[T]) Update(ctx context.Context, entity *T) error {
	defer metrics.TrackDBOperation("update")()
	result := r.db.WithContext(ctx).Model(entity).Select("*").Omit("id", "created_at", "created_by").Updates(entity)
	if result.Error != nil {
		return r.wrap("update", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(r.name)
	}
	return nil
}

// Delete removes the entity row by id
func (r *Repository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	defer metrics.TrackDBOperation("delete")()
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error; err != nil {
		return r.wrap("delete", err)
	}
	return nil
}

// Count returns the number of stored entities
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	defer metrics.TrackDBOperation("query")()
	var count int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&count).Error; err != nil {
		return 0, r.wrap("count", err)
	}
	return count, nil
}

// ListByIDs returns the entities whose ids are in ids; unknown ids are skipped
func (r *Repository[T]) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	return r.find(ctx, r.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at ASC, id ASC"))
}

func (r *Repository[T]) first(ctx context.Context, q *gorm.DB) (*T, error) {
	defer metrics.TrackDBOperation("query")()
	var entity T
	if err := q.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.wrap("get", err)
	}
	return &entity, nil
}

func (r *Repository[T]) find(ctx context.Context, q *gorm.DB) ([]T, error) {
	defer metrics.TrackDBOperation("query")()
	items := []T{}
	if err := q.Find(&items).Error; err != nil {
		return nil, r.wrap("list", err)
	}
	return items, nil
}

// page runs a counted, searched and paginated listing
func (r *Repository[T]) page(ctx context.Context, q ListQuery, searchColumns []string, scope func(*gorm.DB) *gorm.DB) (Page[T], error) {
	defer metrics.TrackDBOperation("query")()
	q = q.Normalize()

	base := r.db.WithContext(ctx).Model(new(T))
	if scope != nil {
		base = scope(base)
	}
	base = applySearch(base, q.Search, searchColumns)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[T]{}, r.wrap("count", err)
	}

	items := []T{}
	if int64(q.Offset()) < total {
		err := base.Session(&gorm.Session{}).
			Order("created_at ASC, id ASC").
			Offset(q.Offset()).
			Limit(q.PageSize).
			Find(&items).Error
		if err != nil {
			return Page[T]{}, r.wrap("list", err)
		}
	}

	return Page[T]{Items: items, TotalCount: total, Query: q}, nil
}

func (r *Repository[T]) wrap(op string, err error) error {
	if isUniqueViolation(err) {
		return apperr.Conflict("%s already exists", r.name)
	}
	if cerr := constraintError(op, r.name, err); cerr != nil {
		return cerr
	}
	return fmt.Errorf("failed to %s %s: %w", op, r.name, err)
}
