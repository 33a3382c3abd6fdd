package requests

import (
	"context"
	"errors"
	"math/rand"

	"github.com/sendcrew/reqbot/src/shared/types"
	"gorm.io/gorm"
)

// pendingScope narrows a query to pending requests: completed, with no
// resolution verdict on record yet. Limbo rows never match because their
// requested_at is still null.
func (c *Controller) pendingScope(db *gorm.DB) *gorm.DB {
	return db.Model(&types.Request{}).
		Where("requested_at IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM request_opinions WHERE request_opinions.request_id = requests.id AND request_opinions.is_resolution = ?)", true)
}

func firstRequest(query *gorm.DB) (*types.Request, error) {
	var row types.Request
	err := query.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetRequestByID returns the request, or nil when the id is unknown.
func (c *Controller) GetRequestByID(requestID uint64) (*types.Request, error) {
	db, err := c.provider.DB()
	if err != nil {
		return nil, err
	}
	return firstRequest(db.Where("id = ?", requestID))
}

// GetLastCompleteRequest returns the most recently completed request for
// a level, resolved or not.
func (c *Controller) GetLastCompleteRequest(levelID uint64) (*types.Request, error) {
	db, err := c.provider.DB()
	if err != nil {
		return nil, err
	}
	return firstRequest(db.Where("level_id = ? AND requested_at IS NOT NULL", levelID).Order("requested_at DESC"))
}

// GetLatestPendingRequest returns the newest pending request for a level.
func (c *Controller) GetLatestPendingRequest(levelID uint64) (*types.Request, error) {
	db, err := c.provider.DB()
	if err != nil {
		return nil, err
	}
	return firstRequest(c.pendingScope(db).Where("level_id = ?", levelID).Order("requested_at DESC"))
}

// GetOldestIgnoredRequest returns the longest-waiting completed request
// nobody has voted on yet.
func (c *Controller) GetOldestIgnoredRequest() (*types.Request, error) {
	db, err := c.provider.DB()
	if err != nil {
		return nil, err
	}
	return firstRequest(db.
		Where("requested_at IS NOT NULL AND (resolution_message_id IS NULL OR resolution_message_id = '')").
		Order("requested_at ASC"))
}

// GetOldestUnresolvedRequest returns the longest-waiting request that has
// votes but no resolution yet.
func (c *Controller) GetOldestUnresolvedRequest() (*types.Request, error) {
	db, err := c.provider.DB()
	if err != nil {
		return nil, err
	}
	return firstRequest(c.pendingScope(db).
		Where("resolution_message_id IS NOT NULL AND resolution_message_id != ''").
		Order("requested_at ASC"))
}

// GetPendingRequest returns either the oldest pending request or a
// uniformly random one.
func (c *Controller) GetPendingRequest(oldest bool) (*types.Request, error) {
	db, err := c.provider.DB()
	if err != nil {
		return nil, err
	}

	if oldest {
		return firstRequest(c.pendingScope(db).Order("requested_at ASC"))
	}

	var total int64
	if err := c.pendingScope(db).Count(&total).Error; err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}
	return firstRequest(c.pendingScope(db).Order("id ASC").Offset(rand.Intn(int(total))))
}

// ListPending pages through pending requests, oldest first.
func (c *Controller) ListPending(limit, offset int) ([]types.Request, error) {
	db, err := c.provider.DB()
	if err != nil {
		return nil, err
	}

	var rows []types.Request
	err = c.pendingScope(db).Order("requested_at ASC, id ASC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

// CountPending reports the live pending count; shaped to serve as the
// admission controller's counter.
func (c *Controller) CountPending(_ context.Context) (int64, error) {
	db, err := c.provider.DB()
	if err != nil {
		return 0, err
	}

	var total int64
	err = c.pendingScope(db).Count(&total).Error
	return total, err
}

// IsRequestUnresolved reports whether the request has no resolution
// verdict on record.
func (c *Controller) IsRequestUnresolved(requestID uint64) (bool, error) {
	db, err := c.provider.DB()
	if err != nil {
		return false, err
	}

	var count int64
	err = db.Model(&types.RequestOpinion{}).
		Where("request_id = ? AND is_resolution = ?", requestID, true).
		Count(&count).Error
	return count == 0, err
}

// GetExistingOpinion returns the reviewer's latest opinion on a request,
// optionally restricted to resolutions.
func (c *Controller) GetExistingOpinion(authorID string, requestID uint64, resolutionOnly bool) (*types.RequestOpinion, error) {
	db, err := c.provider.DB()
	if err != nil {
		return nil, err
	}

	query := db.Where("request_id = ? AND author_user_id = ?", requestID, authorID)
	if resolutionOnly {
		query = query.Where("is_resolution = ?", true)
	}

	var row types.RequestOpinion
	err = query.Order("created_at DESC, id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetExistingReview returns the reviewer's latest review of a request.
func (c *Controller) GetExistingReview(authorID string, requestID uint64) (*types.RequestReview, error) {
	db, err := c.provider.DB()
	if err != nil {
		return nil, err
	}

	var row types.RequestReview
	err = db.Where("request_id = ? AND author_user_id = ?", requestID, authorID).
		Order("created_at DESC, id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListReviews pages through one reviewer's posted reviews, newest first.
func (c *Controller) ListReviews(authorID string, limit, offset int) ([]types.RequestReview, error) {
	db, err := c.provider.DB()
	if err != nil {
		return nil, err
	}

	var rows []types.RequestReview
	err = db.Where("author_user_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	return rows, err
}
