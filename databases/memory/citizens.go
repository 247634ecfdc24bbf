package memory

import (
	"context"
	"sync"
	"time"

	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

// Citizens is a map backed dispatch.Citizens
type Citizens struct {
	mu       sync.RWMutex
	citizens map[string]models.Citizen
}

// NewCitizens returns an empty Citizens
func NewCitizens() *Citizens {
	return &Citizens{citizens: make(map[string]models.Citizen)}
}

// Put inserts or replaces a citizen
func (c *Citizens) Put(citizen models.Citizen) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.citizens[citizen.Phone] = citizen
}

// GetByPhone returns nil when the citizen does not exist
func (c *Citizens) GetByPhone(ctx context.Context, phone string) (*models.Citizen, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	citizen, ok := c.citizens[phone]
	if !ok {
		return nil, nil
	}
	return &citizen, nil
}

// UpsertVerified marks the phone verified, creating the citizen when unknown
func (c *Citizens) UpsertVerified(ctx context.Context, phone string) (*models.Citizen, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	citizen, ok := c.citizens[phone]
	if !ok {
		citizen = models.Citizen{Phone: phone, CreatedAt: now}
	}
	citizen.PhoneVerified = true
	citizen.UpdatedAt = now
	c.citizens[phone] = citizen
	return &citizen, nil
}

// UpdateProfile replaces the profile fields of an existing citizen
func (c *Citizens) UpdateProfile(ctx context.Context, in *models.Citizen) (*models.Citizen, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.citizens[in.Phone]
	if !ok {
		return nil, dispatch.ErrNotFound
	}
	updated := *in
	updated.PhoneVerified = existing.PhoneVerified
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	c.citizens[in.Phone] = updated
	return &updated, nil
}
