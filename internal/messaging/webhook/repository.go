// Package webhook receives BSP delivery callbacks. It authenticates the
// BSP via API key and parses the wire payload into inbound events at the
// boundary; everything past the handler speaks domain types.
package webhook

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"pedidos_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// APIKey represents a webhook API key stored in the database.
// Only the sha256 hash of the key is persisted.
type APIKey struct {
	ID        uuid.UUID
	Name      string
	KeyHash   string
	KeyPrefix string
	IsActive  bool
	CreatedAt time.Time
}

// KeyRepository provides data access for webhook API keys.
type KeyRepository struct {
	pool *pgxpool.Pool
}

// NewKeyRepository creates a new webhook key repository.
func NewKeyRepository(pool *pgxpool.Pool) *KeyRepository {
	return &KeyRepository{pool: pool}
}

// GenerateAPIKey creates a new random API key and returns the plaintext key
// and its hash. The plaintext is returned only once.
func GenerateAPIKey() (plaintext string, hash string, prefix string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", "", err
	}
	plaintext = "whk_" + hex.EncodeToString(bytes)
	hash = HashKey(plaintext)
	prefix = plaintext[:12]
	return plaintext, hash, prefix, nil
}

// HashKey hashes a plaintext API key for lookup.
func HashKey(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

// Create stores a new API key record.
func (r *KeyRepository) Create(ctx context.Context, name, keyHash, keyPrefix string) (APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_api_keys (id, name, key_hash, key_prefix)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, key_hash, key_prefix, is_active, created_at
	`, uuid.New(), name, keyHash, keyPrefix).Scan(
		&key.ID, &key.Name, &key.KeyHash, &key.KeyPrefix, &key.IsActive, &key.CreatedAt,
	)
	if err != nil {
		return APIKey{}, apperr.Wrap(apperr.KindInternal, "create webhook api key", err)
	}
	return key, nil
}

// GetByHash retrieves an active API key by its hash.
func (r *KeyRepository) GetByHash(ctx context.Context, keyHash string) (APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, key_hash, key_prefix, is_active, created_at
		FROM webhook_api_keys
		WHERE key_hash = $1 AND is_active = true
	`, keyHash).Scan(
		&key.ID, &key.Name, &key.KeyHash, &key.KeyPrefix, &key.IsActive, &key.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, apperr.Unauthorized("webhook api key not found")
	}
	if err != nil {
		return APIKey{}, apperr.Wrap(apperr.KindInternal, "get webhook api key", err)
	}
	return key, nil
}

// Revoke deactivates an API key.
func (r *KeyRepository) Revoke(ctx context.Context, keyID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_api_keys SET is_active = false
		WHERE id = $1
	`, keyID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "revoke webhook api key", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("webhook api key not found")
	}
	return nil
}
