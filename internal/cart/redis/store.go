// Package redis keeps built carts in Redis, one cart per user and event,
// with a TTL so abandoned carts expire on their own. The cart is session
// state, not a reservation; nothing here touches inventory.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-booking/internal/models"
)

type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewStore(client *redis.Client) *Store {
	return &Store{
		Client: client,
		TTL:    cartTTLFromEnv(),
	}
}

// cartTTLFromEnv returns the cart expiry from CART_TTL_MINUTES, defaulting
// to 15 minutes.
func cartTTLFromEnv() time.Duration {
	defaultTTL := 15 * time.Minute

	ttlStr := os.Getenv("CART_TTL_MINUTES")
	if ttlStr == "" {
		return defaultTTL
	}

	ttlMin, err := strconv.Atoi(ttlStr)
	if err != nil || ttlMin <= 0 {
		return defaultTTL
	}
	return time.Duration(ttlMin) * time.Minute
}

func cartKey(userID, eventID string) string {
	return fmt.Sprintf("cart:%s:%s", userID, eventID)
}

// Save stores the cart under its owner's key, replacing any previous cart
// for the same event and resetting the TTL.
func (s *Store) Save(ctx context.Context, userID string, c *models.Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return &models.PersistenceError{Op: "encode cart", Err: err}
	}

	if err := s.Client.Set(ctx, cartKey(userID, c.EventID), payload, s.TTL).Err(); err != nil {
		return &models.PersistenceError{Op: "save cart", Err: err}
	}
	return nil
}

// Load returns the user's cart for the event, or a not-found error when none
// exists or it has expired.
func (s *Store) Load(ctx context.Context, userID, eventID string) (*models.Cart, error) {
	payload, err := s.Client.Get(ctx, cartKey(userID, eventID)).Result()
	if err == redis.Nil {
		return nil, &models.NotFoundError{Kind: "cart", ID: eventID}
	}
	if err != nil {
		return nil, &models.PersistenceError{Op: "load cart", Err: err}
	}

	var c models.Cart
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return nil, &models.PersistenceError{Op: "decode cart", Err: err}
	}
	return &c, nil
}

// Clear deletes the cart. Deleting a missing cart is not an error.
func (s *Store) Clear(ctx context.Context, userID, eventID string) error {
	if err := s.Client.Del(ctx, cartKey(userID, eventID)).Err(); err != nil {
		return &models.PersistenceError{Op: "clear cart", Err: err}
	}
	return nil
}
