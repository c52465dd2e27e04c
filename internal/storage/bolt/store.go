// Package bolt implements PortfolioStore on a single bbolt file.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/interfaces"
	"github.com/ivstorm/folio/internal/models"
)

// Compile-time interface check
var _ interfaces.PortfolioStore = (*Store)(nil)

// ErrNotFound is returned when the named portfolio does not exist.
var ErrNotFound = errors.New("portfolio not found")

var bucketPortfolios = []byte("portfolios")

// Store keeps named portfolios as JSON values keyed by name.
type Store struct {
	db     *bolt.DB
	logger *common.Logger
}

// NewStore opens (creating if needed) the database file at path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage path %s: %w", path, err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPortfolios)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare storage: %w", err)
	}

	logger.Info().Str("path", path).Msg("Portfolio store opened")
	return &Store{db: db, logger: logger}, nil
}

// Save stores a portfolio under its name, overwriting any existing one.
// The stored creation time survives overwrites.
func (s *Store) Save(_ context.Context, portfolio *models.StoredPortfolio) error {
	if portfolio.Name == "" {
		return fmt.Errorf("portfolio name is required")
	}
	if portfolio.ID == "" {
		portfolio.ID = uuid.NewString()
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketPortfolios)

		if raw := bucket.Get([]byte(portfolio.Name)); raw != nil {
			var existing models.StoredPortfolio
			if err := json.Unmarshal(raw, &existing); err == nil {
				portfolio.ID = existing.ID
				portfolio.CreatedAt = existing.CreatedAt
			}
		}
		if portfolio.CreatedAt.IsZero() {
			portfolio.CreatedAt = time.Now()
		}

		data, err := json.Marshal(portfolio)
		if err != nil {
			return fmt.Errorf("failed to encode portfolio '%s': %w", portfolio.Name, err)
		}
		return bucket.Put([]byte(portfolio.Name), data)
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Str("name", portfolio.Name).
		Int("deals", len(portfolio.Deals)).
		Int("operations", len(portfolio.Operations)).
		Int("payments", len(portfolio.Payments)).
		Msg("Portfolio saved")
	return nil
}

// Get loads the named portfolio.
func (s *Store) Get(_ context.Context, name string) (*models.StoredPortfolio, error) {
	var portfolio models.StoredPortfolio

	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketPortfolios).Get([]byte(name))
		if raw == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(raw, &portfolio); err != nil {
			return fmt.Errorf("failed to decode portfolio '%s': %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &portfolio, nil
}

// List returns the stored portfolio names in key order.
func (s *Store) List(_ context.Context) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPortfolios).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Delete removes the named portfolio. Deleting a missing name is an error.
func (s *Store) Delete(_ context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketPortfolios)
		if bucket.Get([]byte(name)) == nil {
			return ErrNotFound
		}
		return bucket.Delete([]byte(name))
	})
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}
