// Package boltpersistence implements the persistence interfaces on top of a
// BoltDB database.
package boltpersistence

import (
	"context"
	"os"
	"sync"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/internal/x/bboltx"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"go.etcd.io/bbolt"
)

// Provider is an implementation of persistence.Provider for BoltDB that uses
// an existing open database.
type Provider struct {
	provider

	// DB is the BoltDB database to use.
	DB *bbolt.DB
}

// Open returns the data-store.
func (p *Provider) Open(ctx context.Context) (persistence.DataStore, error) {
	return p.open(
		ctx,
		func() (*bbolt.DB, error) {
			return p.DB, nil
		},
		func(*bbolt.DB) error {
			// Don't actually close the database, since we didn't open it.
			return nil
		},
	)
}

// FileProvider is an implementation of persistence.Provider for BoltDB that
// opens a BoltDB database file.
type FileProvider struct {
	provider

	// Path is the path to the BoltDB database to open or create.
	Path string

	// Mode is the file mode for the created file.
	// If it is zero, 0600 (owner read/write only) is used.
	Mode os.FileMode

	// Options is the BoltDB options for the database.
	// If it is nil, bbolt.DefaultOptions is used.
	Options *bbolt.Options
}

// Open returns the data-store.
//
// The database file is opened when the first data-store is opened, and closed
// again when the last remaining data-store is closed.
func (p *FileProvider) Open(ctx context.Context) (persistence.DataStore, error) {
	return p.open(
		ctx,
		func() (*bbolt.DB, error) {
			return bboltx.Open(ctx, p.Path, p.Mode, p.Options)
		},
		func(db *bbolt.DB) error {
			return db.Close()
		},
	)
}

// provider is the common implementation of Provider and FileProvider.
type provider struct {
	m     sync.Mutex
	db    *bbolt.DB
	close func(db *bbolt.DB) error
	refs  int
}

func (p *provider) open(
	_ context.Context,
	open func() (*bbolt.DB, error),
	close func(db *bbolt.DB) error,
) (persistence.DataStore, error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.db == nil {
		db, err := open()
		if err != nil {
			return nil, err
		}

		p.db = db
		p.close = close
	}

	p.refs++

	return &dataStore{
		db:      p.db,
		release: p.release,
	}, nil
}

// release marks a previously-opened data-store as closed, closing the
// database itself once no data-stores remain open.
func (p *provider) release() error {
	p.m.Lock()
	defer p.m.Unlock()

	p.refs--

	if p.refs > 0 {
		return nil
	}

	db := p.db
	close := p.close

	p.db = nil
	p.close = nil

	return close(db)
}
