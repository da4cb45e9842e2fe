package nodestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/wkalt/lazytree/util/log"
)

/*
sqlStore keeps node records in a single sqlite table. IDs come from an
autoincrement primary key, so sqlite guarantees they are never reused even
after the highest row is gone.
*/

////////////////////////////////////////////////////////////////////////////////

const schemaVersion = 1

type sqlStore struct {
	db    *sql.DB
	owned bool
}

// NewSQLStore returns a Store over an existing sqlite database, creating the
// nodes table if necessary. The caller retains ownership of db.
func NewSQLStore(ctx context.Context, db *sql.DB) (Store, error) {
	s := &sqlStore{db: db}
	if err := s.initialize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSQLStore opens (or creates) the sqlite database at path and returns a
// Store that closes the database when closed.
func OpenSQLStore(ctx context.Context, path string) (Store, error) {
	dsn := path + "?_journal=WAL&_foreign_keys=on&mode=rwc"
	log.Debugf(ctx, "Opening node database at %s", dsn)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database at %s: %w", path, err)
	}
	s := &sqlStore{db: db, owned: true}
	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) initialize(ctx context.Context) error {
	var maxApplied int64
	err := s.db.QueryRowContext(ctx, "select max(version) from schema_migrations").Scan(&maxApplied)
	if err == nil && maxApplied >= schemaVersion {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `
	create table if not exists nodes (
		id integer primary key autoincrement,
		name text not null,
		parent_id integer references nodes(id) on delete cascade,
		payload blob not null
	);

	create index if not exists nodes_parent_id_idx on nodes(parent_id);

	create table if not exists schema_migrations (
		version bigint not null,
		timestamp text not null default current_timestamp
	);

	insert into schema_migrations(version) values (1);
	`); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Insert a node record. The parent check and the insert share a transaction.
func (s *sqlStore) Insert(ctx context.Context, name string, payload []byte, parent *NodeID) (NodeID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	var parentID sql.NullInt64
	if parent != nil {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			"select exists(select 1 from nodes where id = $1)", int64(*parent),
		).Scan(&exists); err != nil {
			return 0, fmt.Errorf("failed to check parent: %w", err)
		}
		if !exists {
			return 0, NewIntegrityError(*parent)
		}
		parentID = sql.NullInt64{Int64: int64(*parent), Valid: true}
	}
	if payload == nil {
		payload = []byte{}
	}
	result, err := tx.ExecContext(ctx, `
	insert into nodes (name, parent_id, payload) values ($1, $2, $3)`,
		name, parentID, payload,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if parent != nil && errors.As(err, &sqliteErr) &&
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return 0, NewIntegrityError(*parent)
		}
		return 0, fmt.Errorf("failed to insert node: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted ID: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert: %w", err)
	}
	return NodeID(id), nil
}

func (s *sqlStore) Get(ctx context.Context, id NodeID) (*Record, error) {
	var parentID sql.NullInt64
	record := &Record{ID: id}
	err := s.db.QueryRowContext(ctx, `
	select name, parent_id, payload from nodes where id = $1`, int64(id),
	).Scan(&record.Name, &parentID, &record.Payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
		}
		return nil, fmt.Errorf("failed to read node: %w", err)
	}
	if parentID.Valid {
		record.Parent = NodeID(parentID.Int64).Ptr()
	}
	return record, nil
}

func (s *sqlStore) ChildrenOf(ctx context.Context, parent *NodeID) ([]Record, error) {
	var rows *sql.Rows
	var err error
	if parent == nil {
		rows, err = s.db.QueryContext(ctx, `
		select id, name, parent_id, payload from nodes where parent_id is null order by id`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
		select id, name, parent_id, payload from nodes where parent_id = $1 order by id`,
			int64(*parent),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()
	records := []Record{}
	for rows.Next() {
		var record Record
		var id int64
		var parentID sql.NullInt64
		if err := rows.Scan(&id, &record.Name, &parentID, &record.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		record.ID = NodeID(id)
		if parentID.Valid {
			record.Parent = NodeID(parentID.Int64).Ptr()
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate children: %w", err)
	}
	return records, nil
}

func (s *sqlStore) Close() error {
	if !s.owned {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (s *sqlStore) String() string {
	return "sqlite"
}
