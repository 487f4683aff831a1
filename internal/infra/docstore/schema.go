package docstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/jackc/pgx/v5/pgxpool"

	"library-lending-api/internal/pkg/errs"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
	id            text PRIMARY KEY,
	collection    text NOT NULL,
	data          jsonb NOT NULL,
	version       bigint NOT NULL DEFAULT 1,
	change_vector text NOT NULL,
	refresh_at    timestamptz
);

CREATE INDEX IF NOT EXISTS documents_collection_idx
	ON documents (collection);
CREATE INDEX IF NOT EXISTS documents_refresh_at_idx
	ON documents (refresh_at) WHERE refresh_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS documents_data_gin_idx
	ON documents USING gin (data jsonb_path_ops);

CREATE TABLE IF NOT EXISTS collection_versions (
	collection text PRIMARY KEY,
	version    bigint NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS store_identity (
	singleton bool PRIMARY KEY DEFAULT true CHECK (singleton),
	node_id   text NOT NULL
);

CREATE TABLE IF NOT EXISTS timeout_queue (
	id          bigserial PRIMARY KEY,
	payload     jsonb NOT NULL,
	enqueued_at timestamptz NOT NULL DEFAULT now(),
	attempts    int NOT NULL DEFAULT 0,
	dead        bool NOT NULL DEFAULT false
);
`

// EnsureSchema creates the document tables if needed and returns the store's
// stable node id. The node id is minted once per database so change vectors
// stay comparable across restarts.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) (string, error) {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return "", errs.Wrap(err, "failed to create docstore schema")
	}

	candidate := newNodeID()
	_, err := pool.Exec(ctx,
		`INSERT INTO store_identity (node_id) VALUES ($1) ON CONFLICT DO NOTHING`,
		candidate)
	if err != nil {
		return "", errs.Wrap(err, "failed to seed store identity")
	}

	var nodeID string
	err = pool.QueryRow(ctx, `SELECT node_id FROM store_identity`).Scan(&nodeID)
	if err != nil {
		return "", errs.Wrap(err, "failed to read store identity")
	}
	return nodeID, nil
}

func newNodeID() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "A0A0A0A0"
	}
	return hex.EncodeToString(buf[:])
}
