package urlmap

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/ValentinKolb/dCRUD/lib/mapper"
	"github.com/ValentinKolb/dCRUD/lib/mapper/sqlmapper"
)

// UrlMap maps a short key to a target url.
type UrlMap struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (m UrlMap) String() string {
	return fmt.Sprintf("%s -> %s", m.Key, m.URL)
}

// Validate checks that the key is usable and the url is absolute.
func (m UrlMap) Validate() error {
	if strings.TrimSpace(m.Key) == "" {
		return fmt.Errorf("url map: empty key")
	}
	if len(m.Key) > maxKeyLen {
		return fmt.Errorf("url map: key longer than %d bytes", maxKeyLen)
	}
	u, err := url.Parse(m.URL)
	if err != nil {
		return fmt.Errorf("url map %q: %w", m.Key, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("url map %q: url %q is not absolute", m.Key, m.URL)
	}
	return nil
}

const (
	// Table is the name of the table holding the url maps
	Table = "url_maps"

	maxKeyLen = 255

	schema = `CREATE TABLE IF NOT EXISTS url_maps (
	map_key VARCHAR(255) NOT NULL PRIMARY KEY,
	url     TEXT         NOT NULL
)`
)

// Codec implements sqlmapper.ICodec for UrlMap.
type Codec struct{}

func (Codec) Table() string     { return Table }
func (Codec) Columns() []string { return []string{"map_key", "url"} }
func (Codec) Key(m UrlMap) string {
	return m.Key
}
func (Codec) Values(m UrlMap) []any {
	return []any{m.Key, m.URL}
}
func (Codec) Scan(row sqlmapper.Scanner) (UrlMap, error) {
	var m UrlMap
	err := row.Scan(&m.Key, &m.URL)
	return m, err
}

// EnsureSchema creates the url_maps table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return mapper.WrapError(mapper.RetCBackendError, "create url_maps table", err)
	}
	return nil
}

// NewMapper returns the sql mapper for url maps.
// Create and Update reject invalid entities with a BackendError before touching the database.
func NewMapper() mapper.IMapper[*sql.Conn, string, UrlMap] {
	return &validating{IMapper: sqlmapper.New[string, UrlMap](Codec{})}
}

type validating struct {
	mapper.IMapper[*sql.Conn, string, UrlMap]
}

func (v *validating) Create(ctx context.Context, conn *sql.Conn, m UrlMap) (UrlMap, error) {
	if err := m.Validate(); err != nil {
		return UrlMap{}, mapper.WrapError(mapper.RetCBackendError, "create", err)
	}
	return v.IMapper.Create(ctx, conn, m)
}

func (v *validating) Update(ctx context.Context, conn *sql.Conn, m UrlMap) (UrlMap, error) {
	if err := m.Validate(); err != nil {
		return UrlMap{}, mapper.WrapError(mapper.RetCBackendError, "update", err)
	}
	return v.IMapper.Update(ctx, conn, m)
}
