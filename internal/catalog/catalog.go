// Package catalog holds the single source of truth for database and table
// metadata (§4.3): the self-describing system tables, idempotent bootstrap,
// and the DDL operations (create/drop database, create/drop/compact table)
// that mutate them in lockstep with the storage layer.
package catalog

import (
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"

	"incresql/internal/storage"
	"incresql/internal/types"
)

// System table IDs; fixed and self-describing (§4.3, §5 GLOSSARY).
const (
	PrefixTablesID storage.TableID = 0
	DatabasesID    storage.TableID = 2
	TablesID       storage.TableID = 4
	ViewsID        storage.TableID = 6
	FunctionsID    storage.TableID = 8
	SchemataID     storage.TableID = 10
	KeyColumnsID   storage.TableID = 12

	firstUserTableID storage.TableID = 14
)

var ErrDatabaseAlreadyExists = errors.New("catalog: database already exists")
var ErrDatabaseNotFound = errors.New("catalog: database not found")
var ErrDatabaseNotEmpty = errors.New("catalog: database not empty")
var ErrTableAlreadyExists = errors.New("catalog: table already exists")
var ErrTableNotFound = errors.New("catalog: table not found")
var ErrViewAlreadyExists = errors.New("catalog: view already exists")
var ErrViewNotFound = errors.New("catalog: view not found")

// ColumnDef names one column of a table.
type ColumnDef struct {
	Name string         `json:"name"`
	Type types.DataType `json:"type"`
}

// PKSort records, for each primary-key column, whether its sort order is
// descending (§3: "per-pk-column sort order (asc/desc)").
type PKSort struct {
	PKLen int    `json:"pk_len"`
	Desc  []bool `json:"desc"`
}

// TableMeta is the catalog's in-memory view of one table's definition.
type TableMeta struct {
	DatabaseName string
	Name         string
	TableID      storage.TableID
	Columns      []ColumnDef
	PKLen        int
	PKDesc       []bool
	System       bool
	Comment      string
}

// View is a named, re-plannable SQL query substituted inline at resolution
// time (§4.7 step 2: "for views, recursively re-plan the view's SQL").
type View struct {
	DatabaseName string
	Name         string
	Query        string
}

// Catalog is the process-wide, read-write-locked store of schema metadata
// (§5: "the catalog (behind a read-write lock)"). It mirrors its state into
// the system tables on every mutation so a query against `incresql.tables`
// reflects the live catalog.
type Catalog struct {
	mu sync.RWMutex

	store *storage.Store

	databases map[string]bool
	tables    map[string]*TableMeta // key: database+"."+table
	views     map[string]*View
	nextID    storage.TableID
}

// Open wires a Catalog to store and bootstraps the system tables and
// default databases if this is a fresh store (§4.3).
func Open(store *storage.Store) (*Catalog, error) {
	c := &Catalog{
		store:     store,
		databases: map[string]bool{},
		tables:    map[string]*TableMeta{},
		views:     map[string]*View{},
		nextID:    firstUserTableID,
	}
	if err := c.bootstrap(); err != nil {
		return nil, err
	}
	return c, nil
}

func tableKey(db, name string) string { return db + "." + name }

// bootstrap writes the seven self-describing system tables and the
// `incresql` and `default` databases, ordered so prefix_tables contains its
// own metadata entry. Idempotent: checks for the self-entry first (§4.3).
func (c *Catalog) bootstrap() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	already, err := c.hasSelfEntryLocked()
	if err != nil {
		return err
	}
	if already {
		return c.reloadLocked()
	}

	prefixTablesMeta := &TableMeta{DatabaseName: "incresql", Name: "prefix_tables", TableID: PrefixTablesID, System: true,
		Columns: []ColumnDef{{"table_id", types.BigInt}, {"column_len", types.Integer}, {"pk_sort", types.JSON}},
		PKLen:   1, PKDesc: []bool{false}}
	databasesMeta := &TableMeta{DatabaseName: "incresql", Name: "databases", TableID: DatabasesID, System: true,
		Columns: []ColumnDef{{"name", types.Text}}, PKLen: 1, PKDesc: []bool{false}}
	tablesMeta := &TableMeta{DatabaseName: "incresql", Name: "tables", TableID: TablesID, System: true,
		Columns: []ColumnDef{{"database_name", types.Text}, {"name", types.Text}, {"table_id", types.BigInt}, {"columns", types.JSON}, {"system", types.Boolean}},
		PKLen:   2, PKDesc: []bool{false, false}}
	viewsMeta := &TableMeta{DatabaseName: "incresql", Name: "views", TableID: ViewsID, System: true,
		Columns: []ColumnDef{{"database_name", types.Text}, {"name", types.Text}, {"query", types.Text}},
		PKLen:   2, PKDesc: []bool{false, false}}
	functionsMeta := &TableMeta{DatabaseName: "incresql", Name: "functions", TableID: FunctionsID, System: true,
		Columns: []ColumnDef{{"name", types.Text}, {"args", types.JSON}, {"ret", types.Text}, {"kind", types.Text}},
		PKLen:   1, PKDesc: []bool{false}}
	schemataMeta := &TableMeta{DatabaseName: "incresql", Name: "schemata", TableID: SchemataID, System: true,
		Columns: []ColumnDef{{"catalog_name", types.Text}, {"schema_name", types.Text}}, PKLen: 1, PKDesc: []bool{false}}
	keyColumnsMeta := &TableMeta{DatabaseName: "incresql", Name: "key_column_usage", TableID: KeyColumnsID, System: true,
		Columns: []ColumnDef{{"table_id", types.BigInt}, {"column_name", types.Text}, {"ordinal_position", types.Integer}},
		PKLen:   2, PKDesc: []bool{false, false}}

	systemTables := []*TableMeta{prefixTablesMeta, databasesMeta, tablesMeta, viewsMeta, functionsMeta, schemataMeta, keyColumnsMeta}

	ts := storage.Timestamp(1)
	for _, tm := range systemTables {
		if err := c.writePrefixAndTablesRowLocked(ts, tm); err != nil {
			return err
		}
		c.tables[tableKey(tm.DatabaseName, tm.Name)] = tm
	}

	for _, db := range []string{"incresql", "default"} {
		if err := c.writeDatabaseRowLocked(ts, db); err != nil {
			return err
		}
		c.databases[db] = true
	}

	return nil
}

// hasSelfEntryLocked reports whether prefix_tables already carries its own
// metadata row, the idempotency check §4.3 specifies.
func (c *Catalog) hasSelfEntryLocked() (bool, error) {
	table := c.store.Table(PrefixTablesID)
	pk := encodePKInt64(int64(PrefixTablesID))
	_, found, err := table.PointLookup(pk, storage.MaxTimestamp)
	if err != nil {
		return false, errors.Wrap(err, "catalog: bootstrap self-check")
	}
	return found, nil
}

// reloadLocked re-populates the in-memory maps from the system tables on an
// already-bootstrapped store (process restart).
func (c *Catalog) reloadLocked() error {
	maxID := firstUserTableID
	err := c.store.Table(TablesID).Scan(storage.MaxTimestamp, func(row storage.Row) (bool, error) {
		tm, err := decodeTablesRow(row)
		if err != nil {
			return false, err
		}
		if err := c.fillPKSortLocked(tm); err != nil {
			return false, err
		}
		c.tables[tableKey(tm.DatabaseName, tm.Name)] = tm
		c.databases[tm.DatabaseName] = true
		if !tm.System && tm.TableID+2 > maxID {
			maxID = tm.TableID + 2
		}
		return true, nil
	})
	if err != nil {
		return errors.Wrap(err, "catalog: reload tables")
	}
	err = c.store.Table(DatabasesID).Scan(storage.MaxTimestamp, func(row storage.Row) (bool, error) {
		name, err := decodeDatabasesRow(row)
		if err != nil {
			return false, err
		}
		c.databases[name] = true
		return true, nil
	})
	if err != nil {
		return errors.Wrap(err, "catalog: reload databases")
	}
	err = c.store.Table(ViewsID).Scan(storage.MaxTimestamp, func(row storage.Row) (bool, error) {
		v, err := decodeViewsRow(row)
		if err != nil {
			return false, err
		}
		c.views[tableKey(v.DatabaseName, v.Name)] = v
		return true, nil
	})
	if err != nil {
		return errors.Wrap(err, "catalog: reload views")
	}
	c.nextID = maxID
	return nil
}

// CreateDatabase inserts a row into `databases`; fails with
// ErrDatabaseAlreadyExists if present (§4.3).
func (c *Catalog) CreateDatabase(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.databases[name] {
		return errors.Wrapf(ErrDatabaseAlreadyExists, "database %q", name)
	}
	if err := c.writeDatabaseRowLocked(storage.Timestamp(nowMillis()), name); err != nil {
		return err
	}
	c.databases[name] = true
	return nil
}

// DropDatabase fails with ErrDatabaseNotEmpty if any table still references
// it (§4.3).
func (c *Catalog) DropDatabase(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.databases[name] {
		return errors.Wrapf(ErrDatabaseNotFound, "database %q", name)
	}
	for _, tm := range c.tables {
		if tm.DatabaseName == name {
			return errors.Wrapf(ErrDatabaseNotEmpty, "database %q", name)
		}
	}
	ts := storage.Timestamp(nowMillis())
	wb := c.store.Table(DatabasesID).NewWriteBatch(ts)
	pk := codecText(name)
	if err := wb.Write(pk, nil, -1); err != nil {
		return errors.Wrap(err, "catalog: drop database")
	}
	if err := wb.Commit(); err != nil {
		return errors.Wrap(err, "catalog: drop database commit")
	}
	delete(c.databases, name)
	return nil
}

// CreateTable allocates a fresh even table_id and writes rows to `tables`
// and `prefix_tables` in one batch (§4.3).
func (c *Catalog) CreateTable(db, name string, columns []ColumnDef, pkLen int, pkDesc []bool) (*TableMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.databases[db] {
		return nil, errors.Wrapf(ErrDatabaseNotFound, "database %q", db)
	}
	key := tableKey(db, name)
	if _, exists := c.tables[key]; exists {
		return nil, errors.Wrapf(ErrTableAlreadyExists, "table %q.%q", db, name)
	}

	id := c.nextID
	c.nextID += 2

	tm := &TableMeta{DatabaseName: db, Name: name, TableID: id, Columns: columns, PKLen: pkLen, PKDesc: pkDesc}
	ts := storage.Timestamp(nowMillis())
	if err := c.writePrefixAndTablesRowLocked(ts, tm); err != nil {
		return nil, err
	}
	c.tables[key] = tm
	return tm, nil
}

// DropTable removes rows from `tables`, `prefix_tables`, and deletes the
// [id, id+1) key range (§4.3).
func (c *Catalog) DropTable(db, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := tableKey(db, name)
	tm, ok := c.tables[key]
	if !ok {
		return errors.Wrapf(ErrTableNotFound, "table %q.%q", db, name)
	}

	ts := storage.Timestamp(nowMillis())
	tablesWB := c.store.Table(TablesID).NewWriteBatch(ts)
	if err := tablesWB.Write(tablesRowPK(db, name), nil, -1); err != nil {
		return errors.Wrap(err, "catalog: drop table rows")
	}
	if err := tablesWB.Commit(); err != nil {
		return errors.Wrap(err, "catalog: drop table commit")
	}

	prefixWB := c.store.Table(PrefixTablesID).NewWriteBatch(ts)
	if err := prefixWB.Write(encodePKInt64(int64(tm.TableID)), nil, -1); err != nil {
		return errors.Wrap(err, "catalog: drop prefix_tables row")
	}
	if err := prefixWB.Commit(); err != nil {
		return errors.Wrap(err, "catalog: drop prefix_tables commit")
	}

	start, end := storage.TableKeyRange(tm.TableID)
	if err := c.store.DeleteRange(start, end); err != nil {
		return errors.Wrap(err, "catalog: drop table key range")
	}

	delete(c.tables, key)
	return nil
}

// CompactTable triggers a full compaction over the table's key range
// (§4.3).
func (c *Catalog) CompactTable(db, name string) error {
	c.mu.RLock()
	tm, ok := c.tables[tableKey(db, name)]
	c.mu.RUnlock()
	if !ok {
		return errors.Wrapf(ErrTableNotFound, "table %q.%q", db, name)
	}
	start, end := storage.TableKeyRange(tm.TableID)
	return c.store.CompactRange(start, end)
}

// CreateView stores a view's defining query text under (db, name), so the
// adapter can later recursively re-plan it in place of a bare table
// reference (§4.7 phase 1 step 2).
func (c *Catalog) CreateView(db, name, query string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.databases[db] {
		return errors.Wrapf(ErrDatabaseNotFound, "database %q", db)
	}
	key := tableKey(db, name)
	if _, exists := c.views[key]; exists {
		return errors.Wrapf(ErrViewAlreadyExists, "view %q.%q", db, name)
	}

	ts := storage.Timestamp(nowMillis())
	wb := c.store.Table(ViewsID).NewWriteBatch(ts)
	if err := wb.Write(viewsRowPK(db, name), encodeViewRest(query), 1); err != nil {
		return errors.Wrap(err, "catalog: write views row")
	}
	if err := wb.Commit(); err != nil {
		return errors.Wrap(err, "catalog: commit views row")
	}

	c.views[key] = &View{DatabaseName: db, Name: name, Query: query}
	return nil
}

// DropView removes a previously created view.
func (c *Catalog) DropView(db, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := tableKey(db, name)
	if _, ok := c.views[key]; !ok {
		return errors.Wrapf(ErrViewNotFound, "view %q.%q", db, name)
	}

	ts := storage.Timestamp(nowMillis())
	wb := c.store.Table(ViewsID).NewWriteBatch(ts)
	if err := wb.Write(viewsRowPK(db, name), nil, -1); err != nil {
		return errors.Wrap(err, "catalog: drop views row")
	}
	if err := wb.Commit(); err != nil {
		return errors.Wrap(err, "catalog: commit drop views row")
	}

	delete(c.views, key)
	return nil
}

// LookupView resolves (db, name) to its stored query, or reports not-found.
func (c *Catalog) LookupView(db, name string) (*View, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.views[tableKey(db, name)]
	return v, ok
}

// ListViews returns every view registered for database db.
func (c *Catalog) ListViews(db string) []*View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*View
	for _, v := range c.views {
		if v.DatabaseName == db {
			out = append(out, v)
		}
	}
	return out
}

// LookupTable resolves (db, name) to its metadata, or reports not-found.
func (c *Catalog) LookupTable(db, name string) (*TableMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tm, ok := c.tables[tableKey(db, name)]
	return tm, ok
}

// ListTables returns every table registered for database db.
func (c *Catalog) ListTables(db string) []*TableMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*TableMeta
	for _, tm := range c.tables {
		if tm.DatabaseName == db {
			out = append(out, tm)
		}
	}
	return out
}

// ListDatabases returns every known database name, backing `SHOW DATABASES`.
func (c *Catalog) ListDatabases() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.databases))
	for name := range c.databases {
		out = append(out, name)
	}
	return out
}

// DatabaseExists reports whether db is a known database.
func (c *Catalog) DatabaseExists(db string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.databases[db]
}

func (c *Catalog) writeDatabaseRowLocked(ts storage.Timestamp, name string) error {
	wb := c.store.Table(DatabasesID).NewWriteBatch(ts)
	if err := wb.Write(codecText(name), nil, 1); err != nil {
		return errors.Wrap(err, "catalog: write databases row")
	}
	return errors.Wrap(wb.Commit(), "catalog: commit databases row")
}

func (c *Catalog) writePrefixAndTablesRowLocked(ts storage.Timestamp, tm *TableMeta) error {
	colsJSON, err := json.Marshal(tm.Columns)
	if err != nil {
		return errors.Wrap(err, "catalog: marshal columns")
	}
	pkSort := PKSort{PKLen: tm.PKLen, Desc: tm.PKDesc}
	pkSortJSON, err := json.Marshal(pkSort)
	if err != nil {
		return errors.Wrap(err, "catalog: marshal pk_sort")
	}

	prefixWB := c.store.Table(PrefixTablesID).NewWriteBatch(ts)
	prefixRest := encodeRestInt32AndJSON(int32(len(tm.Columns)), pkSortJSON)
	if err := prefixWB.Write(encodePKInt64(int64(tm.TableID)), prefixRest, 1); err != nil {
		return errors.Wrap(err, "catalog: write prefix_tables row")
	}
	if err := prefixWB.Commit(); err != nil {
		return errors.Wrap(err, "catalog: commit prefix_tables row")
	}

	tablesWB := c.store.Table(TablesID).NewWriteBatch(ts)
	tablesRest := encodeTablesRest(int64(tm.TableID), colsJSON, tm.System)
	if err := tablesWB.Write(tablesRowPK(tm.DatabaseName, tm.Name), tablesRest, 1); err != nil {
		return errors.Wrap(err, "catalog: write tables row")
	}
	return errors.Wrap(tablesWB.Commit(), "catalog: commit tables row")
}
