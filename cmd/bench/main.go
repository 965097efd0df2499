// Package main is a TPC-H-style comparison harness, grounded on
// original_source/benchmarking/_tpch's mysql_runner.rs (MySQL side, driven
// here over database/sql + go-sql-driver/mysql) and incresql_runner.rs
// (IncreSQL side: same schema/load/query shape, driven in-process through
// internal/runtime since the wire-protocol front-end is out of scope).
// Both runners implement the same create/load/run three-step pipeline the
// original's BenchmarkRunner trait names.
package main

import (
	"bufio"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"incresql/internal/catalog"
	"incresql/internal/executor"
	"incresql/internal/runtime"
	"incresql/internal/storage"
	"incresql/internal/types"
)

// runner is the Go analogue of the original's BenchmarkRunner trait.
type runner interface {
	CreateTables(scale int) error
	LoadTables(scale int, dataDir string) error
	RunQueries(scale int) error
	Close() error
}

var tableOrder = []string{"part", "supplier", "partsupp", "customer", "orders", "lineitem", "nation", "region"}

var tpchQueries = []struct {
	name string
	sql  string
}{
	{"Query 1", `select
    l_returnflag,
    l_linestatus,
    sum(l_quantity) as sum_qty,
    sum(l_extendedprice) as sum_base_price,
    sum(l_extendedprice*(1-l_discount)) as sum_disc_price,
    sum(l_extendedprice*(1-l_discount)*(1+l_tax)) as sum_charge,
    avg(l_quantity) as avg_qty,
    avg(l_extendedprice) as avg_price,
    avg(l_discount) as avg_disc,
    count(*) as count_order
from
    lineitem
where
    l_shipdate <= date_sub(date '1998-12-01', 90)
group by
    l_returnflag,
    l_linestatus
order by
    l_returnflag,
    l_linestatus`},
	{"Query 3", `select
  l_orderkey,
  sum(l_extendedprice*(1-l_discount)) as revenue,
  o_orderdate,
  o_shippriority
from
  customer,
  orders,
  lineitem
where
  c_mktsegment = 'BUILDING'
  and c_custkey = o_custkey
  and l_orderkey = o_orderkey
  and o_orderdate < date '1995-03-15'
  and l_shipdate > date '1995-03-15'
group by
  l_orderkey,
  o_orderdate,
  o_shippriority
order by
  revenue desc,
  o_orderdate
limit 10`},
	{"Query 5", `select
  n_name,
  sum(l_extendedprice * (1 - l_discount)) as revenue
from
  customer,
  orders,
  lineitem,
  supplier,
  nation,
  region
where
  c_custkey = o_custkey
  and l_orderkey = o_orderkey
  and l_suppkey = s_suppkey
  and c_nationkey = s_nationkey
  and s_nationkey = n_nationkey
  and n_regionkey = r_regionkey
  and r_name = 'ASIA'
  and o_orderdate >= date '1994-01-01'
  and o_orderdate < date '1995-01-01'
group by
  n_name
order by
  revenue desc`},
	{"Query 6", `select
  sum(l_extendedprice*l_discount) as revenue
from
  lineitem
where
  l_shipdate >= date '1994-01-01'
  and l_shipdate < date '1995-01-01'
  and l_discount between 0.06 - 0.01 and 0.06 + 0.01
  and l_quantity < 24`},
	{"Query 10", `select
  c_custkey,
  c_name,
  sum(l_extendedprice * (1 - l_discount)) as revenue,
  c_acctbal,
  n_name,
  c_address,
  c_phone,
  c_comment
from
  customer,
  orders,
  lineitem,
  nation
where
  c_custkey = o_custkey
  and l_orderkey = o_orderkey
  and o_orderdate >= date '1993-10-01'
  and o_orderdate < date '1994-01-01'
  and l_returnflag = 'R'
  and c_nationkey = n_nationkey
group by
  c_custkey,
  c_name,
  c_acctbal,
  c_phone,
  n_name,
  c_address,
  c_comment
order by
  revenue desc
limit 20`},
}

func main() {
	var target, dsn, dataDir, storeDir string
	var scale int
	var reset bool

	root := &cobra.Command{
		Use:   "bench",
		Short: "Run the TPC-H comparison harness against MySQL or IncreSQL",
		RunE: func(_ *cobra.Command, _ []string) error {
			var r runner
			var err error
			switch target {
			case "mysql":
				r, err = newMysqlRunner(dsn)
			case "incresql":
				r, err = newIncresqlRunner(storeDir, reset)
			default:
				return fmt.Errorf("unknown --target %q (want mysql or incresql)", target)
			}
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			if err := r.CreateTables(scale); err != nil {
				return fmt.Errorf("create tables: %w", err)
			}
			if err := r.LoadTables(scale, dataDir); err != nil {
				return fmt.Errorf("load tables: %w", err)
			}
			if err := r.RunQueries(scale); err != nil {
				return fmt.Errorf("run queries: %w", err)
			}
			return nil
		},
	}
	root.Flags().StringVar(&target, "target", "incresql", "mysql or incresql")
	root.Flags().StringVar(&dsn, "dsn", "root:password@tcp(127.0.0.1:3306)/", "go-sql-driver/mysql DSN (mysql target only)")
	root.Flags().StringVar(&dataDir, "data-dir", ".", "directory containing the TPC-H .tbl files")
	root.Flags().StringVar(&storeDir, "store-dir", "./bench_db", "storage directory (incresql target only)")
	root.Flags().IntVar(&scale, "scale", 1, "TPC-H scale factor, used only to name the database")
	root.Flags().BoolVar(&reset, "reset", false, "wipe the storage directory before running (incresql target only)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --- MySQL-side runner, grounded on mysql_runner.rs ---

type mysqlRunner struct {
	db *sql.DB
}

func newMysqlRunner(dsn string) (*mysqlRunner, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	return &mysqlRunner{db: db}, nil
}

func (m *mysqlRunner) Close() error { return m.db.Close() }

func (m *mysqlRunner) databaseName(scale int) string { return fmt.Sprintf("tpch_%d", scale) }

func (m *mysqlRunner) CreateTables(scale int) error {
	dbName := m.databaseName(scale)
	fmt.Fprintln(os.Stderr, "Creating schema/tables")
	if _, err := m.db.Exec("DROP DATABASE IF EXISTS " + dbName); err != nil {
		return err
	}
	if _, err := m.db.Exec("CREATE DATABASE " + dbName); err != nil {
		return err
	}
	if _, err := m.db.Exec("USE " + dbName); err != nil {
		return err
	}
	for _, stmt := range mysqlCreateStatements {
		if _, err := m.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *mysqlRunner) LoadTables(scale int, dataDir string) error {
	if _, err := m.db.Exec("USE " + m.databaseName(scale)); err != nil {
		return err
	}
	for _, table := range tableOrder {
		start := time.Now()
		fmt.Fprintf(os.Stderr, "Loading %s\n", table)
		loadSQL := fmt.Sprintf(
			"LOAD DATA LOCAL INFILE '%s/%s.tbl' INTO TABLE %s FIELDS TERMINATED BY '|'",
			dataDir, table, table,
		)
		if _, err := m.db.Exec(loadSQL); err != nil {
			return err
		}
		fmt.Printf("  load %s in %s\n", table, time.Since(start))
	}
	return nil
}

func (m *mysqlRunner) RunQueries(scale int) error {
	if _, err := m.db.Exec("USE " + m.databaseName(scale)); err != nil {
		return err
	}
	for _, q := range tpchQueries {
		start := time.Now()
		fmt.Fprintf(os.Stderr, "Running %s\n", q.name)
		rows, err := m.db.Query(q.sql)
		if err != nil {
			return err
		}
		for rows.Next() {
		}
		rows.Close()
		fmt.Printf("  %s total_time: %s\n", q.name, time.Since(start))
	}
	return nil
}

var mysqlCreateStatements = []string{
	`CREATE TABLE part (
    p_partkey       BIGINT,
    p_name          TEXT,
    p_mfgr          TEXT,
    p_brand         TEXT,
    p_type          TEXT,
    p_size          INTEGER,
    p_container     TEXT,
    p_retailprice   DECIMAL(12,2),
    p_comment       TEXT
)`,
	`CREATE TABLE supplier (
    s_suppkey     BIGINT,
    s_name        TEXT,
    s_address     TEXT,
    s_nationkey   INTEGER,
    s_phone       TEXT,
    s_acctbal     DECIMAL(12,2),
    s_comment     TEXT
)`,
	`CREATE TABLE partsupp (
    ps_partkey     BIGINT,
    ps_suppkey     BIGINT,
    ps_availqty    INTEGER,
    ps_supplycost  DECIMAL(12,2),
    ps_comment     TEXT
)`,
	`CREATE TABLE customer (
    c_custkey    BIGINT,
    c_name       TEXT,
    c_address    TEXT,
    c_nationkey  INTEGER,
    c_phone      TEXT,
    c_acctbal    DECIMAL(12,2),
    c_mktsegment TEXT,
    c_comment    TEXT
)`,
	`CREATE TABLE orders (
    o_orderkey       BIGINT,
    o_custkey        BIGINT,
    o_orderstatus    TEXT,
    o_totalprice     DECIMAL(12,2),
    o_orderdate      DATE,
    o_orderpriority  TEXT,
    o_clerk          TEXT,
    o_shippriority   INTEGER,
    o_comment        TEXT
)`,
	`CREATE TABLE lineitem (
    l_orderkey       BIGINT,
    l_partkey        BIGINT,
    l_suppkey        BIGINT,
    l_linenumber     INTEGER,
    l_quantity       DECIMAL(12,2),
    l_extendedprice  DECIMAL(12,2),
    l_discount       DECIMAL(12,2),
    l_tax            DECIMAL(12,2),
    l_returnflag     TEXT,
    l_linestatus     TEXT,
    l_shipdate       DATE,
    l_commitdate     DATE,
    l_receiptdate    DATE,
    l_shipinstruct   TEXT,
    l_shipmode       TEXT,
    l_comment        TEXT
)`,
	`CREATE TABLE nation (
    n_nationkey   INTEGER,
    n_name        TEXT,
    n_regionkey   INTEGER,
    n_comment     TEXT
)`,
	`CREATE TABLE region (
    r_regionkey   INTEGER,
    r_name        TEXT,
    r_comment     TEXT
)`,
}

// --- IncreSQL-side runner, grounded on incresql_runner.rs's three-step
// shape, but driven in-process (schema setup via internal/catalog, loading
// via internal/executor, queries via internal/runtime.Connection.Execute)
// rather than over a wire-protocol mysql.Conn, since the wire front-end is
// out of scope. ---

type incresqlRunner struct {
	rt   *runtime.Runtime
	conn *runtime.Connection
}

func newIncresqlRunner(storeDir string, reset bool) (*incresqlRunner, error) {
	if reset {
		fmt.Fprintln(os.Stderr, "Resetting database")
		if err := os.RemoveAll(storeDir); err != nil {
			return nil, err
		}
	}
	fmt.Fprintln(os.Stderr, "Initializing Runtime")
	rt, err := runtime.Open(storeDir, zap.NewNop())
	if err != nil {
		return nil, err
	}
	return &incresqlRunner{rt: rt, conn: rt.NewConnection("root")}, nil
}

func (r *incresqlRunner) Close() error {
	r.conn.Close()
	return r.rt.Close()
}

func (r *incresqlRunner) databaseName(scale int) string { return fmt.Sprintf("tpch_%d", scale) }

// CreateTables drives internal/catalog directly rather than through
// conn.Execute, calling the same catalog API that a CREATE DATABASE/CREATE
// TABLE statement dispatched through internal/ast.Adapter reaches.
func (r *incresqlRunner) CreateTables(scale int) error {
	fmt.Fprintln(os.Stderr, "Creating schema/tables")
	db := r.databaseName(scale)
	if err := r.rt.Catalog.CreateDatabase(db); err != nil {
		return err
	}
	r.conn.SetCurrentDatabase(db)
	for _, table := range tableOrder {
		if _, err := r.rt.Catalog.CreateTable(db, table, tpchSchemas[table], 0, nil); err != nil {
			return err
		}
	}
	return nil
}

// LoadTables reads each pipe-delimited .tbl file and inserts it through
// internal/executor directly (NewValues -> NewTableInsert), the same pair
// of operators table_test.go exercises: `FROM DIRECTORY` has no SQL-text
// surface since PhysicalFileScan is never produced by the planner (it is a
// physical-only primitive a caller builds by hand, see ast/point_in_time.go),
// so a loader honestly has to drive the executor package the same way.
func (r *incresqlRunner) LoadTables(scale int, dataDir string) error {
	db := r.databaseName(scale)
	for _, table := range tableOrder {
		start := time.Now()
		fmt.Fprintf(os.Stderr, "Loading %s\n", table)
		n, err := r.loadTable(db, table, filepath.Join(dataDir, table+".tbl"))
		if err != nil {
			return fmt.Errorf("load %s: %w", table, err)
		}
		fmt.Printf("  load %s: %d rows in %s\n", table, n, time.Since(start))
	}
	return nil
}

func (r *incresqlRunner) loadTable(db, table, path string) (int64, error) {
	meta, found := r.rt.Catalog.LookupTable(db, table)
	if !found {
		return 0, fmt.Errorf("table %s.%s not found", db, table)
	}
	schema := tpchSchemas[table]

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var rows [][]types.Datum
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "|")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		row, err := parseRow(fields, schema)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	handle := r.rt.Store.Table(meta.TableID)
	source := executor.NewValues(rows, len(schema))
	insert := executor.NewTableInsert(handle, meta, storage.Timestamp(time.Now().UnixMilli()), source)
	row, _, ok, err := executor.Next(insert)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return row[0].AsBigInt(), nil
}

func (r *incresqlRunner) RunQueries(scale int) error {
	r.conn.SetCurrentDatabase(r.databaseName(scale))
	for _, q := range tpchQueries {
		start := time.Now()
		fmt.Fprintf(os.Stderr, "Running %s\n", q.name)
		if _, err := r.conn.Execute(q.sql); err != nil {
			return err
		}
		fmt.Printf("  %s total_time: %s\n", q.name, time.Since(start))
	}
	return nil
}

// tpchSchemas gives each loaded table its own catalog.ColumnDef list, kept
// as Text for MySQL's DATE columns: a DATE-from-string scalar cast isn't
// registered in internal/functions/scalar_casts.go.
var tpchSchemas = map[string][]catalog.ColumnDef{
	"part": {
		{Name: "p_partkey", Type: types.BigInt},
		{Name: "p_name", Type: types.Text},
		{Name: "p_mfgr", Type: types.Text},
		{Name: "p_brand", Type: types.Text},
		{Name: "p_type", Type: types.Text},
		{Name: "p_size", Type: types.Integer},
		{Name: "p_container", Type: types.Text},
		{Name: "p_retailprice", Type: types.Decimal(12, 2)},
		{Name: "p_comment", Type: types.Text},
	},
	"supplier": {
		{Name: "s_suppkey", Type: types.BigInt},
		{Name: "s_name", Type: types.Text},
		{Name: "s_address", Type: types.Text},
		{Name: "s_nationkey", Type: types.Integer},
		{Name: "s_phone", Type: types.Text},
		{Name: "s_acctbal", Type: types.Decimal(12, 2)},
		{Name: "s_comment", Type: types.Text},
	},
	"partsupp": {
		{Name: "ps_partkey", Type: types.BigInt},
		{Name: "ps_suppkey", Type: types.BigInt},
		{Name: "ps_availqty", Type: types.Integer},
		{Name: "ps_supplycost", Type: types.Decimal(12, 2)},
		{Name: "ps_comment", Type: types.Text},
	},
	"customer": {
		{Name: "c_custkey", Type: types.BigInt},
		{Name: "c_name", Type: types.Text},
		{Name: "c_address", Type: types.Text},
		{Name: "c_nationkey", Type: types.Integer},
		{Name: "c_phone", Type: types.Text},
		{Name: "c_acctbal", Type: types.Decimal(12, 2)},
		{Name: "c_mktsegment", Type: types.Text},
		{Name: "c_comment", Type: types.Text},
	},
	"orders": {
		{Name: "o_orderkey", Type: types.BigInt},
		{Name: "o_custkey", Type: types.BigInt},
		{Name: "o_orderstatus", Type: types.Text},
		{Name: "o_totalprice", Type: types.Decimal(12, 2)},
		{Name: "o_orderdate", Type: types.Text},
		{Name: "o_orderpriority", Type: types.Text},
		{Name: "o_clerk", Type: types.Text},
		{Name: "o_shippriority", Type: types.Integer},
		{Name: "o_comment", Type: types.Text},
	},
	"lineitem": {
		{Name: "l_orderkey", Type: types.BigInt},
		{Name: "l_partkey", Type: types.BigInt},
		{Name: "l_suppkey", Type: types.BigInt},
		{Name: "l_linenumber", Type: types.Integer},
		{Name: "l_quantity", Type: types.Decimal(12, 2)},
		{Name: "l_extendedprice", Type: types.Decimal(12, 2)},
		{Name: "l_discount", Type: types.Decimal(12, 2)},
		{Name: "l_tax", Type: types.Decimal(12, 2)},
		{Name: "l_returnflag", Type: types.Text},
		{Name: "l_linestatus", Type: types.Text},
		{Name: "l_shipdate", Type: types.Text},
		{Name: "l_commitdate", Type: types.Text},
		{Name: "l_receiptdate", Type: types.Text},
		{Name: "l_shipinstruct", Type: types.Text},
		{Name: "l_shipmode", Type: types.Text},
		{Name: "l_comment", Type: types.Text},
	},
	"nation": {
		{Name: "n_nationkey", Type: types.Integer},
		{Name: "n_name", Type: types.Text},
		{Name: "n_regionkey", Type: types.Integer},
		{Name: "n_comment", Type: types.Text},
	},
	"region": {
		{Name: "r_regionkey", Type: types.Integer},
		{Name: "r_name", Type: types.Text},
		{Name: "r_comment", Type: types.Text},
	},
}

// parseRow converts one pipe-split .tbl line into typed Datums per schema.
func parseRow(fields []string, schema []catalog.ColumnDef) ([]types.Datum, error) {
	if len(fields) != len(schema) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(schema), len(fields))
	}
	row := make([]types.Datum, len(fields))
	for i, col := range schema {
		switch col.Type.Kind {
		case types.KindBigInt:
			v, err := strconv.ParseInt(fields[i], 10, 64)
			if err != nil {
				return nil, err
			}
			row[i] = types.NewBigInt(v)
		case types.KindInteger:
			v, err := strconv.ParseInt(fields[i], 10, 32)
			if err != nil {
				return nil, err
			}
			row[i] = types.NewInteger(int32(v))
		case types.KindDecimal:
			v, err := decimal.NewFromString(fields[i])
			if err != nil {
				return nil, err
			}
			row[i] = types.NewDecimal(v)
		default:
			row[i] = types.NewTextString(fields[i])
		}
	}
	return row, nil
}
