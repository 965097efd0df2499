package ast

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	tidbparser "github.com/pingcap/tidb/pkg/parser"
	tidbast "github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	tidbtypes "github.com/pingcap/tidb/pkg/parser/types"

	"incresql/internal/catalog"
	"incresql/internal/codec"
	"incresql/internal/expr"
	"incresql/internal/types"
)

// Adapter turns TiDB parser AST (the text->AST boundary spec.md §1 leaves
// external) into IncreSQL's LogicalOperator tree, exactly the role
// internal/parser/mysql.Parser plays for the teacher's schema-diff core,
// adapted from SQL-DDL-to-core.Database into SQL-DML-to-LogicalOperator.
type Adapter struct {
	parser  *tidbparser.Parser
	catalog *catalog.Catalog
}

func NewAdapter(cat *catalog.Catalog) *Adapter {
	return &Adapter{parser: tidbparser.New(), catalog: cat}
}

var ErrUnsupportedStatement = errors.New("ast: unsupported statement")
var ErrUnsupportedExpression = errors.New("ast: unsupported expression")

// ParseStatements parses sql (which may contain several ;-separated
// statements) into one LogicalOperator tree per statement.
func (a *Adapter) ParseStatements(sql, database string) ([]LogicalOperator, error) {
	stmtNodes, _, err := a.parser.Parse(sql, "", "")
	if err != nil {
		return nil, errors.Wrap(err, "ast: parse error")
	}
	ops := make([]LogicalOperator, 0, len(stmtNodes))
	for _, stmt := range stmtNodes {
		op, err := a.convertStmt(stmt, database)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (a *Adapter) convertStmt(stmt tidbast.StmtNode, database string) (LogicalOperator, error) {
	switch v := stmt.(type) {
	case *tidbast.SelectStmt:
		return a.convertSelect(v, database, map[string]bool{})
	case *tidbast.InsertStmt:
		return a.convertInsert(v, database)
	case *tidbast.DeleteStmt:
		return a.convertDelete(v, database)
	case *tidbast.CreateDatabaseStmt:
		return a.convertCreateDatabase(v)
	case *tidbast.DropDatabaseStmt:
		return a.convertDropDatabase(v)
	case *tidbast.CreateTableStmt:
		return a.convertCreateTable(v, database)
	case *tidbast.DropTableStmt:
		return a.convertDropTable(v, database)
	case *tidbast.CreateViewStmt:
		return a.convertCreateView(v, database)
	case *tidbast.UseStmt:
		return a.convertUse(v)
	case *tidbast.ShowStmt:
		return a.convertShow(v, database)
	default:
		return LogicalOperator{}, errors.Wrapf(ErrUnsupportedStatement, "%T", stmt)
	}
}

func (a *Adapter) convertSelect(sel *tidbast.SelectStmt, database string, seen map[string]bool) (LogicalOperator, error) {
	var source LogicalOperator
	var err error
	if sel.From == nil {
		source = NewSingle()
	} else {
		source, err = a.convertTableRefs(sel.From.TableRefs, database, seen)
		if err != nil {
			return LogicalOperator{}, err
		}
	}

	if sel.Where != nil {
		source = NewFilter(a.convertExpr(sel.Where), source)
	}

	named := make([]NamedExpression, 0, len(sel.Fields.Fields))
	for _, field := range sel.Fields.Fields {
		if field.WildCard != nil {
			qualifier := ""
			if field.WildCard.Table.O != "" {
				qualifier = field.WildCard.Table.O
			}
			named = append(named, NamedExpression{Expression: expr.NewColumnReference(qualifier, "", true)})
			continue
		}
		alias := ""
		if field.AsName.O != "" {
			alias = field.AsName.O
		}
		named = append(named, NamedExpression{Alias: alias, Expression: a.convertExpr(field.Expr)})
	}
	source = NewProject(sel.Distinct, named, source)

	if sel.GroupBy != nil {
		groupExprs := make([]expr.Expression, 0, len(sel.GroupBy.Items))
		for _, item := range sel.GroupBy.Items {
			groupExprs = append(groupExprs, a.convertExpr(item.Expr))
		}
		source = NewGroupBy(groupExprs, len(groupExprs), source)
	}

	if sel.OrderBy != nil {
		sortExprs := make([]expr.Expression, 0, len(sel.OrderBy.Items))
		for _, item := range sel.OrderBy.Items {
			order := sortOrderOf(item.Desc)
			sortExprs = append(sortExprs, expr.NewSortExpression(a.convertExpr(item.Expr), order))
		}
		source = NewSort(sortExprs, source)
	}

	if sel.Limit != nil {
		offset := int64(0)
		limit := int64(-1)
		if sel.Limit.Offset != nil {
			offset = literalInt(a.convertExpr(sel.Limit.Offset))
		}
		if sel.Limit.Count != nil {
			limit = literalInt(a.convertExpr(sel.Limit.Count))
		}
		source = NewLimit(offset, limit, source)
	}

	return source, nil
}

func (a *Adapter) convertInsert(ins *tidbast.InsertStmt, database string) (LogicalOperator, error) {
	tableName, ok := ins.Table.TableRefs.Left.(*tidbast.TableSource)
	if !ok {
		return LogicalOperator{}, errors.Wrap(ErrUnsupportedStatement, "ast: insert target is not a plain table")
	}
	name, ok := tableName.Source.(*tidbast.TableName)
	if !ok {
		return LogicalOperator{}, errors.Wrap(ErrUnsupportedStatement, "ast: insert target is not a plain table")
	}

	db := database
	if name.Schema.O != "" {
		db = name.Schema.O
	}
	table, found := a.catalog.LookupTable(db, name.Name.O)
	if !found {
		return LogicalOperator{}, errors.Wrapf(catalog.ErrTableNotFound, "%s.%s", db, name.Name.O)
	}

	var source LogicalOperator
	var err error
	if ins.Select != nil {
		selectStmt, ok := ins.Select.(*tidbast.SelectStmt)
		if !ok {
			return LogicalOperator{}, errors.Wrap(ErrUnsupportedStatement, "ast: insert ... select of non-select node")
		}
		source, err = a.convertSelect(selectStmt, database, map[string]bool{})
		if err != nil {
			return LogicalOperator{}, err
		}
	} else {
		fields := make([]FieldDef, len(table.Columns))
		for i, col := range table.Columns {
			fields[i] = FieldDef{Name: col.Name, Type: col.Type}
		}
		data := make([][]expr.Expression, len(ins.Lists))
		for i, row := range ins.Lists {
			converted := make([]expr.Expression, len(row))
			for j, e := range row {
				converted[j] = a.convertExpr(e)
			}
			data[i] = converted
		}
		source = NewValues(fields, data)
	}

	return NewTableInsert(table, source), nil
}

// convertDelete lowers `DELETE FROM t [WHERE ...] [LIMIT ...]` to an
// insert of the matching rows with their frequency negated (§6), built
// on the same NegateFreq/TableInsert pair the physical layer already
// uses for deletion.
func (a *Adapter) convertDelete(stmt *tidbast.DeleteStmt, database string) (LogicalOperator, error) {
	tableSource, ok := stmt.TableRefs.TableRefs.Left.(*tidbast.TableSource)
	if !ok {
		return LogicalOperator{}, errors.Wrap(ErrUnsupportedStatement, "ast: delete target is not a plain table")
	}
	name, ok := tableSource.Source.(*tidbast.TableName)
	if !ok {
		return LogicalOperator{}, errors.Wrap(ErrUnsupportedStatement, "ast: delete target is not a plain table")
	}

	db := database
	if name.Schema.O != "" {
		db = name.Schema.O
	}
	table, found := a.catalog.LookupTable(db, name.Name.O)
	if !found {
		return LogicalOperator{}, errors.Wrapf(catalog.ErrTableNotFound, "%s.%s", db, name.Name.O)
	}

	source := NewResolvedTable(table)
	if stmt.Where != nil {
		source = NewFilter(a.convertExpr(stmt.Where), source)
	}
	if stmt.Limit != nil {
		offset := int64(0)
		limit := int64(-1)
		if stmt.Limit.Offset != nil {
			offset = literalInt(a.convertExpr(stmt.Limit.Offset))
		}
		if stmt.Limit.Count != nil {
			limit = literalInt(a.convertExpr(stmt.Limit.Count))
		}
		source = NewLimit(offset, limit, source)
	}
	return NewTableInsert(table, NewNegateFreq(source)), nil
}

// convertCreateDatabase applies `CREATE DATABASE` directly against the
// catalog (§4.3); DDL has no physical plan of its own, so it returns an
// empty placeholder operator for the statement loop to run uniformly.
func (a *Adapter) convertCreateDatabase(stmt *tidbast.CreateDatabaseStmt) (LogicalOperator, error) {
	if err := a.catalog.CreateDatabase(stmt.Name); err != nil {
		if stmt.IfNotExists && errors.Is(err, catalog.ErrDatabaseAlreadyExists) {
			return NewSingle(), nil
		}
		return LogicalOperator{}, err
	}
	return NewSingle(), nil
}

func (a *Adapter) convertDropDatabase(stmt *tidbast.DropDatabaseStmt) (LogicalOperator, error) {
	if err := a.catalog.DropDatabase(stmt.Name); err != nil {
		if stmt.IfExists && errors.Is(err, catalog.ErrDatabaseNotFound) {
			return NewSingle(), nil
		}
		return LogicalOperator{}, err
	}
	return NewSingle(), nil
}

// convertCreateTable applies `CREATE TABLE` directly against the catalog.
// Storage requires a table's primary-key columns to be the leading
// PKLen entries of its Columns slice (internal/executor/table.go's
// encodeRow splits a row on that prefix), so declared columns are
// reordered to put the primary key first regardless of where it was
// written in the DDL.
func (a *Adapter) convertCreateTable(stmt *tidbast.CreateTableStmt, database string) (LogicalOperator, error) {
	db := database
	if stmt.Table.Schema.O != "" {
		db = stmt.Table.Schema.O
	}

	cols := make([]catalog.ColumnDef, len(stmt.Cols))
	colIndex := make(map[string]int, len(stmt.Cols))
	for i, c := range stmt.Cols {
		dt, err := dataTypeOf(c.Tp)
		if err != nil {
			return LogicalOperator{}, errors.Wrapf(err, "ast: column %q", c.Name.Name.O)
		}
		cols[i] = catalog.ColumnDef{Name: c.Name.Name.O, Type: dt}
		colIndex[c.Name.Name.L] = i
	}

	var pkNames []string
	var pkDesc []bool
	for _, c := range stmt.Cols {
		for _, opt := range c.Options {
			if opt.Tp == tidbast.ColumnOptionPrimaryKey {
				pkNames = append(pkNames, c.Name.Name.L)
				pkDesc = append(pkDesc, false)
			}
		}
	}
	for _, con := range stmt.Constraints {
		if con.Tp == tidbast.ConstraintPrimaryKey {
			for _, key := range con.Keys {
				pkNames = append(pkNames, key.Column.Name.L)
				pkDesc = append(pkDesc, key.Desc)
			}
		}
	}
	if len(pkNames) == 0 {
		return LogicalOperator{}, errors.Wrap(ErrUnsupportedStatement, "ast: create table requires a primary key")
	}

	ordered := make([]catalog.ColumnDef, 0, len(cols))
	placed := make(map[string]bool, len(pkNames))
	for _, n := range pkNames {
		idx, ok := colIndex[n]
		if !ok {
			return LogicalOperator{}, errors.Wrapf(ErrUnsupportedStatement, "ast: primary key column %q not declared", n)
		}
		ordered = append(ordered, cols[idx])
		placed[n] = true
	}
	for _, c := range stmt.Cols {
		if !placed[c.Name.Name.L] {
			ordered = append(ordered, cols[colIndex[c.Name.Name.L]])
		}
	}

	if _, err := a.catalog.CreateTable(db, stmt.Table.Name.O, ordered, len(pkNames), pkDesc); err != nil {
		if stmt.IfNotExists && errors.Is(err, catalog.ErrTableAlreadyExists) {
			return NewSingle(), nil
		}
		return LogicalOperator{}, err
	}
	return NewSingle(), nil
}

// dataTypeOf maps a parsed column's MySQL field type to IncreSQL's
// datatype (§3). Types the SQL surface doesn't name (bit fields, enums,
// geometry, ...) are rejected rather than silently coerced.
func dataTypeOf(ft *tidbtypes.FieldType) (types.DataType, error) {
	switch ft.GetType() {
	case mysql.TypeTiny:
		if mysql.HasIsBooleanFlag(ft.GetFlag()) {
			return types.Boolean, nil
		}
		return types.Integer, nil
	case mysql.TypeShort, mysql.TypeInt24, mysql.TypeLong:
		return types.Integer, nil
	case mysql.TypeLonglong:
		return types.BigInt, nil
	case mysql.TypeNewDecimal, mysql.TypeDecimal:
		return types.Decimal(int32(ft.GetFlen()), int32(ft.GetDecimal())), nil
	case mysql.TypeVarchar, mysql.TypeVarString, mysql.TypeString,
		mysql.TypeBlob, mysql.TypeTinyBlob, mysql.TypeMediumBlob, mysql.TypeLongBlob:
		return types.Text, nil
	case mysql.TypeJSON:
		return types.JSON, nil
	case mysql.TypeDate, mysql.TypeNewDate:
		return types.Date, nil
	case mysql.TypeDatetime, mysql.TypeTimestamp:
		return types.Timestamp, nil
	default:
		return types.Null, errors.Newf("ast: unsupported column type %v", ft.GetType())
	}
}

func (a *Adapter) convertDropTable(stmt *tidbast.DropTableStmt, database string) (LogicalOperator, error) {
	for _, t := range stmt.Tables {
		db := database
		if t.Schema.O != "" {
			db = t.Schema.O
		}
		if err := a.catalog.DropTable(db, t.Name.O); err != nil {
			if stmt.IfExists && errors.Is(err, catalog.ErrTableNotFound) {
				continue
			}
			return LogicalOperator{}, err
		}
	}
	return NewSingle(), nil
}

// convertCreateView stores the view's defining SELECT text verbatim;
// convertViewReference re-parses and re-plans it at reference time, so
// the view always sees the live schema of whatever it selects from.
func (a *Adapter) convertCreateView(stmt *tidbast.CreateViewStmt, database string) (LogicalOperator, error) {
	db := database
	if stmt.ViewName.Schema.O != "" {
		db = stmt.ViewName.Schema.O
	}
	sel, ok := stmt.Select.(*tidbast.SelectStmt)
	if !ok {
		return LogicalOperator{}, errors.Wrap(ErrUnsupportedStatement, "ast: create view of a non-select query")
	}
	query := restoreStmtText(sel)
	if err := a.catalog.CreateView(db, stmt.ViewName.Name.O, query); err != nil {
		return LogicalOperator{}, err
	}
	return NewSingle(), nil
}

func restoreStmtText(stmt tidbast.StmtNode) string {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := stmt.Restore(ctx); err != nil {
		return ""
	}
	return strings.TrimSpace(sb.String())
}

// convertUse carries the target database name through to
// Connection.Execute (internal/ast.LogicalUse), since switching the
// active database is session state the adapter has no handle to.
func (a *Adapter) convertUse(stmt *tidbast.UseStmt) (LogicalOperator, error) {
	if !a.catalog.DatabaseExists(stmt.DBName) {
		return LogicalOperator{}, errors.Wrapf(catalog.ErrDatabaseNotFound, "%s", stmt.DBName)
	}
	return NewUse(stmt.DBName), nil
}

// convertShow answers `SHOW DATABASES`/`SHOW TABLES` directly from the
// catalog as a constant Values operator. MySQL's `SHOW FUNCTION STATUS`
// has no equivalent `SHOW FUNCTIONS` grammar in the parser, so the
// function registry (internal/functions.Registry.ListFunctions) has no
// SQL-text entry point here; it remains reachable only in-process.
func (a *Adapter) convertShow(stmt *tidbast.ShowStmt, database string) (LogicalOperator, error) {
	switch stmt.Tp {
	case tidbast.ShowDatabases:
		names := a.catalog.ListDatabases()
		sort.Strings(names)
		return namesToValues("schema_name", names), nil
	case tidbast.ShowTables:
		db := database
		if stmt.DBName != "" {
			db = stmt.DBName
		}
		tables := a.catalog.ListTables(db)
		names := make([]string, 0, len(tables))
		for _, t := range tables {
			if !t.System {
				names = append(names, t.Name)
			}
		}
		sort.Strings(names)
		return namesToValues("table_name", names), nil
	default:
		return LogicalOperator{}, errors.Wrapf(ErrUnsupportedStatement, "ast: unsupported show statement (type %v)", stmt.Tp)
	}
}

func namesToValues(column string, names []string) LogicalOperator {
	data := make([][]expr.Expression, len(names))
	for i, n := range names {
		data[i] = []expr.Expression{expr.NewConstant(types.NewTextString(n), types.Text)}
	}
	return NewValues([]FieldDef{{Name: column, Type: types.Text}}, data)
}

func (a *Adapter) convertTableRefs(join *tidbast.Join, database string, seen map[string]bool) (LogicalOperator, error) {
	left, err := a.convertResultSetNode(join.Left, database, seen)
	if err != nil {
		return LogicalOperator{}, err
	}
	if join.Right == nil {
		return left, nil
	}
	right, err := a.convertResultSetNode(join.Right, database, seen)
	if err != nil {
		return LogicalOperator{}, err
	}

	joinType := JoinInner
	if join.Tp == tidbast.LeftJoin {
		joinType = JoinLeftOuter
	}
	var onPredicate expr.Expression
	if join.On != nil {
		onPredicate = a.convertExpr(join.On.Expr)
	} else {
		onPredicate = expr.NewConstant(types.NewBoolean(true), types.Boolean)
	}
	return NewJoin(joinType, onPredicate, left, right), nil
}

func (a *Adapter) convertResultSetNode(node tidbast.ResultSetNode, database string, seen map[string]bool) (LogicalOperator, error) {
	switch v := node.(type) {
	case *tidbast.TableSource:
		inner, err := a.convertResultSetNode(v.Source, database, seen)
		if err != nil {
			return LogicalOperator{}, err
		}
		if v.AsName.O != "" {
			inner = NewTableAlias(v.AsName.O, inner)
		}
		return inner, nil
	case *tidbast.TableName:
		db := database
		if v.Schema.O != "" {
			db = v.Schema.O
		}
		if table, found := a.catalog.LookupTable(db, v.Name.O); found {
			return NewResolvedTable(table), nil
		}
		return a.convertViewReference(db, v.Name.O, seen)
	case *tidbast.Join:
		return a.convertTableRefs(v, database, seen)
	default:
		return LogicalOperator{}, errors.Wrapf(ErrUnsupportedStatement, "ast: unsupported table reference %T", node)
	}
}

// convertViewReference substitutes a table reference that missed the
// catalog's tables by re-planning the named view's stored query inline
// (§4.7 phase 1 step 2: "for views, recursively re-plan the view's SQL").
// seen guards against a view that (directly or transitively) selects from
// itself; it is scoped to one top-level statement, rebuilt fresh for each
// call into convertSelect from convertStmt/convertInsert.
func (a *Adapter) convertViewReference(db, name string, seen map[string]bool) (LogicalOperator, error) {
	view, found := a.catalog.LookupView(db, name)
	if !found {
		return LogicalOperator{}, errors.Wrapf(catalog.ErrTableNotFound, "%s.%s", db, name)
	}
	key := db + "." + name
	if seen[key] {
		return LogicalOperator{}, errors.Wrapf(ErrUnsupportedStatement, "ast: view %q is recursive", key)
	}
	nextSeen := make(map[string]bool, len(seen)+1)
	for k := range seen {
		nextSeen[k] = true
	}
	nextSeen[key] = true

	stmtNodes, _, err := a.parser.Parse(view.Query, "", "")
	if err != nil {
		return LogicalOperator{}, errors.Wrapf(err, "ast: re-parse view %q", key)
	}
	if len(stmtNodes) != 1 {
		return LogicalOperator{}, errors.Wrapf(ErrUnsupportedStatement, "ast: view %q does not hold exactly one statement", key)
	}
	viewSelect, ok := stmtNodes[0].(*tidbast.SelectStmt)
	if !ok {
		return LogicalOperator{}, errors.Wrapf(ErrUnsupportedStatement, "ast: view %q is not a select", key)
	}
	substituted, err := a.convertSelect(viewSelect, db, nextSeen)
	if err != nil {
		return LogicalOperator{}, err
	}
	return NewTableAlias(name, substituted), nil
}

// convertExpr lowers a TiDB ExprNode into a pre-resolution expr.Expression
// (ColumnReference/FunctionCall/Constant) for the planner to later resolve
// and compile (§4.6). Node kinds this adapter doesn't specially recognize
// fall back to restoring their SQL text and parsing that as a literal,
// reusing the teacher's exprToString/tryUnquoteSQLStringLiteral technique
// from internal/parser/mysql/parser.go.
func (a *Adapter) convertExpr(e tidbast.ExprNode) expr.Expression {
	switch v := e.(type) {
	case *tidbast.ColumnNameExpr:
		return expr.NewColumnReference(v.Name.Table.O, v.Name.Name.O, false)
	case *tidbast.ParenthesesExpr:
		return a.convertExpr(v.Expr)
	case *tidbast.BinaryOperationExpr:
		return expr.NewFunctionCall(binaryOpName(v.Op), []expr.Expression{a.convertExpr(v.L), a.convertExpr(v.R)})
	case *tidbast.UnaryOperationExpr:
		return expr.NewFunctionCall(unaryOpName(v.Op), []expr.Expression{a.convertExpr(v.V)})
	case *tidbast.IsNullExpr:
		name := "is_null"
		inner := expr.NewFunctionCall(name, []expr.Expression{a.convertExpr(v.Expr)})
		if v.Not {
			return expr.NewFunctionCall("not", []expr.Expression{inner})
		}
		return inner
	case *tidbast.FuncCallExpr:
		args := make([]expr.Expression, len(v.Args))
		for i, arg := range v.Args {
			args[i] = a.convertExpr(arg)
		}
		return expr.NewFunctionCall(strings.ToLower(v.FnName.O), args)
	case *tidbast.AggregateFuncExpr:
		args := make([]expr.Expression, len(v.Args))
		for i, arg := range v.Args {
			args[i] = a.convertExpr(arg)
		}
		return expr.NewFunctionCall(strings.ToLower(v.F), args)
	case *tidbast.VariableExpr:
		// `@@name` system variables: no session-variable store exists
		// (§9 open question), so this is a bounded, best-effort
		// compatibility shim for the handful of names MySQL drivers
		// probe at connect time. `@name` user variables (IsSystem ==
		// false) have nowhere to live either and fall back to NULL.
		if v.IsSystem {
			return systemVariableConstant(v.Name)
		}
		return expr.NewConstant(types.NullDatum, types.Null)
	default:
		return literalFromText(restoreExprText(e))
	}
}

// systemVariableConstant answers the small set of `@@`-variables MySQL
// client libraries commonly read on connect; any other name reads as
// NULL rather than failing the statement.
func systemVariableConstant(name string) expr.Expression {
	switch strings.ToLower(name) {
	case "version":
		return expr.NewConstant(types.NewTextString("8.0.34-incresql"), types.Text)
	case "max_allowed_packet":
		return expr.NewConstant(types.NewBigInt(67108864), types.BigInt)
	case "autocommit":
		return expr.NewConstant(types.NewBoolean(true), types.Boolean)
	case "sql_mode", "character_set_client", "character_set_connection", "collation_connection":
		return expr.NewConstant(types.NewTextString(""), types.Text)
	default:
		return expr.NewConstant(types.NullDatum, types.Null)
	}
}

func binaryOpName(op opcode.Op) string {
	switch op {
	case opcode.Plus:
		return "+"
	case opcode.Minus:
		return "-"
	case opcode.Mul:
		return "*"
	case opcode.Div:
		return "/"
	case opcode.EQ:
		return "="
	case opcode.NE:
		return "!="
	case opcode.LT:
		return "<"
	case opcode.LE:
		return "<="
	case opcode.GT:
		return ">"
	case opcode.GE:
		return ">="
	case opcode.LogicAnd:
		return "and"
	case opcode.LogicOr:
		return "or"
	default:
		return op.String()
	}
}

func unaryOpName(op opcode.Op) string {
	switch op {
	case opcode.Not:
		return "not"
	case opcode.Minus:
		return "-"
	default:
		return op.String()
	}
}

func sortOrderOf(desc bool) codec.SortOrder {
	if desc {
		return codec.Desc
	}
	return codec.Asc
}

func restoreExprText(e tidbast.ExprNode) string {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := e.Restore(ctx); err != nil {
		return ""
	}
	return strings.TrimSpace(sb.String())
}

// literalFromText parses a restored SQL literal's text back into a
// Constant expression, the only generic fallback available once we've
// already lost the original ExprNode's concrete type.
func literalFromText(s string) expr.Expression {
	if s == "" || strings.EqualFold(s, "NULL") {
		return expr.NewConstant(types.NullDatum, types.Null)
	}
	if strings.EqualFold(s, "TRUE") {
		return expr.NewConstant(types.NewBoolean(true), types.Boolean)
	}
	if strings.EqualFold(s, "FALSE") {
		return expr.NewConstant(types.NewBoolean(false), types.Boolean)
	}
	if unquoted, ok := unquoteStringLiteral(s); ok {
		return expr.NewConstant(types.NewTextString(unquoted), types.Text)
	}
	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		return expr.NewConstant(types.NewInteger(int32(i)), types.Integer)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return expr.NewConstant(types.NewBigInt(i), types.BigInt)
	}
	return expr.NewConstant(types.NewTextString(s), types.Text)
}

func unquoteStringLiteral(s string) (string, bool) {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return "", false
	}
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), true
}

// literalInt reads back an integer constant produced by convertExpr,
// used for LIMIT/OFFSET which TiDB always parses as integer literals.
func literalInt(e expr.Expression) int64 {
	if e.Kind != expr.KindConstant {
		return 0
	}
	if e.DataType.Kind == types.KindBigInt {
		return e.Value.AsBigInt()
	}
	return int64(e.Value.AsInteger())
}
