package wowsql

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Operator identifies a filter comparison. The operator name doubles as the
// query-parameter suffix (age__gt=18), so values here are wire-stable.
type Operator string

const (
	OpEq        Operator = "eq"
	OpNeq       Operator = "neq"
	OpGt        Operator = "gt"
	OpGte       Operator = "gte"
	OpLt        Operator = "lt"
	OpLte       Operator = "lte"
	OpLike      Operator = "like"
	OpIsNull    Operator = "isnull"
	OpIsNotNull Operator = "isnotnull"
)

// Filter is one predicate in a query. IsNull/IsNotNull carry no value.
type Filter struct {
	Column string
	Op     Operator
	Value  any
}

// Record is a single row as returned by the API.
type Record map[string]any

// Rows is the result of a read query. Count is the server-reported total of
// matching rows, or -1 when the server does not supply one.
type Rows struct {
	Data  []Record
	Count int
}

// QueryBuilder accumulates query intent for one table and renders it into a
// single HTTP request on a terminal call (Get, GetByID, Create, Update,
// UpdateByID, Delete, DeleteByID). A builder is consumed by its terminal
// call; any use afterwards fails with a validation error. Create a new
// builder via Client.Table for the next query.
//
// Filters always conjoin (AND). OR-combination, filter grouping and
// multi-column ordering are not supported; OrderBy overwrites any previous
// ordering.
type QueryBuilder struct {
	t       *transport
	table   string
	columns []string
	filters []Filter
	orderBy string
	desc    bool
	ordered bool
	limit   int
	offset  int

	err      error
	consumed bool
}

func newQueryBuilder(t *transport, table string) *QueryBuilder {
	q := &QueryBuilder{t: t, table: table, limit: -1, offset: -1}
	if table == "" {
		q.err = configurationError("table name is required")
	}
	return q
}

// chainable records a deferred error the next terminal call will surface.
func (q *QueryBuilder) chainable() bool {
	if q.consumed {
		if q.err == nil {
			q.err = validationError("builder already consumed; create a new one via Table")
		}
		return false
	}
	return q.err == nil
}

// Select sets the projected columns. No arguments or "*" selects all
// columns. A second call overwrites the first.
func (q *QueryBuilder) Select(columns ...string) *QueryBuilder {
	if !q.chainable() {
		return q
	}
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		q.columns = nil
		return q
	}
	q.columns = columns
	return q
}

func (q *QueryBuilder) where(column string, op Operator, value any) *QueryBuilder {
	if !q.chainable() {
		return q
	}
	if column == "" {
		q.err = validationError("filter column is required")
		return q
	}
	q.filters = append(q.filters, Filter{Column: column, Op: op, Value: value})
	return q
}

// Eq appends an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.where(column, OpEq, value)
}

// Neq appends an inequality filter.
func (q *QueryBuilder) Neq(column string, value any) *QueryBuilder {
	return q.where(column, OpNeq, value)
}

// Gt appends a greater-than filter.
func (q *QueryBuilder) Gt(column string, value any) *QueryBuilder {
	return q.where(column, OpGt, value)
}

// Gte appends a greater-or-equal filter.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	return q.where(column, OpGte, value)
}

// Lt appends a less-than filter.
func (q *QueryBuilder) Lt(column string, value any) *QueryBuilder {
	return q.where(column, OpLt, value)
}

// Lte appends a less-or-equal filter.
func (q *QueryBuilder) Lte(column string, value any) *QueryBuilder {
	return q.where(column, OpLte, value)
}

// Like appends a pattern-match filter. Pattern syntax is the server's.
func (q *QueryBuilder) Like(column string, pattern string) *QueryBuilder {
	return q.where(column, OpLike, pattern)
}

// IsNull appends a null check.
func (q *QueryBuilder) IsNull(column string) *QueryBuilder {
	return q.where(column, OpIsNull, nil)
}

// IsNotNull appends a not-null check.
func (q *QueryBuilder) IsNotNull(column string) *QueryBuilder {
	return q.where(column, OpIsNotNull, nil)
}

// OrderBy sets single-column ordering. A second call overwrites the first.
func (q *QueryBuilder) OrderBy(column string, descending bool) *QueryBuilder {
	if !q.chainable() {
		return q
	}
	if column == "" {
		q.err = validationError("order column is required")
		return q
	}
	q.orderBy = column
	q.desc = descending
	q.ordered = true
	return q
}

// Limit caps the number of returned rows.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	if !q.chainable() {
		return q
	}
	if n < 0 {
		q.err = validationError("limit must be non-negative")
		return q
	}
	q.limit = n
	return q
}

// Offset skips the first n rows.
func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	if !q.chainable() {
		return q
	}
	if n < 0 {
		q.err = validationError("offset must be non-negative")
		return q
	}
	q.offset = n
	return q
}

// rowsPath returns /v1/tables/{table}/rows with an optional id segment.
func (q *QueryBuilder) rowsPath(id string) string {
	p := "/v1/tables/" + url.PathEscape(q.table) + "/rows"
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

// filterValues renders the accumulated filters as query parameters using
// the column__operator=value grammar.
func (q *QueryBuilder) filterValues() url.Values {
	query := url.Values{}
	for _, f := range q.filters {
		query.Add(f.Column+"__"+string(f.Op), filterValueString(f))
	}
	return query
}

func filterValueString(f Filter) string {
	if f.Op == OpIsNull || f.Op == OpIsNotNull {
		return "true"
	}
	switch v := f.Value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Build renders the read request for the accumulated state without
// consuming the builder or touching the network. The rendering is a pure
// function of the builder state: the same chain of calls always yields a
// byte-identical descriptor.
func (q *QueryBuilder) Build() (*RequestDescriptor, error) {
	if q.consumed {
		return nil, validationError("builder already consumed; create a new one via Table")
	}
	if q.err != nil {
		return nil, q.err
	}
	query := q.filterValues()
	if len(q.columns) > 0 {
		query.Set("select", strings.Join(q.columns, ","))
	}
	if q.ordered {
		query.Set("order_by", q.orderBy)
		if q.desc {
			query.Set("order", "desc")
		}
	}
	if q.limit >= 0 {
		query.Set("limit", strconv.Itoa(q.limit))
	}
	if q.offset >= 0 {
		query.Set("offset", strconv.Itoa(q.offset))
	}
	return &RequestDescriptor{Method: "GET", Path: q.rowsPath(""), Query: query}, nil
}

// consume finalizes the builder. Exactly one terminal call may succeed.
func (q *QueryBuilder) consume() error {
	if q.consumed {
		return validationError("builder already consumed; create a new one via Table")
	}
	q.consumed = true
	return q.err
}

// Get executes the read query and returns the matching rows.
func (q *QueryBuilder) Get(ctx context.Context) (*Rows, error) {
	desc, err := q.Build()
	if err == nil {
		err = q.consume()
	}
	if err != nil {
		return nil, err
	}

	var wire struct {
		Data  []Record `json:"data"`
		Count *int     `json:"count"`
	}
	if err := q.t.doJSON(ctx, desc, &wire); err != nil {
		return nil, err
	}
	rows := &Rows{Data: wire.Data, Count: -1}
	if rows.Data == nil {
		rows.Data = []Record{}
	}
	if wire.Count != nil {
		rows.Count = *wire.Count
	}
	return rows, nil
}

// GetByID fetches a single row by primary key. It renders as
// id__eq=<id>&limit=1 and collapses the result; an empty result is a
// not-found error, never an empty success.
func (q *QueryBuilder) GetByID(ctx context.Context, id any) (Record, error) {
	idStr, err := idSegment(id)
	if err != nil {
		q.consumed = true
		return nil, err
	}
	rows, err := q.Eq("id", idStr).Limit(1).Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows.Data) == 0 {
		return nil, &Error{Kind: KindNotFound, Message: fmt.Sprintf("no row with id %q in table %q", idStr, q.table)}
	}
	return rows.Data[0], nil
}

// Create inserts a record and returns it as stored, including the
// server-assigned id.
func (q *QueryBuilder) Create(ctx context.Context, record Record) (Record, error) {
	if err := q.consume(); err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, validationError("record is required")
	}
	body, err := json.Marshal(record)
	if err != nil {
		return nil, validationError("record is not JSON-encodable: " + err.Error())
	}

	desc := &RequestDescriptor{Method: "POST", Path: q.rowsPath(""), Body: body}
	var created Record
	if err := q.t.doJSON(ctx, desc, &created); err != nil {
		return nil, err
	}
	return created, nil
}

type affectedRows struct {
	AffectedRows int `json:"affected_rows"`
}

// UpdateByID patches the single row with the given id.
// PATCH /v1/tables/{table}/rows/{id}.
func (q *QueryBuilder) UpdateByID(ctx context.Context, id any, patch Record) (int, error) {
	return q.writeByID(ctx, "PATCH", id, patch)
}

// Update patches every row matching the accumulated filters and returns the
// number of affected rows. PATCH /v1/tables/{table}/rows?<filters>.
// Calling it with no filters is a validation error; an unconditional
// full-table update must be spelled out with an explicit filter.
func (q *QueryBuilder) Update(ctx context.Context, patch Record) (int, error) {
	return q.writeByFilter(ctx, "PATCH", patch)
}

// DeleteByID deletes the single row with the given id.
// DELETE /v1/tables/{table}/rows/{id}.
func (q *QueryBuilder) DeleteByID(ctx context.Context, id any) (int, error) {
	return q.writeByID(ctx, "DELETE", id, nil)
}

// Delete deletes every row matching the accumulated filters and returns the
// number of affected rows. DELETE /v1/tables/{table}/rows?<filters>.
// Zero filters fail the same way Update does.
func (q *QueryBuilder) Delete(ctx context.Context) (int, error) {
	return q.writeByFilter(ctx, "DELETE", nil)
}

func (q *QueryBuilder) writeByID(ctx context.Context, method string, id any, patch Record) (int, error) {
	if err := q.consume(); err != nil {
		return 0, err
	}
	idStr, err := idSegment(id)
	if err != nil {
		return 0, err
	}
	desc := &RequestDescriptor{Method: method, Path: q.rowsPath(idStr)}
	if method == "PATCH" {
		if len(patch) == 0 {
			return 0, validationError("patch is required")
		}
		body, err := json.Marshal(patch)
		if err != nil {
			return 0, validationError("patch is not JSON-encodable: " + err.Error())
		}
		desc.Body = body
	}

	var out affectedRows
	if err := q.t.doJSON(ctx, desc, &out); err != nil {
		return 0, err
	}
	return out.AffectedRows, nil
}

func (q *QueryBuilder) writeByFilter(ctx context.Context, method string, patch Record) (int, error) {
	if err := q.consume(); err != nil {
		return 0, err
	}
	if len(q.filters) == 0 {
		return 0, validationError("bulk " + strings.ToLower(method) + " requires at least one filter")
	}
	desc := &RequestDescriptor{Method: method, Path: q.rowsPath(""), Query: q.filterValues()}
	if method == "PATCH" {
		if len(patch) == 0 {
			return 0, validationError("patch is required")
		}
		body, err := json.Marshal(patch)
		if err != nil {
			return 0, validationError("patch is not JSON-encodable: " + err.Error())
		}
		desc.Body = body
	}

	var out affectedRows
	if err := q.t.doJSON(ctx, desc, &out); err != nil {
		return 0, err
	}
	return out.AffectedRows, nil
}

// idSegment renders an id value for use in a path segment.
func idSegment(id any) (string, error) {
	var s string
	switch v := id.(type) {
	case string:
		s = v
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		s = ""
	default:
		s = fmt.Sprintf("%v", v)
	}
	if s == "" {
		return "", validationError("id is required")
	}
	return s, nil
}
