package query

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectQueryBuild(t *testing.T) {
	tests := []struct {
		name     string
		query    SelectQuery
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "bare table",
			query:   Table("player"),
			wantSQL: `SELECT * FROM "player"`,
		},
		{
			name:     "filter",
			query:    Table("player").Where(Eq(Col("email"), Val("a@example.com"))),
			wantSQL:  `SELECT * FROM "player" WHERE "email" = ?`,
			wantArgs: []any{"a@example.com"},
		},
		{
			name:     "two filters conjoin",
			query:    Table("player").Where(Eq(Col("a"), Val(1))).Where(Eq(Col("b"), Val(2))),
			wantSQL:  `SELECT * FROM "player" WHERE ("a" = ? AND "b" = ?)`,
			wantArgs: []any{1, 2},
		},
		{
			name:    "named columns",
			query:   Table("player").SelectColumns("id", "name"),
			wantSQL: `SELECT "id", "name" FROM "player"`,
		},
		{
			name:    "distinct",
			query:   Table("player").SelectColumns("name").Distinct(),
			wantSQL: `SELECT DISTINCT "name" FROM "player"`,
		},
		{
			name:     "group by and having",
			query:    Table("player").SelectColumns("teamId").GroupBy(Col("teamId")).Having(Gt(CountAll{}, Val(5))),
			wantSQL:  `SELECT "teamId" FROM "player" GROUP BY "teamId" HAVING (COUNT(*) > ?)`,
			wantArgs: []any{5},
		},
		{
			name:    "ordering",
			query:   Table("player").OrderBy(Asc(Col("name")), Desc(Col("score"))),
			wantSQL: `SELECT * FROM "player" ORDER BY "name", "score" DESC`,
		},
		{
			name:    "reverse flips every term",
			query:   Table("player").OrderBy(Asc(Col("name")), Desc(Col("score"))).Reverse(),
			wantSQL: `SELECT * FROM "player" ORDER BY "name" DESC, "score"`,
		},
		{
			name:    "reverse twice restores the ordering",
			query:   Table("player").OrderBy(Asc(Col("name"))).Reverse().Reverse(),
			wantSQL: `SELECT * FROM "player" ORDER BY "name"`,
		},
		{
			name:    "reverse without ordering falls back to rowid",
			query:   Table("player").Reverse(),
			wantSQL: `SELECT * FROM "player" ORDER BY "rowid" DESC`,
		},
		{
			name:    "order by clears a pending reversal",
			query:   Table("player").Reverse().OrderBy(Asc(Col("name"))),
			wantSQL: `SELECT * FROM "player" ORDER BY "name"`,
		},
		{
			name:    "limit",
			query:   Table("player").Take(10),
			wantSQL: `SELECT * FROM "player" LIMIT 10`,
		},
		{
			name:    "limit with offset",
			query:   Table("player").Take(10).Skip(5),
			wantSQL: `SELECT * FROM "player" LIMIT 10 OFFSET 5`,
		},
		{
			name:    "offset without limit is unbounded",
			query:   Table("player").Skip(5),
			wantSQL: `SELECT * FROM "player" LIMIT -1 OFFSET 5`,
		},
		{
			name:     "user alias qualifies every column",
			query:    Table("player").Aliased("p").Where(Eq(Col("email"), Val("a@example.com"))),
			wantSQL:  `SELECT "p".* FROM "player" "p" WHERE "p"."email" = ?`,
			wantArgs: []any{"a@example.com"},
		},
		{
			name:    "subquery source",
			query:   FromSubquery(Table("player").SelectColumns("id")),
			wantSQL: `SELECT * FROM (SELECT "id" FROM "player")`,
		},
		{
			name:     "aliased subquery source",
			query:    FromSubquery(Table("player").SelectColumns("id")).Aliased("s").Where(Eq(Col("id"), Val(1))),
			wantSQL:  `SELECT "s".* FROM (SELECT "id" FROM "player") "s" WHERE "s"."id" = ?`,
			wantArgs: []any{1},
		},
		{
			name:    "subquery in the filter",
			query:   Table("player").Where(InQuery{Operand: Col("teamId"), Query: ptr(Table("team").SelectColumns("id"))}),
			wantSQL: `SELECT * FROM "player" WHERE "teamId" IN (SELECT "id" FROM "team")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.query.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if len(tt.wantArgs) == 0 {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func ptr(q SelectQuery) *SelectQuery { return &q }

func TestSelectQueryJoinClauses(t *testing.T) {
	q := Table("player")
	q.Joins = []JoinClause{{
		Operator: "JOIN",
		Source:   &TableSource{Name: "player"},
	}}

	sql, _, err := q.Build()
	require.NoError(t, err)
	// The second occurrence of the table gets a generated suffixed alias.
	require.Equal(t, `SELECT "player".* FROM "player" JOIN "player" "player1"`, sql)
}

func TestSelectQueryAliasCollision(t *testing.T) {
	q := Table("player").Aliased("p")
	q.Joins = []JoinClause{{
		Operator: "JOIN",
		Source:   &TableSource{Name: "team", Alias: NewAlias("p")},
	}}

	_, _, err := q.Build()
	require.ErrorIs(t, err, ErrAliasCollision)
	require.Contains(t, err.Error(), `"p"`)
}

func TestSelectQueryCorrelatedSubquery(t *testing.T) {
	p := NewAlias("p")
	q := SelectQuery{From: &TableSource{Name: "player", Alias: p}}
	sub := Table("team").Where(Eq(Col("id"), p.Col("teamId")))
	q = q.Where(Exists{Query: &sub})

	sql, args, err := q.Build()
	require.NoError(t, err)
	require.Empty(t, args)
	require.Equal(t,
		`SELECT "p".* FROM "player" "p" WHERE EXISTS (SELECT * FROM "team" WHERE "id" = "p"."teamId")`,
		sql)
}

func TestSelectQueryConcurrentBuild(t *testing.T) {
	// Building never writes to the query value or its alias handles, so one
	// query value is safe to compile from any number of goroutines.
	q := Table("player").Aliased("p").
		Where(Eq(Col("email"), Val("a@example.com"))).
		OrderBy(Asc(Col("name")))

	want, wantArgs, err := q.Build()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sql, args, err := q.Build()
			assert.NoError(t, err)
			assert.Equal(t, want, sql)
			assert.Equal(t, wantArgs, args)
		}()
	}
	wg.Wait()
}

func TestSelectQueryCorrelatedSubquerySameTable(t *testing.T) {
	// Generated names are unique across the whole tree: when the inner
	// occurrence of the same table would collide with the outer one, it is
	// the inner one that gets the suffixed name, so the correlated reference
	// keeps binding to the outer occurrence.
	outer := &TableAlias{}
	q := SelectQuery{From: &TableSource{Name: "player", Alias: outer}}
	sub := Table("player").Where(Eq(Col("mentorId"), outer.Col("id")))
	q = q.Where(Exists{Query: &sub})

	sql, _, err := q.Build()
	require.NoError(t, err)
	require.Equal(t,
		`SELECT * FROM "player" WHERE EXISTS (SELECT * FROM "player" "player1" WHERE "mentorId" = "player"."id")`,
		sql)
}

func TestSelectQueryFinalizeIsIdempotent(t *testing.T) {
	q := Table("player").Aliased("p").
		Where(Eq(Col("email"), Val("a@example.com"))).
		OrderBy(Asc(Col("name")))

	first, err := q.Finalize()
	require.NoError(t, err)
	sql1, args1, err := first.Build()
	require.NoError(t, err)

	second, err := first.Finalize()
	require.NoError(t, err)
	sql2, args2, err := second.Build()
	require.NoError(t, err)

	require.Equal(t, sql1, sql2)
	require.Equal(t, args1, args2)
}

func TestSelectQueryBuildDoesNotMutate(t *testing.T) {
	q := Table("player").Where(Eq(Col("a"), Val(1)))

	sql1, _, err := q.Build()
	require.NoError(t, err)
	sql2, _, err := q.Build()
	require.NoError(t, err)
	require.Equal(t, sql1, sql2)

	// Deriving from an already-built query still works.
	derived := q.Where(Eq(Col("b"), Val(2)))
	sql3, _, err := derived.Build()
	require.NoError(t, err)
	require.Equal(t, `SELECT * FROM "player" WHERE ("a" = ? AND "b" = ?)`, sql3)
}

func TestSelectQueryDerivationsCopy(t *testing.T) {
	base := Table("player")
	filtered := base.Where(Eq(Col("a"), Val(1)))
	limited := base.Take(3)

	require.Nil(t, base.Filter)
	require.Nil(t, base.Limit)
	require.NotNil(t, filtered.Filter)
	require.NotNil(t, limited.Limit)

	sql, _, err := base.Build()
	require.NoError(t, err)
	require.Equal(t, `SELECT * FROM "player"`, sql)
}

func TestQualifyExprLeavesQualifiedColumnsAlone(t *testing.T) {
	p := NewAlias("p")
	q := NewAlias("q")

	e, err := QualifyExpr(And(Eq(Col("a"), Val(1)), Eq(q.Col("b"), Val(2))), p)
	require.NoError(t, err)

	sql, args := CompileExpr(e)
	require.Equal(t, `("p"."a" = ? AND "q"."b" = ?)`, sql)
	require.Equal(t, []any{1, 2}, args)
}
