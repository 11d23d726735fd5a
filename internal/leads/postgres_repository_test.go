package leads

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadRowColumns = []string{
	"id", "session_id", "first_name", "last_name", "email", "phone", "company_name",
	"industry_sector", "location", "company_size", "website_url", "role_title", "social_links",
	"pain_points", "budget_timeline", "notes", "source", "created_at",
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(anyArgs(18)...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	lead, err := repo.Create(context.Background(), &Lead{
		FirstName: "Jane",
		Email:     "jane@company.com",
		Source:    "website_chatbot",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, now, lead.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryCreateDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(anyArgs(18)...).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = repo.Create(context.Background(), &Lead{ID: "dup", Email: "jane@company.com", Source: "web"})
	assert.ErrorIs(t, err, ErrLeadExists)
}

func TestPostgresRepositoryCreateValidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = newPostgresRepositoryWithQuerier(mock).Create(context.Background(), &Lead{Source: "web"})
	assert.ErrorIs(t, err, ErrMissingContact)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	now := time.Now().UTC()
	rows := pgxmock.NewRows(leadRowColumns).AddRow(
		"lead-1", "sess-1", "Jane", "Doe", "jane@company.com", "", "Acme",
		"Logistics", "Austin", "25", "acme.io", "COO", "",
		"manual invoicing", "Q3", "", "website_chatbot", now,
	)
	mock.ExpectQuery("SELECT id").WithArgs("lead-1").WillReturnRows(rows)

	lead, err := repo.GetByID(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", lead.CompanyName)
	assert.Equal(t, "COO", lead.RoleTitle)

	mock.ExpectQuery("SELECT id").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrLeadNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	now := time.Now().UTC()
	rows := pgxmock.NewRows(leadRowColumns).
		AddRow("a", "", "Jane", "", "jane@company.com", "", "", "", "", "", "", "", "", "", "", "", "web", now).
		AddRow("b", "", "John", "", "john@company.com", "", "", "", "", "", "", "", "", "", "", "", "web", now)
	mock.ExpectQuery("SELECT id").WithArgs("web", 10, 0).WillReturnRows(rows)

	leads, err := repo.List(context.Background(), ListFilter{Source: "web", Limit: 10})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "John", leads[1].FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
