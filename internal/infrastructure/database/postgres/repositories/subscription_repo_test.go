package repositories

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/leadscore/internal/infrastructure/database/postgres"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/leadscore/pkg/errors"
)

type SubscriptionRepoTestSuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	db   *sql.DB
	repo *SubscriptionRepository
}

func (s *SubscriptionRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	s.repo = NewSubscriptionRepository(postgres.NewConnectionWithDB(s.db, nil), logging.NewNopLogger())
}

func (s *SubscriptionRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *SubscriptionRepoTestSuite) TestGetAssistantID_Found() {
	s.mock.ExpectQuery(regexp.QuoteMeta(selectAssistantID)).
		WithArgs("123-ABC-456").
		WillReturnRows(sqlmock.NewRows([]string{"assistant_id"}).AddRow("asst_42"))

	id, err := s.repo.GetAssistantID(context.Background(), "123-ABC-456")
	s.NoError(err)
	s.Equal("asst_42", id)
}

func (s *SubscriptionRepoTestSuite) TestGetAssistantID_NotFound() {
	s.mock.ExpectQuery("SELECT assistant_id FROM subscriptions").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.repo.GetAssistantID(context.Background(), "missing")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeSubscriptionNotFound))
	s.True(pkgerrors.IsNotFound(err))
}

func (s *SubscriptionRepoTestSuite) TestGetAssistantID_EmptyMapping() {
	s.mock.ExpectQuery("SELECT assistant_id FROM subscriptions").
		WithArgs("blank").
		WillReturnRows(sqlmock.NewRows([]string{"assistant_id"}).AddRow(""))

	_, err := s.repo.GetAssistantID(context.Background(), "blank")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeSubscriptionNotFound))
}

func (s *SubscriptionRepoTestSuite) TestGetAssistantID_DatabaseError() {
	s.mock.ExpectQuery("SELECT assistant_id FROM subscriptions").
		WithArgs("sub").
		WillReturnError(errors.New("conn reset"))

	_, err := s.repo.GetAssistantID(context.Background(), "sub")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
	s.False(pkgerrors.IsNotFound(err))
}

func (s *SubscriptionRepoTestSuite) TestGetAssistantID_RequiresID() {
	_, err := s.repo.GetAssistantID(context.Background(), "  ")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeInput))
}

func (s *SubscriptionRepoTestSuite) TestUpsert() {
	s.mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs("sub", "asst_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.Upsert(context.Background(), "sub", "asst_1"))
	s.True(pkgerrors.IsCode(s.repo.Upsert(context.Background(), "sub", ""), pkgerrors.ErrCodeInput))
}

func (s *SubscriptionRepoTestSuite) TestList() {
	now := time.Now()
	s.mock.ExpectQuery("SELECT subscription_id, assistant_id, created_at, updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"subscription_id", "assistant_id", "created_at", "updated_at"}).
			AddRow("a", "asst_a", now, now).
			AddRow("b", "asst_b", now, now))

	subs, err := s.repo.List(context.Background())
	s.NoError(err)
	s.Require().Len(subs, 2)
	s.Equal("asst_b", subs[1].AssistantID)
}

func TestSubscriptionRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionRepoTestSuite))
}

//Personal.AI order the ending
