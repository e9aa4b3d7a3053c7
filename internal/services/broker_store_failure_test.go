package services

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/cms-resource-broker/internal/config"
	"github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/metrics"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestResourceBroker_StoreFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnError(stderrors.New("connection reset by peer"))

	registry := prometheus.NewRegistry()
	cfg := config.Default().Broker
	broker := NewResourceBroker(BrokerDeps{
		Stores:  repository.NewStores(db),
		Logger:  zerolog.Nop(),
		Metrics: metrics.New(registry),
		Config:  cfg,
	})

	_, err = broker.GetUsers(context.Background(), Caller{User: cfg.AdminUser, Project: cfg.OnlineProject})
	require.Error(t, err)
	assert.Equal(t, errors.KindStoreFailure, errors.KindOf(err))
	assert.ErrorIs(t, err, errors.ErrStoreFailure)
	assert.Contains(t, err.Error(), "connection reset by peer")

	count, err := testutil.GatherAndCount(registry, "broker_store_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, mock.ExpectationsWereMet())
}
