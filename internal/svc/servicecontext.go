package svc

import (
	"log"
	"time"

	"custody/internal/chain"
	"custody/internal/config"
	"custody/internal/locker"
	"custody/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ServiceContext struct {
	Config          config.Config
	AccountsDao     model.AccountsDao
	WalletsDao      model.WalletsDao
	TransactionsDao model.TransactionsDao
	DB              *gorm.DB
	Chains          *chain.Registry
	WalletLocks     *locker.WalletLocker
}

func NewServiceContext(c config.Config) *ServiceContext {
	db, err := initDB(c.Postgres.DSN)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	return &ServiceContext{
		Config:          c,
		AccountsDao:     model.NewAccountsDao(db),
		WalletsDao:      model.NewWalletsDao(db),
		TransactionsDao: model.NewTransactionsDao(db),
		DB:              db,
		Chains:          chain.NewRegistry(c.Networks),
		WalletLocks:     locker.New(),
	}
}

func (s *ServiceContext) Stop() {
	s.Chains.Close()
}

func initDB(dsn string) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db, nil
}
