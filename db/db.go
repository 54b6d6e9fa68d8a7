package db

import (
	"os"
	"path/filepath"

	"github.com/chatterbox/engine/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormDB struct {
	DB *gorm.DB
}

func GetDB(c *config.Config, log *logrus.Logger) (*GormDB, error) {
	gormDB := &GormDB{}
	if err := gormDB.Init(c, log); err != nil {
		return nil, err
	}
	return gormDB, nil
}

func (g *GormDB) Init(c *config.Config, log *logrus.Logger) error {
	db, err := getSqliteDB(c, log)
	if err != nil {
		return err
	}
	g.DB = db

	return migrate(g.DB)
}

func getSqliteDB(c *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(c.DatabaseFile), os.ModePerm); err != nil {
		return nil, err
	}
	log.Infof("opening sqlite store: %s", c.DatabaseFile)

	gormConfig := &gorm.Config{}
	if c.Env != "prod" && c.Debug {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}
	return gorm.Open(sqlite.Open(c.DatabaseFile), gormConfig)
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserEntity{},
		&ConversationEntity{},
		&MessageEntity{},
		&MessageContentEntity{},
		&ImageEntity{},
	)
}
