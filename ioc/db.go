package ioc

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lvow2022/research-assistant/internal/config"
	"github.com/lvow2022/research-assistant/internal/repository/dao"
	"github.com/lvow2022/research-assistant/pkg/log"
)

// InitDB opens the paper database and migrates its tables. The sqlite
// driver keeps everything in one file next to the uploads.
func InitDB(cfg *config.Config) *gorm.DB {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.Database.DSN)
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				panic(fmt.Errorf("make db dir: %w", err))
			}
		}
		dialector = sqlite.Open(cfg.Database.DSN)
	default:
		panic(fmt.Errorf("unsupported database driver %q", cfg.Database.Driver))
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		panic(err)
	}
	if err := dao.InitTables(db); err != nil {
		panic(err)
	}
	log.WithField("driver", dialector.Name()).Info("database ready")
	return db
}
