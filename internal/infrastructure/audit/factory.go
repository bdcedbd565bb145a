package audit

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

// New builds the AuditService selected by cfg.Audit.Driver. The returned close function
// releases the driver's resources and is never nil.
func New(cfg *config.Config, log logger.Logger) (service.AuditService, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Audit.Driver {
	case "", config.AuditDriverLog:
		return NewLogAuditService(log), noop, nil

	case config.AuditDriverDatabase:
		db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open audit database: %w", err)
		}
		svc, err := NewGormAuditService(db, cfg.Database.AutoMigrate)
		if err != nil {
			return nil, noop, fmt.Errorf("migrate audit table: %w", err)
		}
		closeFn := func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
		return svc, closeFn, nil

	case config.AuditDriverKafka:
		p, err := NewKafkaProducer(&cfg.Audit, log)
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown audit driver %q", cfg.Audit.Driver)
}
