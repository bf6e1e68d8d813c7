package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/aryam643/white-board/internal/domain"
)

// MigrateDB handles all database migrations using the provided GORM DB instance.
// 返回错误以便调用者知道迁移是否成功。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	// 迁移 Rooms 表 (房间码需要指定索引长度，用自定义 SQL 创建)
	if err := migrateRoomsTable(db); err != nil {
		return fmt.Errorf("failed to migrate rooms table: %w", err)
	}

	// 使用 AutoMigrate 迁移命令日志表
	if err := db.AutoMigrate(&domain.DrawCommand{}); err != nil {
		logrus.Errorf("Failed to auto-migrate draw_commands table: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}

// migrateRoomsTable 处理 Rooms 表迁移
func migrateRoomsTable(db *gorm.DB) error {
	var count int64
	db.Raw("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = 'rooms'").Count(&count)

	if count == 0 {
		return createRoomsTable(db)
	}
	return updateRoomsTable(db)
}

// createRoomsTable 创建 rooms 表
func createRoomsTable(db *gorm.DB) error {
	sql := `
	CREATE TABLE rooms (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room_id VARCHAR(191) NOT NULL, -- 限制长度以匹配索引
		created_at DATETIME(3),
		last_activity DATETIME(3) NOT NULL,
		updated_at DATETIME(3),
		INDEX idx_last_activity (last_activity),
		UNIQUE INDEX idx_room_id (room_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci;
	`
	if err := db.Exec(sql).Error; err != nil {
		logrus.Errorf("Failed to create rooms table: %v", err)
		return fmt.Errorf("failed to create rooms table: %w", err)
	}
	logrus.Info("Rooms table created successfully")
	return nil
}

// updateRoomsTable 通过 AutoMigrate 补齐已有表的列和索引
func updateRoomsTable(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Room{}); err != nil {
		logrus.Errorf("Failed to auto-migrate Room table for index updates: %v", err)
		return fmt.Errorf("failed to migrate room indexes: %w", err)
	}
	logrus.Info("Rooms table schema checked/updated successfully")
	return nil
}
