package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yonaskd/fleetms/backup"
	"github.com/yonaskd/fleetms/config"
	"github.com/yonaskd/fleetms/gps"
	"github.com/yonaskd/fleetms/models"
	"github.com/yonaskd/fleetms/routes"
	"github.com/yonaskd/fleetms/scan"
	"github.com/yonaskd/fleetms/storage"
	"github.com/yonaskd/fleetms/utils"
)

func allModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Branch{},
		&models.Vendor{},
		&models.ExpenseCategory{},
		&models.Vehicle{},
		&models.StoredFile{},
		&models.Expense{},
		&models.Inspection{},
		&models.GPSUploadRecord{},
	}
}

// seedAdminUser creates the first admin account when the users table is
// empty. Registration is admin-only, so a fresh deployment needs this seed
// (or a manually inserted row) before anyone can log in.
func seedAdminUser(db *gorm.DB, cfg config.AppConfig) {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		utils.Sugar.Warnf("admin seed: user count failed: %v", err)
		return
	}
	if count > 0 {
		return
	}
	if cfg.BootstrapAdminPassword == "" || len(cfg.AdminUsernames) == 0 {
		utils.Sugar.Warn("users table is empty and no bootstrap admin configured; set ADMIN_USERNAMES and BOOTSTRAP_ADMIN_PASSWORD")
		return
	}

	username := strings.ToLower(strings.TrimSpace(cfg.AdminUsernames[0]))
	hash, err := utils.HashPassword(cfg.BootstrapAdminPassword)
	if err != nil {
		utils.Sugar.Errorf("admin seed: hash failed: %v", err)
		return
	}
	user := models.User{Username: username, DisplayName: username, PasswordHash: hash}
	if err := db.Create(&user).Error; err != nil {
		utils.Sugar.Errorf("admin seed: create failed: %v", err)
		return
	}
	utils.Sugar.Infof("seeded bootstrap admin user %q", username)
}

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(allModels()...)
	seedAdminUser(db, cfg)

	backups, err := backup.NewManager(db, cfg.BackupDir, utils.Sugar)
	if err != nil {
		utils.Sugar.Fatalf("backup manager init failed: %v", err)
	}

	// Subcommands: migrate | backup | restore <archive>
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			// InitDatabase already migrated, nothing more to do
			fmt.Println("migration complete")
			return
		case "backup":
			name, err := backups.Run(context.Background())
			if err != nil {
				utils.Sugar.Fatalf("backup failed: %v", err)
			}
			fmt.Println("backup written:", name)
			return
		case "restore":
			if len(os.Args) < 3 {
				utils.Sugar.Fatal("usage: fleetms restore <archive-name>")
			}
			if err := backups.Restore(context.Background(), os.Args[2]); err != nil {
				utils.Sugar.Fatalf("restore failed: %v", err)
			}
			fmt.Println("restore complete")
			return
		default:
			utils.Sugar.Fatalf("unknown command %q (expected migrate, backup or restore)", os.Args[1])
		}
	}

	files, err := storage.New(cfg.StorageDir)
	if err != nil {
		utils.Sugar.Fatalf("storage init failed: %v", err)
	}

	sessions := gps.NewSessionStore(time.Duration(cfg.GPSSessionTTLMinutes) * time.Minute)
	reconciler := gps.NewReconciler(gps.NewGormStore(db), utils.Sugar)
	scanner := scan.NewClient(cfg.ScanEndpoint, cfg.ScanAPIKey, time.Duration(cfg.ScanTimeoutSeconds)*time.Second)

	if sched, err := backups.Schedule(cfg.BackupCronSpec); err != nil {
		utils.Sugar.Fatalf("backup scheduler failed: %v", err)
	} else if sched != nil {
		defer sched.Stop()
	}
	if cfg.BackupRetentionDays > 0 {
		backups.StartRetentionCleaner(time.Duration(cfg.BackupRetentionDays)*24*time.Hour, time.Hour)
	}

	r := routes.SetupRouter(db, routes.Deps{
		Sessions:   sessions,
		Reconciler: reconciler,
		Files:      files,
		Scanner:    scanner,
		Backups:    backups,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
