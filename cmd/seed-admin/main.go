// seed-admin bootstraps a fresh install: creates the business, the admin
// console user and the default operating boxes if they do not exist yet.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/models"
	"github.com/flotadata/flota_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	adminUsername = "flotaAdmin"
	adminName     = "Flota Admin"
)

var defaultBoxes = []string{"Caja Principal", "Caja Chica"}

func main() {
	businessName := flag.String("business-name", "Flota", "Business name when creating a new business")
	timezone := flag.String("timezone", "America/Asuncion", "Business timezone")
	password := flag.String("password", "", "Required: initial admin password")
	flag.Parse()

	if strings.TrimSpace(*password) == "" {
		fmt.Fprintln(os.Stderr, "--password is required")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()

	var biz models.Business
	err := db.WithContext(ctx).First(&biz).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Fprintf(os.Stderr, "failed to lookup business: %v\n", err)
			os.Exit(1)
		}
		biz = models.Business{
			ID:       uuid.NewString(),
			Name:     *businessName,
			Timezone: *timezone,
			IsActive: utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&biz).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create business: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created business %q (id=%s)\n", biz.Name, biz.ID)
	}

	ctx = utils.SetBusinessIdInContext(ctx, biz.ID)
	ctx = utils.SetIsAdminInContext(ctx, true)

	hashed, err := utils.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.WithContext(ctx).Where("business_id = ? AND username = ?", biz.ID, adminUsername).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			BusinessId:   biz.ID,
			Name:         adminName,
			Username:     adminUsername,
			PasswordHash: hashed,
			Role:         models.UserRoleAdmin,
			IsActive:     utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: username=%q\n", adminUsername)
	} else {
		if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", existing.ID).
			Updates(map[string]any{
				"password_hash": hashed,
				"role":          models.UserRoleAdmin,
				"is_active":     true,
			}).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated admin user: username=%q\n", adminUsername)
	}

	for _, name := range defaultBoxes {
		var count int64
		if err := db.WithContext(ctx).Model(&models.OperatingBox{}).
			Where("business_id = ? AND name = ?", biz.ID, name).Count(&count).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to lookup box %q: %v\n", name, err)
			os.Exit(1)
		}
		if count > 0 {
			continue
		}
		box := models.OperatingBox{
			BusinessId: biz.ID,
			Name:       name,
			IsActive:   utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&box).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create box %q: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("Created operating box %q\n", name)
	}
}
