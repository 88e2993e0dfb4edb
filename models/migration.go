package models

import (
	"log"

	"github.com/flotadata/flota_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{}, &User{},
		&OperatingBox{},
		&LedgerEntry{}, &BoxMovement{}, &BoxHistoryEntry{},
		&PendingPayment{},
		&BoxEventRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
