package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/storefront-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func shirtInput(userID, productID uint, quantity int) AddCartItemInput {
	return AddCartItemInput{
		UserID:    userID,
		ProductID: productID,
		Title:     "Shirt",
		Price:     models.MustMoney("10.00"),
		Image:     "shirt.png",
		Quantity:  quantity,
	}
}
