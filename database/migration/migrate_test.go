package migration_test

import (
	"context"
	"testing"

	"github.com/kbukum/phrame/database"
	"github.com/kbukum/phrame/database/migration"
)

func TestUpDown(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{DSN: ":memory:", LogLevel: "silent"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, _, ok, err := migration.Version(db.GormDB); err != nil || ok {
		t.Fatalf("Version() before Up = %v, %v", ok, err)
	}

	if err := migration.Up(db.GormDB); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if err := migration.Up(db.GormDB); err != nil {
		t.Fatalf("second Up() error = %v", err)
	}
	version, dirty, ok, err := migration.Version(db.GormDB)
	if err != nil || !ok || dirty || version != 2 {
		t.Fatalf("Version() = %d, %v, %v, %v", version, dirty, ok, err)
	}

	store := database.NewStore(db)
	sum, err := store.CreateSummary(ctx, "a heron")
	if err != nil {
		t.Fatalf("CreateSummary() on migrated schema: %v", err)
	}
	id, err := store.CreateImage(ctx, sum.ID, "1-openai-x.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.AttachMetadata(ctx, id, map[string]string{"ai": "openai"}); err != nil {
		t.Fatal(err)
	}

	if err := migration.Down(db.GormDB); err != nil {
		t.Fatalf("Down() error = %v", err)
	}
	if db.GormDB.Migrator().HasTable("images") {
		t.Error("images table survived Down")
	}
}

func TestStepsRollsBackFavorite(t *testing.T) {
	db, err := database.Open(context.Background(), database.Config{DSN: ":memory:", LogLevel: "silent"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := migration.Up(db.GormDB); err != nil {
		t.Fatal(err)
	}
	if !db.GormDB.Migrator().HasColumn(&database.Image{}, "favorite") {
		t.Fatal("favorite column missing after Up")
	}
	if err := migration.Steps(db.GormDB, -1); err != nil {
		t.Fatalf("Steps(-1) error = %v", err)
	}
	if db.GormDB.Migrator().HasColumn(&database.Image{}, "favorite") {
		t.Error("favorite column survived rollback")
	}
	if version, _, _, _ := migration.Version(db.GormDB); version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
}
