package client

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/goccy/go-json"

	"github.com/bgunnarsson/sqlkit/internal/cache"
	"github.com/bgunnarsson/sqlkit/internal/db"
)

func TestCachedHitSkipsDatabase(t *testing.T) {
	ctx := context.Background()
	f := newFakeDB()
	f.results["SELECT * FROM people"] = peopleRows()
	c := newFakeClient(f, WithCache(cache.NewFileStore(memfs.New())))

	view := c.Cached("", time.Minute)
	first, err := view.GetAll(ctx, "SELECT * FROM people")
	if err != nil {
		t.Fatal(err)
	}
	second, err := view.GetAll(ctx, "SELECT * FROM people")
	if err != nil {
		t.Fatal(err)
	}

	if len(f.ran) != 1 {
		t.Errorf("database hit %d times", len(f.ran))
	}
	if first[0]["id"] != int64(1) {
		t.Errorf("miss should return driver values, got %T", first[0]["id"])
	}
	if n, ok := second[0]["id"].(json.Number); !ok || n.String() != "1" {
		t.Errorf("hit id = %#v", second[0]["id"])
	}
	if second[0]["name"] != "Ann" {
		t.Errorf("hit = %v", second)
	}
}

func TestCachedShapesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	f := newFakeDB()
	f.results["SELECT * FROM people"] = peopleRows()
	c := newFakeClient(f, WithCache(cache.NewFileStore(memfs.New())))
	view := c.Cached("", 0)

	col, err := view.GetCol(ctx, "SELECT * FROM people")
	if err != nil || len(col) != 3 {
		t.Fatalf("GetCol = %v, %v", col, err)
	}
	values, err := view.GetList(ctx, "SELECT * FROM people", ListValue)
	if err != nil || values["2"] != "Bo" {
		t.Fatalf("ListValue = %v, %v", values, err)
	}
	joined, err := view.GetList(ctx, "SELECT * FROM people", ListJoin("|"))
	if err != nil || joined["2"] != "Bo|" {
		t.Fatalf("ListJoin = %v, %v", joined, err)
	}
	if len(f.ran) != 3 {
		t.Errorf("each shape should miss once, ran %d", len(f.ran))
	}
}

func TestCachedNamedEntry(t *testing.T) {
	ctx := context.Background()
	f := newFakeDB()
	f.results["SELECT name FROM people WHERE id = 1 LIMIT 1"] = &db.Rows{
		Columns: []db.Column{{Name: "name"}},
		Data:    []db.Row{{"Ann"}},
	}
	store := cache.NewFileStore(memfs.New())
	c := newFakeClient(f, WithCache(store))

	if _, err := c.Cached("ann", 0).GetOne(ctx, "SELECT name FROM people WHERE id = ?", 1); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Get(ctx, "ann"); !ok {
		t.Error("entry not stored under its name")
	}
	got, err := c.Cached("ann", 0).GetOne(ctx, "SELECT name FROM people WHERE id = ?", 1)
	if err != nil || got != "Ann" || len(f.ran) != 1 {
		t.Errorf("got %v, err %v, ran %d", got, err, len(f.ran))
	}
}

func TestCachedWithoutStore(t *testing.T) {
	ctx := context.Background()
	f := newFakeDB()
	c := newFakeClient(f)

	view := c.Cached("x", time.Minute)
	view.GetAll(ctx, "SELECT 1")
	view.GetAll(ctx, "SELECT 1")
	if len(f.ran) != 2 {
		t.Errorf("without a store every call reads the database, ran %d", len(f.ran))
	}
}
