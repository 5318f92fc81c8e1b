package tool

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"propdesk/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedProperties(t *testing.T, st store.Store, props ...store.Property) {
	t.Helper()
	for _, p := range props {
		if _, err := st.CreateProperty(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListPropertiesAvailableFilter(t *testing.T) {
	st := newTestStore(t)
	seedProperties(t, st,
		store.Property{Name: "A", Address: "DHA Phase 5", IsSoldOnInstallment: true},
		store.Property{Name: "B", Address: "DHA Phase 6", IsRented: true},
		store.Property{Name: "C", Address: "Gulberg"},
		store.Property{Name: "D", Address: "Model Town", IsSoldOnInstallment: true, IsRented: true},
	)

	out, err := ListProperties(st).Handler(context.Background(), map[string]any{"filter": "available"})
	if err != nil {
		t.Fatal(err)
	}

	entries := out["properties"].([]map[string]any)
	if len(entries) != 1 || entries[0]["name"] != "C" {
		t.Fatalf("available filter must return exactly the unsold, unrented properties: %v", entries)
	}
	if entries[0]["status"] != "available" {
		t.Fatalf("expected status available, got %v", entries[0]["status"])
	}
}

func TestListPropertiesLocationSubstringCaseInsensitive(t *testing.T) {
	st := newTestStore(t)
	seedProperties(t, st,
		store.Property{Name: "A", Address: "123 DHA Lahore"},
		store.Property{Name: "B", Address: "Clifton Karachi"},
	)

	out, err := ListProperties(st).Handler(context.Background(), map[string]any{"location": "dha"})
	if err != nil {
		t.Fatal(err)
	}

	entries := out["properties"].([]map[string]any)
	if len(entries) != 1 || entries[0]["name"] != "A" {
		t.Fatalf("location filter should substring-match case-insensitively: %v", entries)
	}
}

func TestListPropertiesSoldInLocation(t *testing.T) {
	st := newTestStore(t)
	seedProperties(t, st,
		store.Property{Name: "Plot 5", Address: "Plot 5, Bahria Town Karachi", IsSoldOnInstallment: true},
		store.Property{Name: "Flat 2", Address: "Gulshan", IsRented: true},
	)

	out, err := ListProperties(st).Handler(context.Background(), map[string]any{
		"filter":   "sold",
		"location": "Bahria Town",
	})
	if err != nil {
		t.Fatal(err)
	}

	entries := out["properties"].([]map[string]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 property, got %d", len(entries))
	}
	summary := out["summary"].(string)
	if !strings.Contains(summary, "Plot 5") {
		t.Fatalf("summary should mention the property name: %s", summary)
	}
}

func TestListPropertiesTypeFilter(t *testing.T) {
	st := newTestStore(t)
	seedProperties(t, st,
		store.Property{Name: "A", Address: "X", PropertyType: "House"},
		store.Property{Name: "B", Address: "Y", PropertyType: "Plot"},
	)

	out, err := ListProperties(st).Handler(context.Background(), map[string]any{"filter": "house"})
	if err != nil {
		t.Fatal(err)
	}
	entries := out["properties"].([]map[string]any)
	if len(entries) != 1 || entries[0]["name"] != "A" {
		t.Fatalf("type filter should substring-match the property type: %v", entries)
	}
}

func TestListPropertiesEmptyResultSummary(t *testing.T) {
	st := newTestStore(t)

	out, err := ListProperties(st).Handler(context.Background(), map[string]any{"filter": "rented"})
	if err != nil {
		t.Fatal(err)
	}
	summary := out["summary"].(string)
	if summary == "" {
		t.Fatal("summary must never be empty")
	}
	if !strings.Contains(strings.ToLower(summary), "no properties") {
		t.Fatalf("summary should state that nothing matched: %s", summary)
	}
	if out["count"].(int) != 0 {
		t.Fatalf("expected count 0, got %v", out["count"])
	}
}

func TestAddPropertyThenGetByID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	added, err := AddProperty(st).Handler(ctx, map[string]any{"name": "X", "address": "Y"})
	if err != nil {
		t.Fatal(err)
	}

	id := added["propertyId"].(string)
	if id == "" {
		t.Fatal("expected a property id")
	}
	msg := added["message"].(string)
	if !strings.Contains(msg, `"X"`) || !strings.Contains(msg, "Type N/A") || !strings.Contains(msg, id) {
		t.Fatalf("confirmation should name the property, its type and its id: %s", msg)
	}

	got, err := GetPropertyDetails(st).Handler(ctx, map[string]any{
		"identifier":     id,
		"identifierType": "id",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got["found"] != true {
		t.Fatalf("expected found=true, got %v", got["found"])
	}
	record := got["property"].(map[string]any)
	if record["name"] != "X" || record["address"] != "Y" {
		t.Fatalf("round-trip mismatch: %v", record)
	}
}

func TestGetPropertyDetailsNotFound(t *testing.T) {
	st := newTestStore(t)

	out, err := GetPropertyDetails(st).Handler(context.Background(), map[string]any{
		"identifier":     "Sea View Villa",
		"identifierType": "name",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out["found"] != false {
		t.Fatal("expected found=false for a miss")
	}
	msg := out["message"].(string)
	if !strings.Contains(msg, "Sea View Villa") || !strings.Contains(msg, "name") {
		t.Fatalf("not-found message should name the identifier and its type: %s", msg)
	}
}

func TestUpdatePropertyDetailsNoOp(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedProperties(t, st, store.Property{ID: "p1", Name: "Plot 9", Address: "DHA"})

	out, err := UpdatePropertyDetails(st).Handler(ctx, map[string]any{"propertyId": "p1"})
	if err != nil {
		t.Fatal(err)
	}
	if out["updated"] != false {
		t.Fatal("no-op update must report updated=false")
	}
	if _, ok := out["property"]; ok {
		t.Fatal("no-op update must not return a property record")
	}
	if out["message"].(string) == "" {
		t.Fatal("no-op update must explain itself")
	}

	unchanged, err := st.GetPropertyByID(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if unchanged.Name != "Plot 9" || unchanged.Address != "DHA" {
		t.Fatalf("no-op update mutated the store: %+v", unchanged)
	}
}

func TestUpdatePropertyDetailsApplied(t *testing.T) {
	st := newTestStore(t)
	seedProperties(t, st, store.Property{ID: "p1", Name: "Plot 9", Address: "DHA", PropertyType: "Plot"})

	out, err := UpdatePropertyDetails(st).Handler(context.Background(), map[string]any{
		"propertyId": "p1",
		"name":       "Plot 9A",
		"isRented":   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out["updated"] != true {
		t.Fatalf("expected updated=true, got %v", out["updated"])
	}
	record := out["property"].(map[string]any)
	if record["name"] != "Plot 9A" || record["isRented"] != true {
		t.Fatalf("patch not reflected: %v", record)
	}
	msg := out["message"].(string)
	if !strings.Contains(msg, "Plot 9A") || !strings.Contains(msg, "DHA") || !strings.Contains(msg, "Plot") {
		t.Fatalf("message should restate name, address and type: %s", msg)
	}
}

func TestUpdatePropertyDetailsMiss(t *testing.T) {
	st := newTestStore(t)

	out, err := UpdatePropertyDetails(st).Handler(context.Background(), map[string]any{
		"propertyId": "missing",
		"name":       "x",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out["updated"] != false {
		t.Fatal("expected updated=false for a miss")
	}
	if !strings.Contains(out["message"].(string), "missing") {
		t.Fatalf("miss message should name the id: %s", out["message"])
	}
}
