package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

func newTestLoader() *Loader {
	return NewLoader(schema.NewRegistry(), logger.NewTestLogger())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const ordersCSV = `order_id,customer_id,order_status,order_purchase_timestamp
o1,c1,delivered,2018-03-10 16:45:00
o2,c2,shipped,2018-08-15 09:00:00
`

func TestLoadTypesAndNulls(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "olist_orders_dataset.csv", ordersCSV)
	writeFile(t, dir, "olist_products_dataset.csv",
		"product_id,product_category_name,product_name_lenght,product_description_lenght,product_photos_qty\n"+
			"p1,,,,2\n")

	got, err := newTestLoader().Load(context.Background(), dir, schema.Orders)
	if err != nil {
		t.Fatal(err)
	}
	if got.NumRows() != 2 {
		t.Fatalf("rows = %d", got.NumRows())
	}
	ts, ok := got.Rows[0]["order_purchase_timestamp"].(time.Time)
	if !ok {
		t.Fatalf("timestamp type = %T", got.Rows[0]["order_purchase_timestamp"])
	}
	if ts != time.Date(2018, 3, 10, 16, 45, 0, 0, time.UTC) {
		t.Fatalf("timestamp = %v", ts)
	}

	products, err := newTestLoader().Load(context.Background(), dir, schema.Products)
	if err != nil {
		t.Fatal(err)
	}
	r := products.Rows[0]
	if r["product_category_name"] != nil || r["product_name_lenght"] != nil {
		t.Fatalf("row = %v, want empty nullable cells loaded as null", r)
	}
	if r["product_photos_qty"] != int64(2) {
		t.Fatalf("product_photos_qty = %v (%T)", r["product_photos_qty"], r["product_photos_qty"])
	}
}

func TestLoadRejectsNullInNonNullableColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "olist_orders_dataset.csv",
		"order_id,customer_id,order_status,order_purchase_timestamp\n"+
			"o1,c1,delivered,2018-03-10 16:45:00\no2,,shipped,2018-08-15 09:00:00\n")

	_, err := newTestLoader().Load(context.Background(), dir, schema.Orders)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if pe.Line != 3 || pe.Column != "customer_id" {
		t.Fatalf("location = line %d column %q", pe.Line, pe.Column)
	}
	if !errors.Is(err, errNullCell) {
		t.Fatalf("err = %v, want the non-nullable violation", err)
	}
}

func TestLoadReordersAndIgnoresExtraColumns(t *testing.T) {
	dir := t.TempDir()
	// Columns shuffled relative to the contract, plus an unknown one.
	writeFile(t, dir, "olist_sellers_dataset.csv",
		"seller_state,seller_id,extra,seller_zip_code_prefix,seller_city\nSP,s1,x,01037,sao paulo\n")

	got, err := newTestLoader().Load(context.Background(), dir, schema.Sellers)
	if err != nil {
		t.Fatal(err)
	}
	r := got.Rows[0]
	if r["seller_id"] != "s1" || r["seller_state"] != "SP" {
		t.Fatalf("row = %v", r)
	}
	if r["seller_zip_code_prefix"] != int64(1037) {
		t.Fatalf("zip = %v (%T), want leading zeros parsed as int", r["seller_zip_code_prefix"], r["seller_zip_code_prefix"])
	}
	if _, present := r["extra"]; present {
		t.Fatal("unknown source columns must not leak into the table")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := newTestLoader().Load(context.Background(), t.TempDir(), schema.Orders)
	var nf *SourceNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want SourceNotFoundError", err)
	}
}

func TestLoadMissingHeaderColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "olist_orders_dataset.csv", "order_id,customer_id\no1,c1\n")

	_, err := newTestLoader().Load(context.Background(), dir, schema.Orders)
	if err == nil {
		t.Fatal("expected error for header missing a contract column")
	}
}

func TestLoadBadCellFailsWithLocation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "olist_orders_dataset.csv",
		"order_id,customer_id,order_status,order_purchase_timestamp\no1,c1,delivered,not-a-date\n")

	_, err := newTestLoader().Load(context.Background(), dir, schema.Orders)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if pe.Line != 2 || pe.Column != "order_purchase_timestamp" {
		t.Fatalf("location = line %d column %q", pe.Line, pe.Column)
	}
}

func writeDataset(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, dir, "olist_customers_dataset.csv",
		"customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state\nc1,u1,01037,sao paulo,SP\n")
	writeFile(t, dir, "olist_orders_dataset.csv", ordersCSV)
	writeFile(t, dir, "olist_order_items_dataset.csv",
		"order_id,order_item_id,product_id,seller_id,price,freight_value\no1,1,p1,s1,49.90,8.70\n")
	writeFile(t, dir, "olist_products_dataset.csv",
		"product_id,product_category_name,product_name_lenght,product_description_lenght,product_photos_qty\np1,toys,4,40,1\n")
	writeFile(t, dir, "olist_sellers_dataset.csv",
		"seller_id,seller_zip_code_prefix,seller_city,seller_state\ns1,01037,sao paulo,SP\n")
	writeFile(t, dir, "olist_geolocation_dataset.csv",
		"geolocation_zip_code_prefix,geolocation_lat,geolocation_lng,geolocation_city,geolocation_state\n01037,-23.5,-46.6,sao paulo,SP\n")
	writeFile(t, dir, "product_category_name_translation.csv",
		"product_category_name,product_category_name_english\ntoys,toys\n")
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	tables, err := newTestLoader().LoadAll(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != len(tableFiles) {
		t.Fatalf("tables = %d, want %d", len(tables), len(tableFiles))
	}
	for name, tbl := range tables {
		if tbl.Name != name {
			t.Fatalf("table %q carries name %q", name, tbl.Name)
		}
		if tbl.NumRows() == 0 {
			t.Fatalf("table %q is empty", name)
		}
	}
}

func TestLoadAllFailsOnAnyMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)
	if err := os.Remove(filepath.Join(dir, "olist_sellers_dataset.csv")); err != nil {
		t.Fatal(err)
	}
	if _, err := newTestLoader().LoadAll(context.Background(), dir); err == nil {
		t.Fatal("expected error when one file is missing")
	}
}
