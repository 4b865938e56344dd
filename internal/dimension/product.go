package dimension

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

// categoryFallback is the label used when a product has no category or the
// translation table has no English name for it.
const categoryFallback = "N/A"

// CategoryLabel turns a raw snake_case category name into the display label
// used by the product dimension ("fashion_shoes" -> "Fashion Shoes").
func CategoryLabel(raw any) string {
	s, ok := raw.(string)
	if !ok || s == "" {
		return categoryFallback
	}
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// Product builds the product dimension keyed by product_id. The raw
// portuguese category name is joined against the translation table; products
// without a translated category carry the fallback label.
func (b *Builder) Product(ctx context.Context, products, translation *table.Table) (*table.Table, error) {
	out, err := b.eng.From(products).
		Select("product_id", "product_category_name", "product_photos_qty").
		LeftJoin(b.eng.From(translation), "product_category_name", "product_category_name", "product_category_name_english").
		WithColumn("categoria_produto", func(r records.Record) (any, error) {
			return CategoryLabel(r["product_category_name_english"]), nil
		}).
		Rename(map[string]string{"product_id": "id_negocio_produto"}).
		DistinctBy("id_negocio_produto").
		WithColumn("id_produto", keyColumn(schema.DimProduto, "id_negocio_produto")).
		Select("id_produto", "id_negocio_produto", "categoria_produto", "product_photos_qty").
		Materialize(ctx)
	if err != nil {
		return nil, err
	}
	return b.finish(out, schema.DimProduto)
}
