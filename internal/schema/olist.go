package schema

// Raw source table names.
const (
	Customers   = "customers"
	Sellers     = "sellers"
	Products    = "products"
	Orders      = "orders"
	OrderItems  = "order_items"
	Translation = "translation"
	Geolocation = "geolocation"
)

// Dimensional model table names. The portuguese names match the analytical
// model the warehouse consumers already query.
const (
	DimGeolocalizacao = "dim_geolocalizacao"
	DimCliente        = "dim_cliente"
	DimProduto        = "dim_produto"
	DimVendedor       = "dim_vendedor"
	DimTempo          = "dim_tempo"
	FatoVendas        = "fato_vendas"
)

var allContracts = []Contract{
	{
		Name: Customers,
		Columns: []Column{
			{Name: "customer_id", Type: Text},
			{Name: "customer_unique_id", Type: Text},
			{Name: "customer_zip_code_prefix", Type: Int},
			{Name: "customer_city", Type: Text},
			{Name: "customer_state", Type: Text},
		},
	},
	{
		Name: Sellers,
		Columns: []Column{
			{Name: "seller_id", Type: Text},
			{Name: "seller_zip_code_prefix", Type: Int},
			{Name: "seller_city", Type: Text},
			{Name: "seller_state", Type: Text},
		},
	},
	{
		Name: Products,
		Columns: []Column{
			{Name: "product_id", Type: Text},
			{Name: "product_category_name", Type: Text, Nullable: true},
			{Name: "product_name_lenght", Type: Int, Nullable: true},
			{Name: "product_description_lenght", Type: Int, Nullable: true},
			{Name: "product_photos_qty", Type: Int, Nullable: true},
		},
	},
	{
		Name: Orders,
		Columns: []Column{
			{Name: "order_id", Type: Text},
			{Name: "customer_id", Type: Text},
			{Name: "order_status", Type: Text},
			{Name: "order_purchase_timestamp", Type: Timestamp},
		},
	},
	{
		Name: OrderItems,
		Columns: []Column{
			{Name: "order_id", Type: Text},
			{Name: "order_item_id", Type: Int},
			{Name: "product_id", Type: Text},
			{Name: "seller_id", Type: Text},
			{Name: "price", Type: Float},
			{Name: "freight_value", Type: Float},
		},
	},
	{
		Name: Translation,
		Columns: []Column{
			{Name: "product_category_name", Type: Text},
			{Name: "product_category_name_english", Type: Text},
		},
	},
	{
		Name: Geolocation,
		Columns: []Column{
			{Name: "geolocation_zip_code_prefix", Type: Int},
			{Name: "geolocation_lat", Type: Float},
			{Name: "geolocation_lng", Type: Float},
			{Name: "geolocation_city", Type: Text},
			{Name: "geolocation_state", Type: Text},
		},
	},

	{
		Name: DimGeolocalizacao,
		Key:  "id_geolocalizacao",
		Columns: []Column{
			{Name: "id_geolocalizacao", Type: Int},
			{Name: "geolocation_zip_code_prefix", Type: Int},
			{Name: "latitude", Type: Float},
			{Name: "longitude", Type: Float},
		},
	},
	{
		Name: DimCliente,
		Key:  "id_cliente",
		Columns: []Column{
			{Name: "id_cliente", Type: Int},
			{Name: "id_negocio_cliente", Type: Text},
			{Name: "cidade_cliente", Type: Text},
			{Name: "estado_cliente", Type: Text},
			{Name: "id_geolocalizacao", Type: Int, Nullable: true},
		},
	},
	{
		Name: DimProduto,
		Key:  "id_produto",
		Columns: []Column{
			{Name: "id_produto", Type: Int},
			{Name: "id_negocio_produto", Type: Text},
			{Name: "categoria_produto", Type: Text},
			{Name: "product_photos_qty", Type: Int, Nullable: true},
		},
	},
	{
		Name: DimVendedor,
		Key:  "id_vendedor",
		Columns: []Column{
			{Name: "id_vendedor", Type: Int},
			{Name: "id_negocio_vendedor", Type: Text},
			{Name: "cidade_vendedor", Type: Text},
			{Name: "estado_vendedor", Type: Text},
			{Name: "id_geolocalizacao", Type: Int, Nullable: true},
		},
	},
	{
		Name: DimTempo,
		Key:  "id_tempo",
		Columns: []Column{
			{Name: "id_tempo", Type: Int},
			{Name: "data", Type: Date},
			{Name: "ano", Type: Int},
			{Name: "mes", Type: Int},
			{Name: "dia", Type: Int},
			{Name: "trimestre", Type: Int},
			{Name: "nome_dia_semana", Type: Text},
		},
	},
	{
		Name: FatoVendas,
		Columns: []Column{
			{Name: "id_produto", Type: Int, Nullable: true},
			{Name: "id_cliente", Type: Int, Nullable: true},
			{Name: "id_vendedor", Type: Int, Nullable: true},
			{Name: "id_tempo", Type: Int, Nullable: true},
			{Name: "id_pedido", Type: Text},
			{Name: "preco", Type: Float},
			{Name: "valor_frete", Type: Float},
			{Name: "status_pedido", Type: Text},
		},
	},
}
