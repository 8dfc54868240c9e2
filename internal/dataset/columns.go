package dataset

import "strings"

// Column describes one spreadsheet header and how it maps onto entity.Order.
type Column struct {
	Header      string `json:"header"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Example     string `json:"example"`
	Required    bool   `json:"required"`
	Essential   bool   `json:"essential"`
}

// Spreadsheet headers.
const (
	ColOrderID      = "ID_Pedido"
	ColOrderDate    = "Data_Pedido"
	ColStatus       = "Status_Pedido"
	ColFulfilment   = "Tipo_Envio"
	ColSalesChannel = "Sales Channel"
	ColServiceLevel = "Nivel_Entrega"
	ColStyle        = "Estilo"
	ColSKU          = "Codigo_Produto"
	ColCategory     = "Categoria"
	ColCurrency     = "Moeda"
	ColAmount       = "Valor_Pedido"
	ColShipCity     = "Ship City"
	ColShipState    = "Ship State"
	ColShipPostal   = "Ship Postal Code"
	ColShipCountry  = "Ship Country"
	ColPromotionIDs = "Promotion IDs"
	ColB2B          = "B2B"
	ColFulfilledBy  = "Fulfilled By"
)

// Columns is the data dictionary of the order spreadsheet, in sheet order.
var Columns = []Column{
	{Header: ColOrderID, Description: "Unique identifier of the order.", Kind: "nominal", Example: "405-8078784-5731545", Required: true},
	{Header: ColOrderDate, Description: "Date the order was placed.", Kind: "date", Example: "2022-04-30", Required: true},
	{Header: ColStatus, Description: "Current order status.", Kind: "nominal", Example: "Shipped, Cancelado", Required: true, Essential: true},
	{Header: ColFulfilment, Description: "Fulfilment type of the shipment.", Kind: "nominal", Example: "Merchant, Amazon"},
	{Header: ColSalesChannel, Description: "Platform where the order was placed.", Kind: "nominal", Example: "Amazon.in"},
	{Header: ColServiceLevel, Description: "Shipping service level chosen by the customer.", Kind: "nominal", Example: "Standard, Expedited", Required: true, Essential: true},
	{Header: ColStyle, Description: "Product style or model name.", Kind: "nominal", Example: "SET389"},
	{Header: ColSKU, Description: "Inventory code of the product.", Kind: "nominal", Example: "SET389-KR-NP-S"},
	{Header: ColCategory, Description: "Product category.", Kind: "nominal", Example: "Set, kurta", Required: true, Essential: true},
	{Header: ColCurrency, Description: "Transaction currency.", Kind: "nominal", Example: "INR"},
	{Header: ColAmount, Description: "Total order value.", Kind: "continuous", Example: "647.62", Required: true, Essential: true},
	{Header: ColShipCity, Description: "Destination city.", Kind: "nominal", Example: "MUMBAI"},
	{Header: ColShipState, Description: "Destination state or province.", Kind: "nominal", Example: "MAHARASHTRA"},
	{Header: ColShipPostal, Description: "Destination postal code.", Kind: "nominal", Example: "400081"},
	{Header: ColShipCountry, Description: "Destination country.", Kind: "nominal", Example: "IN"},
	{Header: ColPromotionIDs, Description: "Promotions applied to the order.", Kind: "nominal", Example: "IN Core Free Shipping", Essential: true},
	{Header: ColB2B, Description: "Business-to-business transaction flag.", Kind: "binary", Example: "False", Essential: true},
	{Header: ColFulfilledBy, Description: "Party responsible for shipping.", Kind: "nominal", Example: "Easy Ship"},
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}
