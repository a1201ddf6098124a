package assistant

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// ProductMentionFormat is the inline shape the sales persona must use for
// every product it names. productMentionPattern parses the same shape back
// out of the reply; the two must change together.
const ProductMentionFormat = "**Product Name** (ID: product_id) - $price"

var productMentionPattern = regexp.MustCompile(`\*\*([^*]+)\*\*\s*\(ID:\s*([^)]+)\)\s*-\s*\$([0-9.]+)`)

const responseTypeSales = "sales"

// ProductMention is a product referenced in a model reply.
type ProductMention struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	BuyLink  string  `json:"buy_link"`
	ImageURL string  `json:"image_url"`
}

// ProductInfo is the result of scanning a reply for product mentions.
type ProductInfo struct {
	Products      []ProductMention `json:"products"`
	TotalProducts int              `json:"total_products"`
	ResponseType  string           `json:"response_type"`
	HasProducts   bool             `json:"has_products"`
}

// Metadata summarises the products attached to a Response.
type Metadata struct {
	TotalProducts int    `json:"total_products"`
	ResponseType  string `json:"response_type"`
	HasProducts   bool   `json:"has_products"`
}

// Response is the structured reply handed to the HTTP and Telegram layers.
type Response struct {
	Text     string           `json:"text"`
	Intent   Intent           `json:"intent"`
	Agent    string           `json:"agent"`
	Products []ProductMention `json:"products"`
	Metadata Metadata         `json:"metadata"`
}

// hasThousandsSeparator reports whether the price ending at end continues
// as ",ddd", which the price class cannot capture.
func hasThousandsSeparator(text string, end int) bool {
	return end+1 < len(text) && text[end] == ',' && text[end+1] >= '0' && text[end+1] <= '9'
}

// FormatProductMention renders a product in ProductMentionFormat.
func FormatProductMention(name, id string, price float64) string {
	return fmt.Sprintf("**%s** (ID: %s) - $%.2f", name, id, price)
}

// ProductLink is the storefront path for a product identifier.
func ProductLink(id string) string { return "/product/" + id }

// ProductImageURL is the image path for a product identifier.
func ProductImageURL(id string) string { return "/images/product_" + id + ".jpg" }

// ExtractProductInfo parses product mentions out of a reply. Identifiers
// are trusted as written; nothing is checked against the catalog. A mention
// whose price does not parse (e.g. "1.2.3") or uses a thousands separator
// (e.g. "1,299.00") is skipped and the scan continues.
func ExtractProductInfo(text string) ProductInfo {
	matches := productMentionPattern.FindAllStringSubmatchIndex(text, -1)
	products := make([]ProductMention, 0, len(matches))

	for _, loc := range matches {
		name := strings.TrimSpace(text[loc[2]:loc[3]])
		id := strings.TrimSpace(text[loc[4]:loc[5]])
		rawPrice := text[loc[6]:loc[7]]
		if hasThousandsSeparator(text, loc[1]) {
			slog.Warn("Skipping product mention with grouped price", "product_id", id, "price", rawPrice)
			continue
		}
		// A sentence-ending period is captured by the price class.
		price, err := strconv.ParseFloat(strings.TrimRight(rawPrice, "."), 64)
		if err != nil {
			slog.Warn("Skipping product mention with malformed price", "product_id", id, "price", rawPrice, "error", err)
			continue
		}
		products = append(products, ProductMention{
			ID:       id,
			Name:     name,
			Price:    price,
			BuyLink:  ProductLink(id),
			ImageURL: ProductImageURL(id),
		})
	}

	return ProductInfo{
		Products:      products,
		TotalProducts: len(products),
		ResponseType:  responseTypeSales,
		HasProducts:   len(products) > 0,
	}
}

// FormatResponse wraps a raw model reply. Only sales replies are scanned
// for products; other intents carry an empty product list.
func FormatResponse(text string, intent Intent) Response {
	resp := Response{
		Text:     text,
		Intent:   intent,
		Agent:    AgentName(intent),
		Products: []ProductMention{},
		Metadata: Metadata{ResponseType: string(intent)},
	}

	if intent == IntentSales {
		info := ExtractProductInfo(text)
		resp.Products = info.Products
		resp.Metadata = Metadata{
			TotalProducts: info.TotalProducts,
			ResponseType:  info.ResponseType,
			HasProducts:   info.HasProducts,
		}
	}

	return resp
}
