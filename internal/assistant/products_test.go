package assistant_test

import (
	"strings"
	"testing"

	"github.com/edgard/baristabot/internal/assistant"
)

func TestExtractProductInfo(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		text     string
		expected []assistant.ProductMention
	}{
		{
			name: "single mention",
			text: "Try our **Ethiopia Yirgacheffe** (ID: 7) - $18.99 today",
			expected: []assistant.ProductMention{
				{ID: "7", Name: "Ethiopia Yirgacheffe", Price: 18.99, BuyLink: "/product/7", ImageURL: "/images/product_7.jpg"},
			},
		},
		{
			name: "two mentions",
			text: "**House Blend** (ID: 2) - $12.50\n- Smooth\n**Decaf** (ID: 3) - $11",
			expected: []assistant.ProductMention{
				{ID: "2", Name: "House Blend", Price: 12.5, BuyLink: "/product/2", ImageURL: "/images/product_2.jpg"},
				{ID: "3", Name: "Decaf", Price: 11, BuyLink: "/product/3", ImageURL: "/images/product_3.jpg"},
			},
		},
		{
			name: "identifier is trimmed",
			text: "**Cold Brew Kit** (ID:  kit-1 ) - $30.00",
			expected: []assistant.ProductMention{
				{ID: "kit-1", Name: "Cold Brew Kit", Price: 30, BuyLink: "/product/kit-1", ImageURL: "/images/product_kit-1.jpg"},
			},
		},
		{
			name:     "no mention",
			text:     "We have many great coffees.",
			expected: nil,
		},
		{
			name:     "malformed price is skipped",
			text:     "**Broken** (ID: 4) - $1.2.3",
			expected: nil,
		},
		{
			name: "malformed price does not stop the scan",
			text: "**Broken** (ID: 4) - $1.2.3 and **Mocha Java** (ID: 5) - $14.25",
			expected: []assistant.ProductMention{
				{ID: "5", Name: "Mocha Java", Price: 14.25, BuyLink: "/product/5", ImageURL: "/images/product_5.jpg"},
			},
		},
		{
			name: "grouped price is skipped",
			text: "**La Marzocco Linea** (ID: 9) - $1,299.00 or **Aeropress** (ID: 10) - $39.95, both ship today",
			expected: []assistant.ProductMention{
				{ID: "10", Name: "Aeropress", Price: 39.95, BuyLink: "/product/10", ImageURL: "/images/product_10.jpg"},
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			info := assistant.ExtractProductInfo(tc.text)

			if info.ResponseType != "sales" {
				t.Errorf("ResponseType = %q, expected sales", info.ResponseType)
			}
			if info.TotalProducts != len(tc.expected) || len(info.Products) != len(tc.expected) {
				t.Fatalf("got %d products (total %d), expected %d", len(info.Products), info.TotalProducts, len(tc.expected))
			}
			if info.HasProducts != (len(tc.expected) > 0) {
				t.Errorf("HasProducts = %v, expected %v", info.HasProducts, len(tc.expected) > 0)
			}
			for i, want := range tc.expected {
				if info.Products[i] != want {
					t.Errorf("Products[%d] = %+v, expected %+v", i, info.Products[i], want)
				}
			}
		})
	}
}

func TestFormatProductMentionRoundTrip(t *testing.T) {
	t.Parallel()

	text := "You'll love " + assistant.FormatProductMention("Ethiopia Yirgacheffe", "7", 18.99) + "."
	info := assistant.ExtractProductInfo(text)

	if len(info.Products) != 1 {
		t.Fatalf("expected one product from %q, got %d", text, len(info.Products))
	}
	p := info.Products[0]
	if p.Name != "Ethiopia Yirgacheffe" || p.ID != "7" || p.Price != 18.99 {
		t.Errorf("round trip produced %+v", p)
	}
}

func TestFormatResponse(t *testing.T) {
	t.Parallel()

	text := "Maybe " + assistant.FormatProductMention("House Blend", "2", 12.5)

	sales := assistant.FormatResponse(text, assistant.IntentSales)
	if len(sales.Products) != 1 || !sales.Metadata.HasProducts || sales.Metadata.TotalProducts != 1 {
		t.Errorf("sales response = %+v, expected one product", sales)
	}
	if sales.Metadata.ResponseType != "sales" || sales.Agent != "Sales Specialist" {
		t.Errorf("sales metadata = %+v, agent = %q", sales.Metadata, sales.Agent)
	}

	refund := assistant.FormatResponse(text, assistant.IntentRefund)
	if refund.Products == nil || len(refund.Products) != 0 {
		t.Errorf("refund products = %v, expected empty non-nil list", refund.Products)
	}
	if refund.Metadata.ResponseType != "refund" || refund.Metadata.HasProducts {
		t.Errorf("refund metadata = %+v", refund.Metadata)
	}
	if refund.Text != text || refund.Agent != "Customer Service Agent" {
		t.Errorf("refund response = %+v", refund)
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		intent  assistant.Intent
		roleCue string
	}{
		{intent: assistant.IntentSales, roleCue: "Sales Response:"},
		{intent: assistant.IntentRefund, roleCue: "Customer Service Response:"},
		{intent: assistant.IntentSupport, roleCue: "Support Response:"},
		{intent: assistant.IntentGeneral, roleCue: "\nResponse:"},
		{intent: assistant.Intent("unknown"), roleCue: "\nResponse:"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(string(tc.intent), func(t *testing.T) {
			t.Parallel()

			prompt := assistant.BuildPrompt(tc.intent, "CTX BODY", "where is my order?")

			if !strings.HasPrefix(prompt, assistant.SafetyPreamble) {
				t.Errorf("prompt does not start with the safety preamble: %q", prompt[:40])
			}
			if !strings.Contains(prompt, "Context:\nCTX BODY") {
				t.Error("prompt is missing the context block")
			}
			if !strings.Contains(prompt, "where is my order?") {
				t.Error("prompt is missing the query")
			}
			if !strings.HasSuffix(prompt, tc.roleCue) {
				t.Errorf("prompt does not end with %q", tc.roleCue)
			}
			if strings.Index(prompt, "CTX BODY") > strings.Index(prompt, "where is my order?") {
				t.Error("context must precede the query")
			}
		})
	}

	if !strings.Contains(assistant.BuildPrompt(assistant.IntentSales, "", "q"), assistant.ProductMentionFormat) {
		t.Error("sales prompt must carry the product mention format")
	}
}

func TestAgentName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		intent   assistant.Intent
		expected string
	}{
		{intent: assistant.IntentSales, expected: "Sales Specialist"},
		{intent: assistant.IntentRefund, expected: "Customer Service Agent"},
		{intent: assistant.IntentSupport, expected: "Support Agent"},
		{intent: assistant.IntentGeneral, expected: "Coffee Assistant"},
		{intent: assistant.Intent("blocked"), expected: "Assistant"},
		{intent: assistant.Intent(""), expected: "Assistant"},
	}

	for _, tc := range testCases {
		if actual := assistant.AgentName(tc.intent); actual != tc.expected {
			t.Errorf("AgentName(%q) = %q, expected %q", tc.intent, actual, tc.expected)
		}
	}
}
