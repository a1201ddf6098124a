package sanitize

import "testing"

func TestPlainText(t *testing.T) {
	t.Parallel()
	p := NewPlainTextPolicy()

	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "  ", want: ""},
		{name: "bold product mention", in: "Try **Espresso Roast** (ID: 1) - $14.50", want: "Try Espresso Roast (ID: 1) - $14.50"},
		{name: "entities unescaped", in: "Beans & brewers", want: "Beans & brewers"},
		{name: "inline code", in: "Use the `french press` setting", want: "Use the french press setting"},
		{name: "paragraphs kept", in: "First.\n\nSecond.", want: "First.\n\nSecond."},
		{name: "list bullets", in: "- Decaf\n- Espresso", want: "• Decaf\n• Espresso"},
	}

	for _, tc := range testCases {
		if got := p.PlainText(tc.in); got != tc.want {
			t.Errorf("%s: PlainText(%q) = %q, expected %q", tc.name, tc.in, got, tc.want)
		}
	}
}
