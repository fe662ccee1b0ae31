package textutil

import "testing"

func TestPlainText(t *testing.T) {
	cases := map[string]string{
		"  CROIX  ":                          "CROIX",
		"<script>alert(1)</script>Techno":    "Techno",
		"DJ y **Productor** <b>Chileno</b>":  "DJ y **Productor** Chileno",
		"Underground Techno • Oetraxxrecords": "Underground Techno • Oetraxxrecords",
		"Rock & Roll":                        "Rock & Roll",
	}
	for input, want := range cases {
		if got := PlainText(input); got != want {
			t.Errorf("PlainText(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRenderInline(t *testing.T) {
	got := RenderInline("**CROIX** es un DJ <img src=x onerror=alert(1)>")
	want := "<strong>CROIX</strong> es un DJ"
	if got != want {
		t.Fatalf("RenderInline = %q, want %q", got, want)
	}
	if RenderInline("   ") != "" {
		t.Fatalf("expected empty output for blank input")
	}
}
