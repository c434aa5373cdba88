package builtin

import (
	"testing"
)

func TestUnwrapDuckDuckGoRedirectDecodesTarget(t *testing.T) {
	href := "//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&rut=abc"
	got := unwrapDuckDuckGoRedirect(href)
	if got != "https://example.com/page" {
		t.Fatalf("expected decoded target URL, got: %s", got)
	}
}

func TestUnwrapDuckDuckGoRedirectPassesThroughPlainURL(t *testing.T) {
	href := "https://example.com/direct"
	got := unwrapDuckDuckGoRedirect(href)
	if got != href {
		t.Fatalf("expected plain URL unchanged, got: %s", got)
	}
}

func TestUnwrapDuckDuckGoRedirectAddsSchemeToProtocolRelative(t *testing.T) {
	href := "//example.com/page"
	got := unwrapDuckDuckGoRedirect(href)
	if got != "https://example.com/page" {
		t.Fatalf("expected https scheme prepended, got: %s", got)
	}
}
