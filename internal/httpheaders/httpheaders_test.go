package httpheaders

import "testing"

func TestSetReplacesDifferentCasing(t *testing.T) {
	headers := map[string]string{"x-api-key": "caller"}

	headers = Set(headers, "X-Api-Key", "configured")

	if len(headers) != 1 {
		t.Fatalf("len(headers) = %d, want 1 (%v)", len(headers), headers)
	}
	if headers["X-Api-Key"] != "configured" {
		t.Fatalf("X-Api-Key = %q, want %q", headers["X-Api-Key"], "configured")
	}
}

func TestSetIgnoresBlankName(t *testing.T) {
	headers := Set(map[string]string{}, "  ", "v")
	if len(headers) != 0 {
		t.Fatalf("headers = %v, want empty", headers)
	}
}

func TestSetDefaultKeepsExisting(t *testing.T) {
	headers := map[string]string{"accept-encoding": "identity"}

	headers = SetDefault(headers, "Accept-Encoding", "gzip, deflate")

	if got, _ := Get(headers, "Accept-Encoding"); got != "identity" {
		t.Fatalf("Accept-Encoding = %q, want %q", got, "identity")
	}
}

func TestSetDefaultAddsMissing(t *testing.T) {
	headers := SetDefault(nil, "Accept-Encoding", "gzip, deflate")

	if got, ok := Get(headers, "accept-encoding"); !ok || got != "gzip, deflate" {
		t.Fatalf("Get() = %q, %v; want %q, true", got, ok, "gzip, deflate")
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	src := map[string]string{"Content-Type": "application/json", "": "dropped"}

	out := Clone(src)
	out["Content-Type"] = "text/plain"

	if src["Content-Type"] != "application/json" {
		t.Fatalf("source mutated: %v", src)
	}
	if _, ok := out[""]; ok {
		t.Fatalf("blank key copied: %v", out)
	}
}

func TestToHTTPCanonicalizes(t *testing.T) {
	h := ToHTTP(map[string]string{"x-plugin-id": "org/plugin"})

	if got := h.Get("X-Plugin-ID"); got != "org/plugin" {
		t.Fatalf("X-Plugin-ID = %q, want %q", got, "org/plugin")
	}
}
