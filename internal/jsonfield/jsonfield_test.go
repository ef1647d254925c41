package jsonfield

import "testing"

func TestFormatRefListScanIsOrderedAndComplete(t *testing.T) {
	var l FormatRefList
	err := l.Scan(`[{"agent_url":"https://a","id":"1"},{"agent_url":"https://a","id":"2"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(l) != 2 || l[0].ID != "1" || l[1].ID != "2" {
		t.Fatalf("expected ordered two-element list, got %#v", l)
	}
}

func TestObjectScanCollapsesStringNull(t *testing.T) {
	var o Object
	if err := o.Scan("null"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o != nil {
		t.Fatalf("expected nil object, got %#v", o)
	}
}

func TestPlatformMappingsRequiresAtLeastOnePlatform(t *testing.T) {
	p := PlatformMappings{}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for empty platform_mappings")
	}
	p["mock"] = map[string]any{"advertiser_id": "123"}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCommentListRejectsMissingFields(t *testing.T) {
	var c CommentList
	err := c.Scan(`[{"user":"","timestamp":"2026-01-01T00:00:00Z","text":"hi"}]`)
	if err == nil {
		t.Fatal("expected error for comment with empty user")
	}
}

func TestEnsureArrayAcceptsListOrJSONString(t *testing.T) {
	a, err := EnsureArray(`["a","b"]`)
	if err != nil || len(a) != 2 {
		t.Fatalf("unexpected result: %v %v", a, err)
	}
	b, err := EnsureArray(nil)
	if err != nil || len(b) != 0 {
		t.Fatalf("expected empty slice for nil, got %v %v", b, err)
	}
}
