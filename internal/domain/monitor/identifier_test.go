package monitor

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestIdentifier(t *testing.T) {
	hashOf := func(s string) string {
		sum := sha256.Sum256([]byte(s))
		return hex.EncodeToString(sum[:])
	}

	tests := []struct {
		name string
		item Item
		want string
	}{
		{
			name: "guid wins over everything",
			item: Item{GUID: "g1", Link: "https://example.com/a", Title: "A", Published: "2026-01-01"},
			want: "g1",
		},
		{
			name: "link when guid empty",
			item: Item{Link: "https://example.com/a", Title: "A"},
			want: "https://example.com/a",
		},
		{
			name: "hash of title and published",
			item: Item{Title: "Hello", Published: "2026-01-01T00:00:00Z"},
			want: hashOf("Hello2026-01-01T00:00:00Z"),
		},
		{
			name: "empty item still yields a value",
			item: Item{},
			want: hashOf(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Identifier(tt.item); got != tt.want {
				t.Fatalf("Identifier() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentifier_GUIDIndependentOfOtherFields(t *testing.T) {
	a := Identifier(Item{GUID: "same", Title: "one", Link: "https://a"})
	b := Identifier(Item{GUID: "same", Title: "two", Description: "x", Published: "yesterday"})
	if a != "same" || b != "same" {
		t.Fatalf("GUID items should be keyed by GUID, got %q and %q", a, b)
	}
}

func TestIdentifier_HashIsDeterministic(t *testing.T) {
	item := Item{Title: "No link here", Published: "Mon, 02 Jan 2006 15:04:05 GMT", Description: "ignored"}
	first := Identifier(item)
	item.Description = "changed"
	if second := Identifier(item); first != second {
		t.Fatalf("hash changed between calls: %q != %q", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected hex sha256, got %q", first)
	}
	if other := Identifier(Item{Title: "No link here", Published: "other"}); other == first {
		t.Fatal("different published date should change the hash")
	}
}
