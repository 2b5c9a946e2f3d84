package types

import "testing"

func TestItemOptionsCanonicalIsOrderInsensitive(t *testing.T) {
	a := ItemOptions{"size": "large", "extras": []any{"cheese", "bacon"}}
	b := ItemOptions{"extras": []any{"cheese", "bacon"}, "size": "large"}

	if a.Canonical() != b.Canonical() {
		t.Fatalf("canonical forms differ: %q vs %q", a.Canonical(), b.Canonical())
	}
}

func TestItemOptionsCanonicalDistinguishesValues(t *testing.T) {
	a := ItemOptions{"size": "large"}
	b := ItemOptions{"size": "small"}

	if a.Canonical() == b.Canonical() {
		t.Fatalf("different selections must not collapse: %q", a.Canonical())
	}
}

func TestItemOptionsCanonicalEmpty(t *testing.T) {
	var o ItemOptions
	if o.Canonical() != "" {
		t.Fatalf("nil options should canonicalize to empty string, got %q", o.Canonical())
	}
	if (ItemOptions{}).Canonical() != "" {
		t.Fatalf("empty options should canonicalize to empty string")
	}
}

func TestItemOptionsCanonicalNested(t *testing.T) {
	o := ItemOptions{
		"half_and_half": map[string]any{"left": "pepperoni", "right": "veggie"},
	}
	want := `{"half_and_half":{"left":"pepperoni","right":"veggie"}}`
	if got := o.Canonical(); got != want {
		t.Fatalf("unexpected canonical form %q, want %q", got, want)
	}
}
