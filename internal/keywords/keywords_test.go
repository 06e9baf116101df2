package keywords

import (
	"reflect"
	"testing"
)

func TestParseList(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"Spam, spam,Ads", []string{"Spam", "Ads"}},
		{"  , ,", []string{}},
		{"", []string{}},
		{"слово1, СЛОВО1 ,слово2", []string{"слово1", "слово2"}},
	}
	for _, tc := range cases {
		got := ParseList(tc.raw)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseList(%q) = %#v, want %#v", tc.raw, got, tc.want)
		}
	}
}

func TestMatch(t *testing.T) {
	list := []string{"Casino", "free", "bonus"}
	got := Match("Get a FREE Bonus at our casino", list)
	want := []string{"Casino", "free", "bonus"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Match() = %v, want %v", got, want)
	}
	if got := Match("nothing here", list); len(got) != 0 {
		t.Fatalf("Match() = %v, want none", got)
	}
	if got := Match("", list); got != nil {
		t.Fatalf("Match(empty) = %v, want nil", got)
	}
	if got := Match("ПРИВЕТ мир", []string{"привет"}); len(got) != 1 {
		t.Fatalf("Match(cyrillic) = %v, want one match", got)
	}
}

func TestFold(t *testing.T) {
	if Fold("ПрИвЕт") != Fold("привет") {
		t.Fatalf("Fold() cyrillic mismatch")
	}
}
