package models

import (
	"testing"
	"time"
)

func TestStringArrayScan(t *testing.T) {
	cases := []struct {
		in   any
		want []string
	}{
		{nil, []string{}},
		{"", []string{}},
		{[]byte(`["#fff","#000"]`), []string{"#fff", "#000"}},
		{"red, blue ,", []string{"red", "blue"}},
	}
	for _, tc := range cases {
		var a StringArray
		if err := a.Scan(tc.in); err != nil {
			t.Fatalf("scan %v: %v", tc.in, err)
		}
		if len(a) != len(tc.want) {
			t.Fatalf("scan %v: got %v want %v", tc.in, a, tc.want)
		}
		for i := range a {
			if a[i] != tc.want[i] {
				t.Fatalf("scan %v: got %v want %v", tc.in, a, tc.want)
			}
		}
	}
	var a StringArray
	if err := a.Scan(42); err == nil {
		t.Fatalf("expected error for int input")
	}
}

func TestStringArrayValue(t *testing.T) {
	v, err := StringArray(nil).Value()
	if err != nil || v != "[]" {
		t.Fatalf("nil value = %v, %v", v, err)
	}
	if !(StringArray{"Red"}).Contains("red") {
		t.Fatalf("Contains should ignore case")
	}
}

func TestUserSessionActive(t *testing.T) {
	now := time.Now()
	s := UserSession{ExpiresAt: now.Add(time.Hour)}
	if !s.Active(now) {
		t.Fatalf("expected active session")
	}
	s.RevokedAt = &now
	if s.Active(now) {
		t.Fatalf("revoked session must be inactive")
	}
}
