package utils

import (
	"testing"
	"time"
)

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		val  string
		def  bool
		want bool
	}{
		{"true", false, true},
		{" YES ", false, true},
		{"1", false, true},
		{"no", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Setenv("METRO_TEST_BOOL", tt.val)
		if got := GetEnvAsBool("METRO_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("GetEnvAsBool(%q, %v) = %v, want %v", tt.val, tt.def, got, tt.want)
		}
	}
}

func TestGetEnvAsNumbers(t *testing.T) {
	t.Setenv("METRO_TEST_INT", " 42 ")
	if got := GetEnvAsInt("METRO_TEST_INT", 1); got != 42 {
		t.Errorf("GetEnvAsInt = %d, want 42", got)
	}
	t.Setenv("METRO_TEST_INT", "forty")
	if got := GetEnvAsInt("METRO_TEST_INT", 1); got != 1 {
		t.Errorf("invalid int should fall back, got %d", got)
	}

	t.Setenv("METRO_TEST_FLOAT", "0.35")
	if got := GetEnvAsFloat("METRO_TEST_FLOAT", 0); got != 0.35 {
		t.Errorf("GetEnvAsFloat = %f, want 0.35", got)
	}
	t.Setenv("METRO_TEST_FLOAT", "NaN")
	if got := GetEnvAsFloat("METRO_TEST_FLOAT", 0.2); got != 0.2 {
		t.Errorf("NaN should fall back, got %f", got)
	}

	t.Setenv("METRO_TEST_MS", "250")
	if got := GetEnvAsMillis("METRO_TEST_MS", 16); got != 250*time.Millisecond {
		t.Errorf("GetEnvAsMillis = %v, want 250ms", got)
	}
	t.Setenv("METRO_TEST_MS", "")
	if got := GetEnvAsMillis("METRO_TEST_MS", 16); got != 16*time.Millisecond {
		t.Errorf("unset should use the default, got %v", got)
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	t.Setenv("METRO_TEST_SLICE", "a,b,c")
	if got := GetEnvAsSlice("METRO_TEST_SLICE", nil, ","); len(got) != 3 || got[2] != "c" {
		t.Errorf("GetEnvAsSlice = %v", got)
	}
	t.Setenv("METRO_TEST_SLICE", "")
	if got := GetEnvAsSlice("METRO_TEST_SLICE", []string{"x"}, ","); len(got) != 1 || got[0] != "x" {
		t.Errorf("unset should use the default, got %v", got)
	}
}
