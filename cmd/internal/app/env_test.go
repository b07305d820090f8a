package app

import (
	"reflect"
	"testing"
	"time"
)

func TestEnvInt(t *testing.T) {
	cases := []struct {
		name string
		val  string
		def  int
		want int
	}{
		{name: "unset", val: "", def: 7, want: 7},
		{name: "valid", val: "42", def: 7, want: 42},
		{name: "garbage", val: "not-a-number", def: 7, want: 7},
		{name: "non-positive", val: "0", def: 7, want: 7},
		{name: "negative", val: "-3", def: 7, want: 7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.val != "" {
				t.Setenv("RIPPLE_TEST_INT", tc.val)
			}
			if got := EnvInt("RIPPLE_TEST_INT", tc.def); got != tc.want {
				t.Fatalf("EnvInt=%d want=%d", got, tc.want)
			}
		})
	}
}

func TestEnvDuration(t *testing.T) {
	cases := []struct {
		name string
		val  string
		want time.Duration
	}{
		{name: "unset", val: "", want: time.Second},
		{name: "valid", val: "250ms", want: 250 * time.Millisecond},
		{name: "garbage", val: "soon", want: time.Second},
		{name: "negative", val: "-1s", want: time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.val != "" {
				t.Setenv("RIPPLE_TEST_DUR", tc.val)
			}
			if got := EnvDuration("RIPPLE_TEST_DUR", time.Second); got != tc.want {
				t.Fatalf("EnvDuration=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestEnvCSV(t *testing.T) {
	cases := []struct {
		name string
		val  string
		def  string
		want []string
	}{
		{name: "unset uses default", val: "", def: "a,b", want: []string{"a", "b"}},
		{name: "trims blanks", val: " a , ,b,", def: "", want: []string{"a", "b"}},
		{name: "empty default", val: "", def: "", want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.val != "" {
				t.Setenv("RIPPLE_TEST_CSV", tc.val)
			}
			if got := EnvCSV("RIPPLE_TEST_CSV", tc.def); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("EnvCSV=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("RIPPLE_TEST_BOOL", "maybe")
	if EnvBool("RIPPLE_TEST_BOOL", false) {
		t.Fatal("garbage should fall back to the default")
	}
	t.Setenv("RIPPLE_TEST_BOOL", "1")
	if !EnvBool("RIPPLE_TEST_BOOL", false) {
		t.Fatal("\"1\" should parse as true")
	}
}
