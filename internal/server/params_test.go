package server

import (
	"reflect"
	"testing"
)

func TestParseBody(t *testing.T) {
	cases := []struct {
		name string
		body string
		want map[string]any
	}{
		{
			name: "json object",
			body: `{"key_code": 66, "label": "enter", "fast": true}`,
			want: map[string]any{"key_code": float64(66), "label": "enter", "fast": true},
		},
		{
			name: "urlencoded typed values",
			body: "offset=25&visible=true&hidden=FALSE&name=portal",
			want: map[string]any{"offset": 25, "visible": true, "hidden": false, "name": "portal"},
		},
		{
			name: "urlencoded negative integer",
			body: "offset=-40",
			want: map[string]any{"offset": -40},
		},
		{
			name: "numeric string stays integer before boolean",
			body: "flag=1",
			want: map[string]any{"flag": 1},
		},
		{
			name: "empty body",
			body: "",
			want: map[string]any{},
		},
		{
			name: "whitespace body",
			body: " \r\n ",
			want: map[string]any{},
		},
		{
			name: "broken json",
			body: `{"key_code": `,
			want: map[string]any{},
		},
		{
			name: "broken urlencoding",
			body: "offset=%zz",
			want: map[string]any{},
		},
		{
			name: "escaped urlencoded value",
			body: "text=hello%20world",
			want: map[string]any{"text": "hello world"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseBody([]byte(tc.body))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseBody(%q) = %#v, want %#v", tc.body, got, tc.want)
			}
		})
	}
}

func TestTypedValue(t *testing.T) {
	cases := []struct {
		in   string
		want any
	}{
		{"66", 66},
		{"-3", -3},
		{"true", true},
		{"TRUE", true},
		{"False", false},
		{"hello", "hello"},
		{"", ""},
		{"3.5", "3.5"},
	}
	for _, tc := range cases {
		if got := typedValue(tc.in); got != tc.want {
			t.Errorf("typedValue(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}
