package npyformat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"string single quotes", `'<f8'`, "<f8"},
		{"string double quotes", `"<i4"`, "<i4"},
		{"unicode prefix", `u'descr'`, "descr"},
		{"escaped quote", `'it\'s'`, "it's"},
		{"integer", `50`, int64(50)},
		{"negative integer", `-3`, int64(-3)},
		{"python2 long", `50L`, int64(50)},
		{"true", `True`, true},
		{"false", `False`, false},
		{"none", `None`, nil},
		{"empty tuple", `()`, Tuple{}},
		{"one tuple", `(50,)`, Tuple{int64(50)}},
		{"pair tuple", `(3, 4)`, Tuple{int64(3), int64(4)}},
		{"parenthesised value", `(7)`, int64(7)},
		{"list of tuples", `[('a', '<i4'), ('b', '<f8', (2,))]`, List{
			Tuple{"a", "<i4"},
			Tuple{"b", "<f8", Tuple{int64(2)}},
		}},
		{"header dict", "{'descr': '<f8', 'fortran_order': False, 'shape': (50,), }   \n", Dict{
			"descr":         "<f8",
			"fortran_order": false,
			"shape":         Tuple{int64(50)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLiteral(tt.src)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseLiteral_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ``},
		{"unterminated string", `'abc`},
		{"float", `1.5`},
		{"complex", `3j`},
		{"unknown name", `numpy`},
		{"non-string key", `{1: 2}`},
		{"missing colon", `{'a' 2}`},
		{"missing comma", `(1 2)`},
		{"trailing data", `(1,) x`},
		{"unclosed dict", `{'a': 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLiteral(tt.src)
			require.ErrorIs(t, err, errLiteral)
		})
	}
}
