package database

import (
	"context"
	"slices"
	"testing"
	"testing/fstest"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_trades.up.sql":        {Data: []byte("CREATE TABLE trades ();")},
		"001_init.up.sql":          {Data: []byte("CREATE TABLE valuation_rules ();")},
		"001_init.down.sql":        {Data: []byte("DROP TABLE valuation_rules;")},
		"README.md":                {Data: []byte("docs")},
		"003_market_prices.up.sql": {Data: []byte("CREATE TABLE market_prices ();")},
		"archive/000_old.up.sql":   {Data: []byte("-- nested files are ignored")},
	}

	tests := []struct {
		name    string
		applied map[string]bool
		want    []string
	}{
		{
			name: "fresh database",
			want: []string{"001_init.up.sql", "002_trades.up.sql", "003_market_prices.up.sql"},
		},
		{
			name:    "partially applied",
			applied: map[string]bool{"001_init.up.sql": true},
			want:    []string{"002_trades.up.sql", "003_market_prices.up.sql"},
		},
		{
			name: "all applied",
			applied: map[string]bool{
				"001_init.up.sql":          true,
				"002_trades.up.sql":        true,
				"003_market_prices.up.sql": true,
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PendingMigrations(fsys, tt.applied)
			if err != nil {
				t.Fatalf("PendingMigrations() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("PendingMigrations() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConnectRequiresURL(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Error("Connect(\"\") error = nil, want error")
	}
}
