package database

import "testing"

func TestDialectorFor(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/shop?sslmode=disable": "postgres",
		"postgresql://u:p@localhost/shop":                   "postgres",
		"host=localhost user=u dbname=shop":                 "postgres",
		"mysql://u:p@tcp(localhost:3306)/shop":              "mysql",
		"u:p@tcp(localhost:3306)/shop?charset=utf8mb4":      "mysql",
	}
	for dsn, want := range cases {
		d, err := dialectorFor(dsn)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", dsn, err)
		}
		if d.Name() != want {
			t.Fatalf("%s: expected %s, got %s", dsn, want, d.Name())
		}
	}

	if _, err := dialectorFor("sqlite://file.db"); err == nil {
		t.Fatal("expected error for unsupported dsn")
	}
}

func TestWithParseTime(t *testing.T) {
	if got := withParseTime("u:p@tcp(h)/db"); got != "u:p@tcp(h)/db?parseTime=true" {
		t.Fatalf("unexpected %s", got)
	}
	if got := withParseTime("u:p@tcp(h)/db?charset=utf8mb4"); got != "u:p@tcp(h)/db?charset=utf8mb4&parseTime=true" {
		t.Fatalf("unexpected %s", got)
	}
	if got := withParseTime("u:p@tcp(h)/db?parseTime=false"); got != "u:p@tcp(h)/db?parseTime=false" {
		t.Fatalf("unexpected %s", got)
	}
}
