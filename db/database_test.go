package db

import "testing"

func TestDialectHelpers(t *testing.T) {
	mysql := &Database{Driver: "mysql"}
	sqlite := &Database{Driver: "sqlite"}

	if got := mysql.Random(); got != "RAND()" {
		t.Errorf("mysql random = %q", got)
	}
	if got := sqlite.Random(); got != "RANDOM()" {
		t.Errorf("sqlite random = %q", got)
	}

	// Row locking exists on mysql only; sqlite rejects the clause and
	// serializes writers itself.
	if got := mysql.ForUpdate(); got != " FOR UPDATE" {
		t.Errorf("mysql lock suffix = %q", got)
	}
	if got := sqlite.ForUpdate(); got != "" {
		t.Errorf("sqlite lock suffix = %q", got)
	}
}
