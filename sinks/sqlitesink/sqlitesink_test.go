package sqlitesink

import (
	"context"
	"testing"

	"github.com/flowlane/wstream"
)

func TestSqliteSink_AppendsRows(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, "events", "events", []string{"name", "payload"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	s, err := wstream.NewStream[Record](context.Background(), Sink(db, "events", []string{"name", "payload"}), wstream.DefaultQueuingStrategy[Record]())
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	w, err := s.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}

	ctx := context.Background()
	records := []Record{
		{Values: []any{"login", "alice"}},
		{Values: []any{"logout", "alice"}},
	}
	for _, r := range records {
		if err := w.Write(ctx, r).Wait(ctx); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(ctx).Wait(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, err := db.Query(`SELECT "name", "payload" FROM "events" ORDER BY rowid`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	var got []string
	for rows.Next() {
		var name, payload string
		if err := rows.Scan(&name, &payload); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, name+"/"+payload)
	}
	want := []string{"login/alice", "logout/alice"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestValidateDatabaseID_RejectsTraversal(t *testing.T) {
	cases := []string{"", "../escape", "a/b", "a\x00b"}
	for _, id := range cases {
		if err := ValidateDatabaseID(id); err == nil {
			t.Errorf("ValidateDatabaseID(%q) = nil, want error", id)
		}
	}
	if err := ValidateDatabaseID("ok-id"); err != nil {
		t.Errorf("ValidateDatabaseID(%q) = %v, want nil", "ok-id", err)
	}
}
