package events_test

import (
	"encoding/json"
	"testing"

	"github.com/lherron/itsmig/internal/events"
	"github.com/lherron/itsmig/internal/testutil"
)

func TestWriterLogsWithoutTransaction(t *testing.T) {
	database, _ := testutil.TempDB(t)
	w := events.NewWriter(database.DB)

	if err := w.LogObjectCreated(nil, "obj-1", "IR7", "System.WorkItem.Incident"); err != nil {
		t.Fatalf("LogObjectCreated: %v", err)
	}
	if err := w.LogAttachmentCreated(nil, "obj-1", "a.txt", 12); err != nil {
		t.Fatalf("LogAttachmentCreated: %v", err)
	}

	rows, err := database.Query(`SELECT resource_type, resource_uuid, event_type, payload FROM event_log ORDER BY id`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	type row struct{ resType, resUUID, evType, payload string }
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.resType, &r.resUUID, &r.evType, &r.payload); err != nil {
			t.Fatal(err)
		}
		got = append(got, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].evType != "object.created" || got[0].resUUID != "obj-1" {
		t.Errorf("unexpected first event: %+v", got[0])
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(got[0].payload), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["id"] != "IR7" || payload["class"] != "System.WorkItem.Incident" {
		t.Errorf("unexpected payload: %v", payload)
	}
	if got[1].resType != "attachment" || got[1].evType != "attachment.created" {
		t.Errorf("unexpected second event: %+v", got[1])
	}
}

func TestWriterLogsInTransaction(t *testing.T) {
	database, _ := testutil.TempDB(t)
	w := events.NewWriter(database.DB)

	tx, err := database.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.LogProjectionCommitted(tx, "parent", []string{"c1", "c2"}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM event_log`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rolled back event should not be stored, found %d", n)
	}
}
