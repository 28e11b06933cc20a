package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"Phonolib/config"
	"Phonolib/db"
	"Phonolib/library"
	"Phonolib/model"
	"Phonolib/storage"

	"github.com/google/uuid"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	handle, err := db.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { handle.Close() })
	database := &db.Database{DB: handle, Driver: "sqlite"}

	driver, err := storage.NewLocalDriver(t.TempDir())
	if err != nil {
		t.Fatalf("create storage driver: %v", err)
	}

	cfg := &config.Config{
		UserID:            config.DefaultUserID,
		UserName:          "tester",
		SkipDuplicate:     true,
		CopyToLibrary:     true,
		ReplacePluginData: true,
		StreamChunkSize:   10,
		MaxThreads:        2,
	}
	registry := library.NewPluginRegistry(
		library.RegisteredPlugin{Name: "analyzer", Version: "1.0.0"},
	)
	engine, err := NewEngine(context.Background(), database, driver, cfg, registry)
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	return engine
}

// writeAudio creates a wav file with the given content in a fresh dir.
func writeAudio(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return path
}

func addTestTrack(t *testing.T, e *Engine, name string, content []byte) *model.Track {
	t.Helper()
	track, err := e.AddTrack(context.Background(), writeAudio(t, name, content), library.IngestOptions{})
	if err != nil {
		t.Fatalf("add track %s: %v", name, err)
	}
	return track
}

func TestAddTrackDuplicateSkip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	content := []byte("identical audio payload")
	first := addTestTrack(t, e, "one.wav", content)
	second := addTestTrack(t, e, "two.wav", content)

	if first.ID != second.ID {
		t.Errorf("duplicate content produced two tracks: %s and %s", first.ID, second.ID)
	}
	size, err := e.LibrarySize(ctx, uuid.Nil)
	if err != nil {
		t.Fatalf("library size: %v", err)
	}
	if size != 1 {
		t.Errorf("library size = %d, want 1", size)
	}
}

func TestAddTrackDuplicateDisabled(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	content := []byte("identical audio payload")
	noSkip := false
	first, err := e.AddTrack(ctx, writeAudio(t, "one.wav", content), library.IngestOptions{SkipDuplicate: &noSkip})
	if err != nil {
		t.Fatalf("add first: %v", err)
	}
	second, err := e.AddTrack(ctx, writeAudio(t, "two.wav", content), library.IngestOptions{SkipDuplicate: &noSkip})
	if err != nil {
		t.Fatalf("add second: %v", err)
	}
	if first.ID == second.ID {
		t.Error("duplicate skipping disabled but the same track came back")
	}
}

func TestAddTrackTitleFallback(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	track := addTestTrack(t, e, "sunrise take 3.wav", []byte("a"))
	if title, _ := track.GetMeta("title"); title != "sunrise take 3" {
		t.Errorf("title fallback = %v, want file name stem", title)
	}

	withTitle, err := e.AddTrack(ctx, writeAudio(t, "other.wav", []byte("b")),
		library.IngestOptions{Meta: map[string]any{"title": "Given Title"}})
	if err != nil {
		t.Fatalf("add track: %v", err)
	}
	if title, _ := withTitle.GetMeta("title"); title != "Given Title" {
		t.Errorf("explicit title overwritten, got %v", title)
	}
}

func TestAddTrackRejectsUnsupportedFile(t *testing.T) {
	e := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("text"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := e.AddTrack(context.Background(), path, library.IngestOptions{})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRelationshipDirection(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a := addTestTrack(t, e, "a.wav", []byte("a"))
	b := addTestTrack(t, e, "b.wav", []byte("b"))

	if _, err := e.AddTrackRelationship(ctx, a.ID, b.ID, "stem", nil); err != nil {
		t.Fatalf("relate: %v", err)
	}

	cases := []struct {
		id        uuid.UUID
		direction model.Direction
		want      bool
	}{
		{a.ID, model.DirectionTo, true},
		{a.ID, model.DirectionFrom, false},
		{a.ID, model.DirectionBoth, true},
		{b.ID, model.DirectionTo, false},
		{b.ID, model.DirectionFrom, true},
	}
	for _, c := range cases {
		got, err := e.HasRelated(ctx, c.id, c.direction, "")
		if err != nil {
			t.Fatalf("has related: %v", err)
		}
		if got != c.want {
			t.Errorf("HasRelated(%s, %s) = %v, want %v", c.id, c.direction, got, c.want)
		}
	}

	related, err := e.GetRelatedTracks(ctx, a.ID, model.DirectionBoth, uuid.Nil, library.ListOptions{})
	if err != nil {
		t.Fatalf("get related: %v", err)
	}
	if len(related) != 1 || related[0].ID != b.ID {
		t.Errorf("related tracks of a = %v, want [%s]", related, b.ID)
	}
}

func TestRelationshipTypeFilter(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a := addTestTrack(t, e, "a.wav", []byte("a"))
	b := addTestTrack(t, e, "b.wav", []byte("b"))
	if _, err := e.AddTrackRelationship(ctx, a.ID, b.ID, "remix", nil); err != nil {
		t.Fatal(err)
	}

	has, err := e.HasRelated(ctx, a.ID, model.DirectionTo, "remix")
	if err != nil || !has {
		t.Errorf("HasRelated with matching type = %v, %v", has, err)
	}
	has, err = e.HasRelated(ctx, a.ID, model.DirectionTo, "stem")
	if err != nil || has {
		t.Errorf("HasRelated with non-matching type = %v, %v", has, err)
	}
}

func TestCollectionOrdering(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	x := addTestTrack(t, e, "x.wav", []byte("x"))
	y := addTestTrack(t, e, "y.wav", []byte("y"))
	z := addTestTrack(t, e, "z.wav", []byte("z"))
	w := addTestTrack(t, e, "w.wav", []byte("w"))

	col, err := e.AddCollection(ctx, library.CollectionSpec{
		Name:     "set",
		TrackIDs: []uuid.UUID{x.ID, y.ID, z.ID},
	})
	if err != nil {
		t.Fatalf("add collection: %v", err)
	}

	removed, err := e.RemoveTrackFromCollection(ctx, y.ID, col.ID)
	if err != nil || !removed {
		t.Fatalf("remove member: %v removed=%v", err, removed)
	}
	if _, err := e.AddTrackToCollection(ctx, w.ID, col.ID, nil); err != nil {
		t.Fatalf("append member: %v", err)
	}

	got, err := e.GetCollectionTracks(ctx, col.ID, library.OrderAsc)
	if err != nil {
		t.Fatalf("collection tracks: %v", err)
	}
	want := []uuid.UUID{x.ID, z.ID, w.ID}
	if len(got) != len(want) {
		t.Fatalf("collection has %d tracks, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, want[i])
		}
	}

	desc, err := e.GetCollectionTracks(ctx, col.ID, library.OrderDesc)
	if err != nil {
		t.Fatal(err)
	}
	if desc[0].ID != w.ID || desc[2].ID != x.ID {
		t.Error("descending order is not the reverse of ascending")
	}

	size, err := e.CollectionSize(ctx, col.ID)
	if err != nil {
		t.Fatal(err)
	}
	if size != 3 {
		t.Errorf("collection size = %d, want 3", size)
	}
}

func TestFilterByCollectionPosition(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a := addTestTrack(t, e, "a.wav", []byte("a"))
	b := addTestTrack(t, e, "b.wav", []byte("b"))
	col, err := e.AddCollection(ctx, library.CollectionSpec{
		Name:     "ordered",
		TrackIDs: []uuid.UUID{b.ID, a.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := e.FilterTracks(ctx, library.TrackQuery{
		CollectionID: col.ID,
		OrderBy:      "collection",
	})
	if err != nil {
		t.Fatalf("filter by collection: %v", err)
	}
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
		t.Errorf("collection-ordered filter returned wrong sequence")
	}

	rev, err := e.FilterTracks(ctx, library.TrackQuery{
		CollectionID: col.ID,
		OrderBy:      "collection",
		Order:        library.OrderDesc,
	})
	if err != nil {
		t.Fatalf("filter by collection desc: %v", err)
	}
	if len(rev) != 2 || rev[0].ID != a.ID || rev[1].ID != b.ID {
		t.Errorf("descending collection order returned wrong sequence")
	}
}

func TestAddTrackToCollectionIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a := addTestTrack(t, e, "a.wav", []byte("a"))
	col, err := e.AddCollection(ctx, library.CollectionSpec{Name: "set", TrackIDs: []uuid.UUID{a.ID}})
	if err != nil {
		t.Fatal(err)
	}
	first, err := e.AddTrackToCollection(ctx, a.ID, col.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Position != 0 {
		t.Errorf("re-adding a member changed its position to %d", first.Position)
	}
	size, _ := e.CollectionSize(ctx, col.ID)
	if size != 1 {
		t.Errorf("collection size = %d after duplicate add, want 1", size)
	}
}

func TestFilterPluginDataModes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	slow := addTestTrack(t, e, "slow.wav", []byte("slow"))
	mid := addTestTrack(t, e, "mid.wav", []byte("mid"))
	fast := addTestTrack(t, e, "fast.wav", []byte("fast"))

	for track, bpm := range map[*model.Track]string{slow: "100", mid: "120", fast: "140"} {
		_, err := e.AddPluginData(ctx, library.PluginDataInput{
			TrackID:    track.ID,
			PluginName: "analyzer",
			Key:        "bpm",
			Value:      bpm,
		})
		if err != nil {
			t.Fatalf("add plugin data: %v", err)
		}
	}

	min, max := 110.0, 130.0
	got, err := e.FilterTracks(ctx, library.TrackQuery{
		Filters:     []library.PluginDataFilter{{Key: "bpm", Min: &min, Max: &max}},
		PluginNames: []string{"analyzer"},
	})
	if err != nil {
		t.Fatalf("range filter: %v", err)
	}
	if len(got) != 1 || got[0].ID != mid.ID {
		t.Errorf("range filter matched %d tracks, want exactly the 120 bpm one", len(got))
	}

	got, err = e.FilterTracks(ctx, library.TrackQuery{
		Filters: []library.PluginDataFilter{{Key: "bpm", OneOf: []string{"100", "140"}}},
	})
	if err != nil {
		t.Fatalf("oneof filter: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("oneof filter matched %d tracks, want 2", len(got))
	}

	_, err = e.AddPluginData(ctx, library.PluginDataInput{
		TrackID:    slow.ID,
		PluginName: "analyzer",
		Key:        "mood",
		Value:      "Mellow Evening",
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err = e.FilterTracks(ctx, library.TrackQuery{
		Filters: []library.PluginDataFilter{{Key: "mood", Match: "mellow"}},
	})
	if err != nil {
		t.Fatalf("match filter: %v", err)
	}
	if len(got) != 1 || got[0].ID != slow.ID {
		t.Errorf("substring match filter failed")
	}

	// A filter mixing two modes is malformed.
	_, err = e.FilterTracks(ctx, library.TrackQuery{
		Filters: []library.PluginDataFilter{{Key: "bpm", Min: &min, Match: "x"}},
	})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("mixed filter modes: expected validation error, got %v", err)
	}
}

func TestFilterRestrictedByPluginName(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	track := addTestTrack(t, e, "a.wav", []byte("a"))
	_, err := e.AddPluginData(ctx, library.PluginDataInput{
		TrackID:    track.ID,
		PluginName: "analyzer",
		Key:        "bpm",
		Value:      "120",
	})
	if err != nil {
		t.Fatal(err)
	}

	min, max := 100.0, 140.0
	got, err := e.FilterTracks(ctx, library.TrackQuery{
		Filters:     []library.PluginDataFilter{{Key: "bpm", Min: &min, Max: &max}},
		PluginNames: []string{"other-plugin"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("filter restricted to another plugin still matched %d tracks", len(got))
	}
}

func TestSearchMetaTokens(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	jazz, err := e.AddTrack(ctx, writeAudio(t, "a.wav", []byte("a")),
		library.IngestOptions{Meta: map[string]any{"genre": "jazz", "artist": "Blue Quartet"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.AddTrack(ctx, writeAudio(t, "b.wav", []byte("b")),
		library.IngestOptions{Meta: map[string]any{"genre": "techno"}}); err != nil {
		t.Fatal(err)
	}

	got, err := e.FilterTracks(ctx, library.TrackQuery{SearchMeta: []string{"jazz", "quartet"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != jazz.ID {
		t.Errorf("token search matched %d tracks, want the jazz one", len(got))
	}

	// All tokens must match, not just one.
	got, err = e.FilterTracks(ctx, library.TrackQuery{SearchMeta: []string{"jazz", "nosuchtoken"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("partial token match returned %d tracks, want 0", len(got))
	}
}

func TestFindTracks(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	track, err := e.AddTrack(ctx, writeAudio(t, "morning.wav", []byte("m")),
		library.IngestOptions{Meta: map[string]any{"title": "Morning Dew"}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.FindTracks(ctx, "dew", uuid.Nil, library.ListOptions{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].ID != track.ID {
		t.Errorf("find by value matched %d tracks", len(got))
	}
}

func TestPluginDataReplace(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	track := addTestTrack(t, e, "a.wav", []byte("a"))

	replace := true
	for _, v := range []string{"first", "second"} {
		_, err := e.AddPluginData(ctx, library.PluginDataInput{
			TrackID:    track.ID,
			PluginName: "analyzer",
			Key:        "mood",
			Value:      v,
			Replace:    &replace,
		})
		if err != nil {
			t.Fatalf("add plugin data: %v", err)
		}
	}
	rows, err := e.GetPluginData(ctx, library.PluginDataQuery{TrackID: track.ID, Key: "mood"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("replace=true kept %d rows, want 1", len(rows))
	}
	if rows[0].Value != "second" {
		t.Errorf("replaced value = %q, want %q", rows[0].Value, "second")
	}

	appendRows := false
	for _, v := range []string{"v1", "v2"} {
		_, err := e.AddPluginData(ctx, library.PluginDataInput{
			TrackID:    track.ID,
			PluginName: "analyzer",
			Key:        "history",
			Value:      v,
			Replace:    &appendRows,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	rows, err = e.GetPluginData(ctx, library.PluginDataQuery{TrackID: track.ID, Key: "history"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("replace=false kept %d rows, want 2", len(rows))
	}
}

func TestPluginVersionResolution(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	track := addTestTrack(t, e, "a.wav", []byte("a"))

	pd, err := e.AddPluginData(ctx, library.PluginDataInput{
		TrackID:    track.ID,
		PluginName: "analyzer",
		Key:        "bpm",
		Value:      "120",
	})
	if err != nil {
		t.Fatalf("add with registered plugin: %v", err)
	}
	if pd.PluginVersion != "1.0.0" {
		t.Errorf("version = %q, want registry default 1.0.0", pd.PluginVersion)
	}

	_, err = e.AddPluginData(ctx, library.PluginDataInput{
		TrackID:    track.ID,
		PluginName: "unregistered",
		Key:        "bpm",
		Value:      "120",
	})
	var cerr *model.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("unregistered plugin without version: expected configuration error, got %v", err)
	}
}

func TestGetPluginValueAbsent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	track := addTestTrack(t, e, "a.wav", []byte("a"))

	value, ok, err := e.GetPluginValue(ctx, library.PluginDataQuery{
		TrackID:    track.ID,
		PluginName: "analyzer",
		Key:        "never-recorded",
	})
	if err != nil {
		t.Fatalf("absent value must not be an error, got %v", err)
	}
	if ok || value != "" {
		t.Errorf("absent value = (%q, %v), want (\"\", false)", value, ok)
	}
}

func TestFilterTracksStreamMatchesMaterialized(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		addTestTrack(t, e, fmt.Sprintf("t%02d.wav", i), []byte(fmt.Sprintf("content %d", i)))
	}

	q := library.TrackQuery{UserID: e.DefaultUserID()}
	materialized, err := e.FilterTracks(ctx, q)
	if err != nil {
		t.Fatalf("materialized filter: %v", err)
	}
	if len(materialized) != 25 {
		t.Fatalf("materialized returned %d tracks, want 25", len(materialized))
	}

	cursor, err := e.FilterTracksStream(ctx, q)
	if err != nil {
		t.Fatalf("stream filter: %v", err)
	}
	defer cursor.Close()

	var streamed []*model.Track
	chunks := 0
	for {
		chunk, ok := cursor.NextChunk()
		if !ok {
			break
		}
		chunks++
		if len(chunk) > 10 {
			t.Errorf("chunk of %d tracks exceeds chunk size 10", len(chunk))
		}
		streamed = append(streamed, chunk...)
	}
	if err := cursor.Err(); err != nil {
		t.Fatalf("cursor error: %v", err)
	}
	if chunks != 3 {
		t.Errorf("got %d chunks for 25 tracks with chunk size 10, want 3", chunks)
	}
	if len(streamed) != len(materialized) {
		t.Fatalf("streamed %d tracks, materialized %d", len(streamed), len(materialized))
	}
	for i := range materialized {
		if streamed[i].ID != materialized[i].ID {
			t.Fatalf("stream and materialized results diverge at index %d", i)
		}
	}
}

func TestCursorEarlyClose(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		addTestTrack(t, e, fmt.Sprintf("t%d.wav", i), []byte(fmt.Sprintf("c%d", i)))
	}

	cursor, err := e.FilterTracksStream(ctx, library.TrackQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cursor.Next(); !ok {
		t.Fatal("expected at least one track")
	}
	if err := cursor.Close(); err != nil {
		t.Fatalf("close after partial read: %v", err)
	}
	if err := cursor.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, ok := cursor.Next(); ok {
		t.Error("Next after Close returned a track")
	}
}

func TestRemoveTrackCascadeFlags(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	track := addTestTrack(t, e, "a.wav", []byte("a"))
	if _, err := e.AddPluginData(ctx, library.PluginDataInput{
		TrackID: track.ID, PluginName: "analyzer", Key: "bpm", Value: "120",
	}); err != nil {
		t.Fatal(err)
	}

	removed, err := e.RemoveTrack(ctx, track.ID, uuid.Nil, library.RemoveOptions{})
	if err != nil {
		t.Fatalf("blocked removal errored: %v", err)
	}
	if removed {
		t.Fatal("removal went through despite dependent plugin data")
	}
	if _, err := e.GetTrack(ctx, track.ID, uuid.Nil); err != nil {
		t.Fatalf("blocked removal must leave the track intact: %v", err)
	}

	removed, err = e.RemoveTrack(ctx, track.ID, uuid.Nil, library.RemoveOptions{
		RemovePluginData:    true,
		RemoveRelationships: true,
		RemoveResources:     true,
	})
	if err != nil || !removed {
		t.Fatalf("cascading removal: removed=%v err=%v", removed, err)
	}
	var nfe *model.NotFoundError
	if _, err := e.GetTrack(ctx, track.ID, uuid.Nil); !errors.As(err, &nfe) {
		t.Errorf("removed track still retrievable: %v", err)
	}
}

func TestRemoveCollectionKeepsTracks(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	track := addTestTrack(t, e, "a.wav", []byte("a"))
	col, err := e.AddCollection(ctx, library.CollectionSpec{Name: "set", TrackIDs: []uuid.UUID{track.ID}})
	if err != nil {
		t.Fatal(err)
	}

	removed, err := e.RemoveCollection(ctx, col.ID, uuid.Nil, false)
	if err != nil || removed {
		t.Fatalf("removal with members and no cascade: removed=%v err=%v", removed, err)
	}
	removed, err = e.RemoveCollection(ctx, col.ID, uuid.Nil, true)
	if err != nil || !removed {
		t.Fatalf("cascading removal: removed=%v err=%v", removed, err)
	}
	if _, err := e.GetTrack(ctx, track.ID, uuid.Nil); err != nil {
		t.Errorf("member track must survive collection removal: %v", err)
	}
}

func TestResetRequiresForce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	addTestTrack(t, e, "a.wav", []byte("a"))

	err := e.Reset(ctx, uuid.Nil, false)
	var cerr *model.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("reset without force: expected configuration error, got %v", err)
	}

	if err := e.Reset(ctx, uuid.Nil, true); err != nil {
		t.Fatalf("forced reset: %v", err)
	}
	size, err := e.LibrarySize(ctx, uuid.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Errorf("library size after reset = %d, want 0", size)
	}
	stored, err := e.Storage().List(ctx, e.DefaultUserID().String())
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 0 {
		t.Errorf("%d files remain in storage after reset", len(stored))
	}
}

func TestVerifyReportsMissingAndOrphaned(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	userID := e.DefaultUserID().String()

	track := addTestTrack(t, e, "a.wav", []byte("a"))
	report, err := e.Verify(ctx, uuid.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Clean() {
		t.Fatalf("fresh library reported inconsistencies: %+v", report)
	}

	if err := e.Storage().Remove(ctx, track.Resource.FileName, userID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Storage().StoreBytes(ctx, []byte("stray"), "stray.bin", userID); err != nil {
		t.Fatal(err)
	}

	report, err = e.Verify(ctx, uuid.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.MissingFiles) != 1 || report.MissingFiles[0].TrackID != track.ID {
		t.Errorf("missing files = %+v, want the deleted resource", report.MissingFiles)
	}
	if len(report.OrphanedFiles) != 1 || report.OrphanedFiles[0].File != "stray.bin" {
		t.Errorf("orphaned files = %+v, want stray.bin", report.OrphanedFiles)
	}
	if report.Clean() {
		t.Error("report with findings claims to be clean")
	}
}

func TestBlobRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	payload := []byte("model weights")
	blob, err := e.StoreBlobBytes(ctx, payload, uuid.Nil)
	if err != nil {
		t.Fatalf("store blob: %v", err)
	}

	loaded, err := e.LoadBlob(ctx, blob.ID, uuid.Nil)
	if err != nil {
		t.Fatalf("load blob: %v", err)
	}
	if !bytes.Equal(loaded.Data, payload) {
		t.Error("loaded blob payload differs from stored bytes")
	}

	removed, err := e.RemoveBlob(ctx, blob.ID, uuid.Nil, true)
	if err != nil || !removed {
		t.Fatalf("remove blob: removed=%v err=%v", removed, err)
	}
	exists, err := e.Storage().Exists(ctx, blob.Resource.FileName, e.DefaultUserID().String())
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("blob payload still in storage after removal with resources")
	}
}

func TestAddTracksScansDirectory(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string][]byte{
		filepath.Join(dir, "one.wav"):   []byte("one"),
		filepath.Join(dir, "two.flac"):  []byte("two"),
		filepath.Join(sub, "three.mp3"): []byte("three"),
		filepath.Join(dir, "skip.txt"):  []byte("not audio"),
	}
	for path, content := range files {
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatal(err)
		}
	}

	tracks, err := e.AddTracks(ctx, dir, library.IngestOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(tracks) != 3 {
		t.Errorf("scan ingested %d tracks, want 3", len(tracks))
	}

	// The scan wraps its results into a collection named after the
	// directory, in walk order.
	cols, err := e.FindCollections(ctx, dir, nil, e.DefaultUserID(), library.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 {
		t.Fatalf("scan created %d collections named %q, want 1", len(cols), dir)
	}
	members, err := e.GetCollectionTracks(ctx, cols[0].ID, library.OrderAsc)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != len(tracks) {
		t.Fatalf("scan collection holds %d tracks, want %d", len(members), len(tracks))
	}
	for i, track := range tracks {
		if members[i].ID != track.ID {
			t.Errorf("scan collection position %d = %s, want %s", i, members[i].ID, track.ID)
		}
	}
}

func TestGetTrackOwnership(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	track := addTestTrack(t, e, "a.wav", []byte("a"))
	stranger := uuid.New()

	var nfe *model.NotFoundError
	if _, err := e.GetTrack(ctx, track.ID, stranger); !errors.As(err, &nfe) {
		t.Errorf("private track visible to another user: %v", err)
	}

	track.Visibility = model.VisibilityPublic
	if _, err := e.UpdateTrack(ctx, track); err != nil {
		t.Fatal(err)
	}
	if _, err := e.GetTrack(ctx, track.ID, stranger); err != nil {
		t.Errorf("public track hidden from another user: %v", err)
	}
}

func TestCreateObjectWithoutFile(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	obj, err := e.CreateObject(ctx, library.ObjectSpec{
		TrackType: "annotation",
		Meta:      map[string]any{"note": "chorus starts at 0:42"},
	})
	if err != nil {
		t.Fatalf("create object: %v", err)
	}
	if obj.TrackType != "annotation" || obj.Resource != nil {
		t.Errorf("object = %+v, want file-less annotation entity", obj)
	}

	got, err := e.FilterTracks(ctx, library.TrackQuery{TrackTypes: []string{"annotation"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != obj.ID {
		t.Errorf("track type filter missed the object")
	}
}

func TestForEachTrackHonorsStreamMode(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		addTestTrack(t, e, fmt.Sprintf("track-%d.wav", i), []byte(fmt.Sprintf("payload %d", i)))
	}
	q := library.TrackQuery{UserID: e.DefaultUserID()}

	collect := func() []uuid.UUID {
		var ids []uuid.UUID
		if err := e.ForEachTrack(ctx, q, func(track *model.Track) error {
			ids = append(ids, track.ID)
			return nil
		}); err != nil {
			t.Fatalf("for each track: %v", err)
		}
		return ids
	}

	e.cfg.StreamMode = false
	materialized := collect()
	e.cfg.StreamMode = true
	streamed := collect()

	if len(materialized) != 5 || len(streamed) != 5 {
		t.Fatalf("visited %d materialized and %d streamed tracks, want 5 each", len(materialized), len(streamed))
	}
	for i := range materialized {
		if materialized[i] != streamed[i] {
			t.Errorf("row %d differs between modes: %s vs %s", i, materialized[i], streamed[i])
		}
	}

	// A callback error stops the streamed iteration and surfaces.
	stop := errors.New("stop")
	visited := 0
	err := e.ForEachTrack(ctx, q, func(*model.Track) error {
		visited++
		if visited == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("callback error not surfaced: %v", err)
	}
	if visited != 2 {
		t.Errorf("iteration continued past the callback error: %d visits", visited)
	}
}

func TestAddTracksDuplicateFilesJoinScanCollectionOnce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	dir := t.TempDir()
	same := []byte("identical audio payload")
	files := map[string][]byte{
		filepath.Join(dir, "a.wav"): same,
		filepath.Join(dir, "b.wav"): same,
		filepath.Join(dir, "c.wav"): []byte("different payload"),
	}
	for path, content := range files {
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatal(err)
		}
	}

	tracks, err := e.AddTracks(ctx, dir, library.IngestOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("scan resolved %d entries, want 3", len(tracks))
	}

	cols, err := e.FindCollections(ctx, dir, nil, e.DefaultUserID(), library.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 {
		t.Fatalf("scan created %d collections, want 1", len(cols))
	}
	members, err := e.GetCollectionTracks(ctx, cols[0].ID, library.OrderAsc)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Fatalf("scan collection holds %d tracks, want 2 distinct", len(members))
	}
	if members[0].ID == members[1].ID {
		t.Errorf("duplicate-resolved track appears twice in scan collection")
	}
}

func TestAddCollectionRepeatedSeedsKeepFirstPosition(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a := addTestTrack(t, e, "a.wav", []byte("a"))
	b := addTestTrack(t, e, "b.wav", []byte("b"))

	col, err := e.AddCollection(ctx, library.CollectionSpec{
		Name:     "seeds",
		TrackIDs: []uuid.UUID{a.ID, b.ID, a.ID},
	})
	if err != nil {
		t.Fatalf("add collection: %v", err)
	}
	members, err := e.GetCollectionTracks(ctx, col.ID, library.OrderAsc)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || members[0].ID != a.ID || members[1].ID != b.ID {
		t.Errorf("repeated seed changed membership, got %d members", len(members))
	}
}

func TestSoftDeletedCollectionHiddenFromListings(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	kept, err := e.AddCollection(ctx, library.CollectionSpec{Name: "kept"})
	if err != nil {
		t.Fatal(err)
	}
	gone, err := e.AddCollection(ctx, library.CollectionSpec{Name: "gone"})
	if err != nil {
		t.Fatal(err)
	}
	gone.Visibility = model.VisibilityDeleted
	if _, err := e.UpdateCollection(ctx, gone); err != nil {
		t.Fatal(err)
	}

	cols, err := e.GetCollections(ctx, uuid.Nil, library.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 || cols[0].ID != kept.ID {
		t.Fatalf("listing returned %d collections, want only the kept one", len(cols))
	}

	found, err := e.FindCollections(ctx, "gone", nil, uuid.Nil, library.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("search returned %d soft-deleted collections", len(found))
	}

	var nfe *model.NotFoundError
	if _, err := e.GetCollection(ctx, gone.ID); !errors.As(err, &nfe) {
		t.Errorf("soft-deleted collection still retrievable: %v", err)
	}
}
