package talk

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKeepsTail(t *testing.T) {
	doc := sampleDoc(t)
	doc, err := new(Directives).
		XPath("/talk/daemon").Add("tail").Set("line 1\n  line <2> & 'three'\n").
		Apply(doc)
	require.NoError(t, err)

	data, err := Encode(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))

	back, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsForeignRoot(t *testing.T) {
	_, err := Decode([]byte("<job/>"))
	assert.Error(t, err)
	_, err = Decode(nil)
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	got, err := ParseTime(FormatTime(at))
	require.NoError(t, err)
	assert.True(t, at.Equal(got))

	_, err = ParseTime("2024-05-06T07:08:09.123Z")
	assert.NoError(t, err)
	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}

func TestMemoryReadIsSnapshot(t *testing.T) {
	m := NewMemory("t1")
	snap, err := m.Read()
	require.NoError(t, err)
	snap.Children = append(snap.Children, &Node{Name: "daemon"})

	again, err := m.Read()
	require.NoError(t, err)
	assert.False(t, again.Exists("/talk/daemon"))
}

func TestMemoryModifyAudits(t *testing.T) {
	m := NewMemory("t1")
	require.NoError(t, m.Modify(new(Directives).Add("daemon"), "daemon started"))
	require.NoError(t, m.Modify(new(Directives), "nothing"))
	require.Error(t, m.Modify(new(Directives).XPath("/talk/none").Set("x"), "broken"))

	audit := m.Audit()
	require.Len(t, audit, 1)
	assert.Equal(t, "daemon started", audit[0].Message)
	assert.Equal(t, `add("daemon")`, audit[0].Directives)
}

func TestFileModifyPersists(t *testing.T) {
	dir := t.TempDir()
	f, err := CreateFile(dir, "t1", nil)
	require.NoError(t, err)

	require.NoError(t, f.Modify(
		new(Directives).Add("daemon").Attr("id", "abcd").Add("tail").Set("a\nb"),
		"daemon ended",
	))

	reopened, err := OpenFile(dir, "t1")
	require.NoError(t, err)
	doc, err := reopened.Read()
	require.NoError(t, err)
	tail, ok := doc.Value("/talk/daemon[@id='abcd']/tail/text()")
	require.True(t, ok)
	assert.Equal(t, "a\nb", tail)

	entries, err := reopened.Audit()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "daemon ended", entries[0].Message)
	assert.Equal(t, "t1", entries[0].Talk)
	assert.Len(t, entries[0].ID, 36)
}

func TestFileFailedModifyKeepsFile(t *testing.T) {
	dir := t.TempDir()
	f, err := CreateFile(dir, "t1", nil)
	require.NoError(t, err)
	before, err := os.ReadFile(f.Path())
	require.NoError(t, err)

	err = f.Modify(new(Directives).Add("daemon").XPath("/talk/nothing").Remove(), "broken")
	require.Error(t, err)

	after, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	entries, err := f.Audit()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileConcurrentModify(t *testing.T) {
	f, err := CreateFile(t.TempDir(), "t1", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.Modify(new(Directives).Add("tick"), "tick"))
		}()
	}
	wg.Wait()

	doc, err := f.Read()
	require.NoError(t, err)
	assert.Len(t, doc.Nodes("/talk/tick"), 20)
}

func TestCreateFileRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateFile(dir, "t1", nil)
	require.NoError(t, err)
	_, err = CreateFile(dir, "t1", nil)
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "talks")
	s := NewStore(dir)

	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = s.Create("beta", nil)
	require.NoError(t, err)
	_, err = s.Create("alpha", nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	a1, err := s.Get("alpha")
	require.NoError(t, err)
	a2, err := s.Get("alpha")
	require.NoError(t, err)
	assert.Same(t, a1, a2)

	_, err = s.Get("missing")
	assert.Error(t, err)
	_, err = s.Get("../etc/passwd")
	assert.Error(t, err)

	name, ok := s.NameOf(filepath.Join(dir, "alpha.xml"))
	assert.True(t, ok)
	assert.Equal(t, "alpha", name)
	_, ok = s.NameOf(filepath.Join(dir, "alpha.audit.ndjson"))
	assert.False(t, ok)
}
