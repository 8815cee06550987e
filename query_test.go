package shelf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func field(t *testing.T, docs []Document, key string) []string {
	t.Helper()
	out := make([]string, len(docs))
	for i, d := range docs {
		v, _ := d.Get(key)
		out[i] = v.text()
	}
	return out
}

func TestReadOrderDesc(t *testing.T) {
	db := openTestDB(t, Config{})
	for _, y := range []string{"2020", "2022", "2021"} {
		db.Create(D("created_at", y))
	}

	got, err := db.Read(Predicate{}, &ReadOptions{Order: []SortKey{By("created_at").Desc()}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"2022", "2021", "2020"}, field(t, got, "created_at")); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

// Numbers compare numerically, text case-insensitively, and missing or
// null fields sort as empty text.
func TestOrderComparison(t *testing.T) {
	db := openTestDB(t, Config{})
	for _, v := range []any{10, 9, 2.5} {
		db.Create(D("n", v))
	}
	got, _ := db.Read(nil, &ReadOptions{Order: []SortKey{By("n")}})
	if diff := cmp.Diff([]string{"2.5", "9", "10"}, field(t, got, "n")); diff != "" {
		t.Errorf("numeric order (-want +got):\n%s", diff)
	}

	db2 := openTestDB(t, Config{})
	db2.Create(D("s", "banana"))
	db2.Create(D("s", "Apple"))
	db2.Create(D("other", 1))
	db2.Create(D("s", "cherry"))
	db2.Create(D("s", nil))
	got, _ = db2.Read(nil, &ReadOptions{Order: []SortKey{By("s")}})
	if diff := cmp.Diff([]string{"", "", "Apple", "banana", "cherry"}, field(t, got, "s")); diff != "" {
		t.Errorf("text order (-want +got):\n%s", diff)
	}
}

func TestOrderStableMultiKey(t *testing.T) {
	db := openTestDB(t, Config{})
	db.Create(D("g", "b", "name", "first"))
	db.Create(D("g", "a", "name", "second"))
	db.Create(D("g", "b", "name", "third"))
	db.Create(D("g", "a", "name", "fourth"))

	got, _ := db.Read(nil, &ReadOptions{Order: []SortKey{By("g")}})
	if diff := cmp.Diff([]string{"second", "fourth", "first", "third"}, field(t, got, "name")); diff != "" {
		t.Errorf("stable order (-want +got):\n%s", diff)
	}

	got, _ = db.Read(nil, &ReadOptions{Order: []SortKey{By("g").Desc(), By("name")}})
	if diff := cmp.Diff([]string{"first", "third", "fourth", "second"}, field(t, got, "name")); diff != "" {
		t.Errorf("two keys (-want +got):\n%s", diff)
	}
}

func TestOrderNested(t *testing.T) {
	db := openTestDB(t, Config{})
	db.Create(D("id", "x", "meta", D("rank", 3)))
	db.Create(D("id", "y", "meta", D("rank", 1)))
	db.Create(D("id", "z", "meta", D("rank", 2)))

	keys, err := ParseOrder("meta.rank")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := db.Read(nil, &ReadOptions{Order: keys})
	if diff := cmp.Diff([]string{"y", "z", "x"}, field(t, got, "id")); diff != "" {
		t.Errorf("nested order (-want +got):\n%s", diff)
	}
}

func TestPagination(t *testing.T) {
	db := openTestDB(t, Config{})
	for i := range 5 {
		db.Create(D("i", i))
	}
	tests := []struct {
		offset, limit int
		want          []string
	}{
		{0, 0, []string{"0", "1", "2", "3", "4"}},
		{1, 2, []string{"1", "2"}},
		{3, 0, []string{"3", "4"}},
		{4, 10, []string{"4"}},
		{5, 1, []string{}},
		{-1, 1, []string{"0"}},
	}
	for _, tt := range tests {
		got, _ := db.Read(nil, &ReadOptions{Offset: tt.offset, Limit: tt.limit})
		if diff := cmp.Diff(tt.want, field(t, got, "i")); diff != "" {
			t.Errorf("offset=%d limit=%d (-want +got):\n%s", tt.offset, tt.limit, diff)
		}
	}
}

// Pagination applies after ordering.
func TestPaginationAfterOrder(t *testing.T) {
	db := openTestDB(t, Config{})
	for _, i := range []int{3, 1, 4, 2} {
		db.Create(D("i", i))
	}
	got, _ := db.Read(nil, &ReadOptions{Order: []SortKey{By("i").Desc()}, Offset: 1, Limit: 2})
	if diff := cmp.Diff([]string{"3", "2"}, field(t, got, "i")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestParseOrder(t *testing.T) {
	got, err := ParseOrder(" created_at DESC, meta.rank ,name asc,")
	if err != nil {
		t.Fatal(err)
	}
	want := []SortKey{
		{Field: "created_at", Dir: Desc},
		{Field: "meta", Child: "rank"},
		{Field: "name"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseOrder (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"a sideways", "a b c"} {
		if _, err := ParseOrder(bad); err == nil {
			t.Errorf("ParseOrder(%q) succeeded", bad)
		}
	}
	if keys, err := ParseOrder(""); err != nil || len(keys) != 0 {
		t.Errorf("ParseOrder(\"\") = %v, %v", keys, err)
	}
}

func TestPredicateMatches(t *testing.T) {
	doc := D("a", 1, "b", "x", "c", nil)
	tests := []struct {
		pred Predicate
		want bool
	}{
		{Predicate{}, true},
		{Where("a", 1.0), true},
		{Where("a", 1, "b", "x"), true},
		{Where("a", 1, "b", "y"), false},
		{Where("c", nil), true},
		{Where("missing", nil), false},
		{Where("b", "X"), false},
	}
	for _, tt := range tests {
		if got := tt.pred.matches(doc); got != tt.want {
			t.Errorf("%v.matches = %v, want %v", tt.pred, got, tt.want)
		}
	}
}
