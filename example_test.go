package shelf_test

import (
	"fmt"
	"log"
	"os"

	"github.com/jpl-au/shelf"
)

func Example() {
	dir, _ := os.MkdirTemp("", "shelf-example")
	defer os.RemoveAll(dir)

	db, err := shelf.Open("books", shelf.Config{
		DBPath:         map[string]string{"development": dir},
		Env:            "development",
		RequiredFields: []string{"title"},
		Indexes:        []string{"author"},
	})
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	db.Create(shelf.D("title", "Dune", "author", "Herbert", "year", 1965))
	db.Create(shelf.D("title", "Children of Dune", "author", "Herbert", "year", 1976))
	db.Create(shelf.D("title", "Neuromancer", "author", "Gibson", "year", 1984))

	docs, _ := db.Read(shelf.Where("author", "Herbert"), &shelf.ReadOptions{
		Order: []shelf.SortKey{shelf.By("year").Desc()},
	})
	for _, d := range docs {
		title, _ := d.Get("title")
		fmt.Println(title)
	}
	// Output:
	// "Children of Dune"
	// "Dune"
}

func ExampleDB_Update() {
	dir, _ := os.MkdirTemp("", "shelf-example")
	defer os.RemoveAll(dir)

	db, _ := shelf.Open("tasks", shelf.Config{DBPath: map[string]string{"development": dir}, Env: "development"})
	defer db.Close()

	db.Create(shelf.D("task", "write docs", "done", false))
	db.Create(shelf.D("task", "ship", "done", false))

	n, _ := db.Update(shelf.Where("task", "ship"), shelf.D("done", true))
	fmt.Println(n)

	open, _ := db.Read(shelf.Where("done", false), nil)
	fmt.Println(len(open))
	// Output:
	// 1
	// 1
}

func ExampleDB_Begin() {
	dir, _ := os.MkdirTemp("", "shelf-example")
	defer os.RemoveAll(dir)

	db, _ := shelf.Open("ledger", shelf.Config{DBPath: map[string]string{"development": dir}, Env: "development"})
	defer db.Close()

	db.Create(shelf.D("entry", 1))

	db.Begin()
	db.Create(shelf.D("entry", 2))
	db.Rollback()

	fmt.Println(db.Count())
	// Output: 1
}

func ExampleParseOrder() {
	keys, _ := shelf.ParseOrder("created_at DESC, meta.rank")
	for _, k := range keys {
		fmt.Println(k.Field, k.Child, k.Dir)
	}
	// Output:
	// created_at  DESC
	// meta rank ASC
}
