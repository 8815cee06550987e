package shelf

import (
	"sync"
	"testing"
)

// Public methods serialise on the store mutex; concurrent writers and
// readers must neither race nor lose records.
func TestConcurrentCreateRead(t *testing.T) {
	db := openTestDB(t, Config{Indexes: []string{"worker"}})

	const workers, each = 8, 25
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				if _, err := db.Create(D("worker", w, "i", i)); err != nil {
					t.Errorf("Create: %v", err)
					return
				}
				if _, err := db.Read(Where("worker", w), nil); err != nil {
					t.Errorf("Read: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := db.Count(); n != workers*each {
		t.Errorf("Count = %d, want %d", n, workers*each)
	}
	for w := range workers {
		got, _ := db.Read(Where("worker", w), nil)
		if len(got) != each {
			t.Errorf("worker %d: %d records, want %d", w, len(got), each)
		}
	}
	if n := len(recordFileNames(t, db)); n != workers*each {
		t.Errorf("%d record files, want %d", n, workers*each)
	}
}

func TestConcurrentAllDuringWrites(t *testing.T) {
	db := openTestDB(t, Config{})
	for i := range 10 {
		db.Create(D("i", i))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 20 {
			db.Update(Where("i", i%10), D("seen", i))
		}
	}()
	go func() {
		defer wg.Done()
		for range 20 {
			n := 0
			for range db.All() {
				n++
			}
			if n != 10 {
				t.Errorf("All yielded %d, want 10", n)
				return
			}
		}
	}()
	wg.Wait()
}
