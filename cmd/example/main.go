package main

import (
	"fmt"
	"log"

	"dbc/pkg/core"
	"dbc/pkg/monitor"
	"dbc/pkg/storage"
)

func main() {
	store, err := storage.Open(":memory:")
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	opts := core.DefaultOptions()
	opts.Logger = monitor.NopLogger()
	opts.CacheSize = true

	m, err := core.NewMap[string, int](store, opts)
	if err != nil {
		log.Fatalf("NewMap failed: %v", err)
	}
	defer m.Close()

	for k, v := range map[string]int{"apple": 3, "pear": 5} {
		if _, _, err := m.Put(k, v); err != nil {
			log.Fatalf("Put failed: %v", err)
		}
	}
	prev, _, _ := m.Put("apple", 4)
	size, _ := m.Size()
	fmt.Printf("%s: size=%d, apple was %d\n", m, size, prev)

	l, err := core.NewList[string](store, opts)
	if err != nil {
		log.Fatalf("NewList failed: %v", err)
	}
	defer l.Close()

	for _, s := range []string{"b", "c"} {
		l.Add(s)
	}
	l.Insert(0, "a")
	items, _ := l.ToSlice()
	fmt.Printf("%s: %v\n", l, items)

	s, err := core.NewSet[int](store, opts)
	if err != nil {
		log.Fatalf("NewSet failed: %v", err)
	}
	defer s.Close()

	s.AddAll([]int{1, 2, 2, 3})
	s.RetainAll([]int{2, 3, 4})
	members, _ := s.ToSlice()
	fmt.Printf("%s: %v\n", s, members)

	it, err := m.Entries()
	if err != nil {
		log.Fatalf("Entries failed: %v", err)
	}
	defer it.Close()
	for it.HasNext() {
		e, err := it.Next()
		if err != nil {
			log.Fatalf("Next failed: %v", err)
		}
		fmt.Printf("  %s\n", e)
	}
}
