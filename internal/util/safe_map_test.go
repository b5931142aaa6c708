package util

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewSafeMap(t *testing.T) {
	m := NewSafeMap[int]()
	if m == nil {
		t.Fatal("NewSafeMap() returned nil")
	}
	if m.data == nil {
		t.Error("NewSafeMap() did not initialize internal map")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestSafeMap_SetAndGet(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  int
		wantOk bool
	}{
		{"set and get value", "key1", 42, true},
		{"get non-existent key", "missing", 0, false},
		{"set zero value", "zero", 0, true},
		{"empty key", "", 7, true},
	}

	m := NewSafeMap[int]()
	m.Set("key1", 42)
	m.Set("zero", 0)
	m.Set("", 7)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Get(tt.key)
			if ok != tt.wantOk {
				t.Errorf("Get(%q) ok = %v, want %v", tt.key, ok, tt.wantOk)
			}
			if ok && got != tt.value {
				t.Errorf("Get(%q) = %v, want %v", tt.key, got, tt.value)
			}
		})
	}
}

func TestSafeMap_UpdateAndDelete(t *testing.T) {
	type status struct {
		State string
		Done  int
	}

	m := NewSafeMap[status]()

	got := m.Update("job", func(cur status, ok bool) status {
		if ok {
			t.Error("Update() reported existing value for new key")
		}
		return status{State: "PENDING"}
	})
	if got.State != "PENDING" {
		t.Errorf("Update() = %+v, want PENDING", got)
	}

	m.Update("job", func(cur status, ok bool) status {
		cur.State = "STARTED"
		cur.Done += 3
		return cur
	})
	if v, _ := m.Get("job"); v.State != "STARTED" || v.Done != 3 {
		t.Errorf("Get() after Update = %+v", v)
	}

	m.Delete("job")
	if _, ok := m.Get("job"); ok {
		t.Error("Get() found key after Delete")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after Delete, want 0", m.Len())
	}
}

func TestSafeMap_ConcurrentUpdate(t *testing.T) {
	m := NewSafeMap[int]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Update("counter", func(cur int, _ bool) int { return cur + 1 })
		}()
		go func(n int) {
			defer wg.Done()
			m.Set(fmt.Sprintf("key%d", n%10), n)
			m.Get(fmt.Sprintf("key%d", n%10))
		}(i)
	}

	wg.Wait()

	if v, _ := m.Get("counter"); v != 100 {
		t.Errorf("counter = %d, want 100", v)
	}
	if m.Len() != 11 {
		t.Errorf("Len() = %d, want 11", m.Len())
	}
}

func TestSafeMap_SetIfAbsent(t *testing.T) {
	m := NewSafeMap[int]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if m.SetIfAbsent("digest", n) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("SetIfAbsent() succeeded %d times, want 1", winners)
	}

	m.Delete("digest")
	if !m.SetIfAbsent("digest", 7) {
		t.Error("SetIfAbsent() failed after Delete")
	}
	if v, _ := m.Get("digest"); v != 7 {
		t.Errorf("Get() = %d, want 7", v)
	}
}
