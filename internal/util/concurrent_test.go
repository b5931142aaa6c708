package util

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestDoWorkList_PreservesOrder(t *testing.T) {
	input := []int{5, 1, 4, 2, 3}
	got, err := DoWorkList(context.Background(), input, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	if err != nil {
		t.Fatalf("DoWorkList() error = %v", err)
	}
	want := []int{50, 10, 40, 20, 30}
	if !slices.Equal(got, want) {
		t.Errorf("DoWorkList() = %v, want %v", got, want)
	}
}

func TestDoWorkList_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := DoWorkList(context.Background(), []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		<-ctx.Done()
		return n, nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("DoWorkList() error = %v, want %v", err, boom)
	}
}

func TestDoWorkList_Empty(t *testing.T) {
	got, err := DoWorkList(context.Background(), nil, func(_ context.Context, n int) (int, error) {
		t.Error("work should not be called")
		return n, nil
	})
	if err != nil || len(got) != 0 {
		t.Errorf("DoWorkList(nil) = %v, %v", got, err)
	}
}
