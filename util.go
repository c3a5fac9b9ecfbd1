package store

import (
	"context"
	"strings"
)

type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

func Map[In any, Out any](list []In, mapFn func(val In) Out) []Out {
	var newSlice = make([]Out, len(list))
	for i, val := range list {
		newSlice[i] = mapFn(val)
	}

	return newSlice
}

func SliceContains[T comparable](list []T, val T) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}

	return false
}

func Filter[T any](slice []T, filterFunc func(val T) bool) []T {
	var newSlice []T
	for i, val := range slice {
		if filterFunc(val) {
			newSlice = append(newSlice, slice[i])
		}
	}

	return newSlice
}

// SplitBatch cuts list into consecutive batches of at most chunk items. A
// chunk below one keeps the list whole.
func SplitBatch[T any](list []T, chunk int) [][]T {
	if len(list) == 0 {
		return nil
	}

	if chunk < 1 {
		return [][]T{list}
	}

	batches := make([][]T, 0, (len(list)+chunk-1)/chunk)
	for start := 0; start < len(list); start += chunk {
		end := min(start+chunk, len(list))
		batches = append(batches, list[start:end])
	}

	return batches
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}

	return "?" + strings.Repeat(",?", n-1)
}
