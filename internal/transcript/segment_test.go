package transcript

import (
	"reflect"
	"testing"
)

func TestMergeChunks(t *testing.T) {
	chunks := []Chunk{
		{Offset: 600, Segments: []Segment{
			{Speaker: "B", Text: "second chunk", Start: 1, End: 4},
		}},
		{Offset: 0, Segments: []Segment{
			{Speaker: "A", Text: "first", Start: 0, End: 2},
			{Speaker: "A", Text: "later", Start: 5, End: 9},
		}},
	}

	got := MergeChunks(chunks)
	want := []Segment{
		{Speaker: "A", Text: "first", Start: 0, End: 2},
		{Speaker: "A", Text: "later", Start: 5, End: 9},
		{Speaker: "B", Text: "second chunk", Start: 601, End: 604},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeChunks() = %+v, want %+v", got, want)
	}
}

func TestMergeChunks_StableOnEqualStart(t *testing.T) {
	chunks := []Chunk{
		{Offset: 0, Segments: []Segment{
			{Speaker: "A", Text: "one", Start: 3},
			{Speaker: "B", Text: "two", Start: 3},
		}},
		{Offset: 1, Segments: []Segment{
			{Speaker: "C", Text: "three", Start: 2},
		}},
	}

	got := MergeChunks(chunks)
	order := []string{got[0].Text, got[1].Text, got[2].Text}
	want := []string{"one", "two", "three"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestMergeChunks_Empty(t *testing.T) {
	if got := MergeChunks(nil); len(got) != 0 {
		t.Errorf("MergeChunks(nil) = %+v, want empty", got)
	}
}

func TestNewResolved(t *testing.T) {
	res := NewResolved(nil, 12.5)
	if res.Segments == nil {
		t.Error("Segments should be non-nil")
	}
	if res.FullText != "" {
		t.Errorf("FullText = %q, want empty", res.FullText)
	}

	res = NewResolved([]Segment{{Speaker: "Speaker", Text: "hi", Start: 0, End: 1}}, 1)
	if res.FullText != "[Speaker]: hi" {
		t.Errorf("FullText = %q", res.FullText)
	}
}
