package pager

import (
	"errors"
	"testing"
)

func TestLocate(t *testing.T) {
	cases := []struct {
		name     string
		index    int
		pageSize int
		page     int
		offset   int
	}{
		{"first item", 1, 20, 1, 0},
		{"last of page one", 20, 20, 1, 19},
		{"first of page two", 21, 20, 2, 0},
		{"mid page", 7, 15, 1, 6},
		{"crosses with size 15", 16, 15, 2, 0},
		{"deep page", 45, 20, 3, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc, err := Locate(tc.index, tc.pageSize)
			if err != nil {
				t.Fatalf("Locate(%d,%d): %v", tc.index, tc.pageSize, err)
			}
			if loc.Page != tc.page || loc.Offset != tc.offset {
				t.Fatalf("Locate(%d,%d) = %+v, want page %d offset %d", tc.index, tc.pageSize, loc, tc.page, tc.offset)
			}
		})
	}
}

func TestLocateOffsetAlwaysInRange(t *testing.T) {
	for _, pageSize := range []int{15, 20} {
		for index := 1; index <= 100; index++ {
			loc, err := Locate(index, pageSize)
			if err != nil {
				t.Fatalf("Locate(%d,%d): %v", index, pageSize, err)
			}
			if loc.Offset < 0 || loc.Offset >= pageSize {
				t.Fatalf("Locate(%d,%d) offset %d out of [0,%d)", index, pageSize, loc.Offset, pageSize)
			}
			if got := (loc.Page-1)*pageSize + loc.Offset + 1; got != index {
				t.Fatalf("Locate(%d,%d) does not round-trip: %+v", index, pageSize, loc)
			}
		}
	}
}

func TestLocateRejectsZeroAndNegative(t *testing.T) {
	for _, index := range []int{0, -1, -20} {
		if _, err := Locate(index, 20); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("Locate(%d,20) error = %v, want ErrIndexOutOfRange", index, err)
		}
	}
}

func TestLocateRejectsBadPageSize(t *testing.T) {
	if _, err := Locate(1, 0); err == nil {
		t.Fatal("Locate(1,0) expected error")
	}
}
