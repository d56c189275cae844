package core

import "testing"

func TestAABB_Extend(t *testing.T) {
	box := EmptyAABB()
	for _, p := range []Vec3{NewVec3(1, -2, 3), NewVec3(-1, 4, 0), NewVec3(0, 0, 5)} {
		box = box.Extend(p)
	}
	if box.Min != NewVec3(-1, -2, 0) || box.Max != NewVec3(1, 4, 5) {
		t.Errorf("Expected min (-1,-2,0) max (1,4,5), got %v %v", box.Min, box.Max)
	}
	if point := EmptyAABB().Extend(NewVec3(2, 3, 4)); point.Min != point.Max {
		t.Errorf("Expected an empty box extended by a point to be that point, got %v", point)
	}
}

func TestAABB_LongestAxis(t *testing.T) {
	tests := []struct {
		name     string
		box      AABB
		expected int
	}{
		{"x longest", AABB{Min: NewVec3(0, 0, 0), Max: NewVec3(3, 1, 2)}, 0},
		{"y longest", AABB{Min: NewVec3(0, 0, 0), Max: NewVec3(1, 3, 2)}, 1},
		{"z longest", AABB{Min: NewVec3(0, 0, 0), Max: NewVec3(1, 2, 3)}, 2},
		{"tie goes to lower axis", AABB{Min: NewVec3(0, 0, 0), Max: NewVec3(1, 2, 2)}, 1},
		{"degenerate point", EmptyAABB().Extend(NewVec3(1, 1, 1)), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.LongestAxis(); got != tt.expected {
				t.Errorf("Expected axis %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestAABB_Split(t *testing.T) {
	box := AABB{Min: NewVec3(0, 0, 0), Max: NewVec3(4, 4, 4)}
	lower, upper := box.Split(1, 1)

	if lower.Max.Y != 1 || lower.Min.Y != 0 {
		t.Errorf("Expected lower half y in [0, 1], got [%f, %f]", lower.Min.Y, lower.Max.Y)
	}
	if upper.Min.Y != 1 || upper.Max.Y != 4 {
		t.Errorf("Expected upper half y in [1, 4], got [%f, %f]", upper.Min.Y, upper.Max.Y)
	}
	if lower.Max.X != 4 || upper.Max.Z != 4 {
		t.Error("Split should not change the other axes")
	}
}

func TestAABB_HitsRay(t *testing.T) {
	box := AABB{Min: NewVec3(-1, -1, -1), Max: NewVec3(1, 1, 1)}
	flat := AABB{Min: NewVec3(-1, 0, -1), Max: NewVec3(1, 0, 1)}

	tests := []struct {
		name     string
		box      AABB
		ray      Ray
		tMax     float64
		expected bool
	}{
		{"straight through", box, NewRay(NewVec3(0, 0, 5), NewVec3(0, 0, -1)), 100, true},
		{"beyond tMax", box, NewRay(NewVec3(0, 0, 5), NewVec3(0, 0, -1)), 3, false},
		{"behind origin", box, NewRay(NewVec3(0, 0, 5), NewVec3(0, 0, 1)), 100, false},
		{"parallel outside", box, NewRay(NewVec3(2, 0, 5), NewVec3(0, 0, -1)), 100, false},
		{"origin inside", box, NewRay(Vec3{}, NewVec3(1, 0, 0)), 100, true},
		{"diagonal miss", box, NewRay(NewVec3(3, 0, 5), NewVec3(0, 0, -1).Add(NewVec3(0.1, 0, 0)).Normalize()), 100, false},
		{"flat box from above", flat, NewRay(NewVec3(0.5, 3, 0.5), NewVec3(0, -1, 0)), 100, true},
		{"flat box grazed", flat, NewRay(NewVec3(-5, 0, 0), NewVec3(1, 0, 0)), 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.HitsRay(tt.ray, tt.tMax); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAABB_MaxExtent(t *testing.T) {
	box := AABB{Min: NewVec3(0, -2, 1), Max: NewVec3(1, 3, 2)}
	if got := box.MaxExtent(); got != 5 {
		t.Errorf("Expected 5, got %f", got)
	}
}
