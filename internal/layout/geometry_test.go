package layout

import (
	"errors"
	"fmt"
	"testing"
)

// rectPolygon 顺时针矩形多边形
func rectPolygon(w, h float64) []Point {
	return []Point{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

func TestPointInPolygon(t *testing.T) {
	square := rectPolygon(100, 100)

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{50, 50}, true},
		{"outside right", Point{150, 50}, false},
		{"outside above", Point{50, -10}, false},
		{"origin corner", Point{0, 0}, true},
		{"left edge", Point{0, 50}, true},
		{"far outside", Point{-1, -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.p, square); got != tt.want {
				t.Errorf("PointInPolygon(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPointInPolygonDegenerate(t *testing.T) {
	// 顶点不足3个的退化多边形不包含任何点
	if PointInPolygon(Point{0, 0}, nil) {
		t.Error("empty polygon must contain nothing")
	}
	if PointInPolygon(Point{5, 5}, []Point{{0, 0}, {10, 10}}) {
		t.Error("two-vertex polygon must contain nothing")
	}
}

func TestPointInPolygonConcave(t *testing.T) {
	// L形：右上角被挖掉
	l := []Point{{0, 0}, {100, 0}, {100, 50}, {50, 50}, {50, 100}, {0, 100}}
	if !PointInPolygon(Point{25, 75}, l) {
		t.Error("point in lower arm of L must be inside")
	}
	if PointInPolygon(Point{75, 75}, l) {
		t.Error("point in cut-out corner must be outside")
	}
}

func TestRectanglesOverlap(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 100, H: 100}

	tests := []struct {
		name string
		b    Rect
		want bool
	}{
		{"same rect", Rect{0, 0, 100, 100}, true},
		{"partial overlap", Rect{50, 50, 100, 100}, true},
		{"contained", Rect{10, 10, 20, 20}, true},
		{"disjoint", Rect{200, 200, 50, 50}, false},
		{"touching right edge", Rect{100, 0, 50, 100}, false},
		{"touching bottom edge", Rect{0, 100, 100, 50}, false},
		{"touching corner", Rect{100, 100, 50, 50}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RectanglesOverlap(a, tt.b); got != tt.want {
				t.Errorf("RectanglesOverlap = %v, want %v", got, tt.want)
			}
			// 对称性
			if got := RectanglesOverlap(tt.b, a); got != tt.want {
				t.Errorf("RectanglesOverlap reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

// buildingNode 800x640 像素的矩形轮廓（80px/m 下为 10m x 8m）
func buildingNode() string {
	return `{"id":"b1","type":"building","position":{"x":0,"y":0},"data":{"points":[{"x":0,"y":0},{"x":800,"y":0},{"x":800,"y":640},{"x":0,"y":640}]}}`
}

func roomNode(id, number string, x, y, w, h float64) string {
	return fmt.Sprintf(
		`{"id":%q,"type":"block","position":{"x":%g,"y":%g},"data":{"icon":"room","room_number":%q,"w":%g,"h":%g}}`,
		id, x, y, number, w, h,
	)
}

func mustParse(t *testing.T, nodes ...string) *Graph {
	t.Helper()
	payload := "["
	for i, n := range nodes {
		if i > 0 {
			payload += ","
		}
		payload += n
	}
	payload += "]"
	g, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return g
}

func TestValidateEmptyFloorSkipsOutlineCheck(t *testing.T) {
	// 没有房间块时允许缺少轮廓（先画空楼层）
	g := mustParse(t, `{"id":"d1","type":"block","position":{"x":1,"y":2},"data":{"icon":"door"}}`)
	if err := Validate(g); err != nil {
		t.Errorf("empty floor must validate, got %v", err)
	}
}

func TestValidateMissingOutline(t *testing.T) {
	g := mustParse(t, roomNode("r1", "101", 0, 0, 240, 240))
	err := Validate(g)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonMissingOutline {
		t.Fatalf("want missing outline error, got %v", err)
	}
}

func TestValidateContainedRoom(t *testing.T) {
	// 标杆场景第一步：10m x 8m 轮廓内的 3m x 3m 房间 "101"
	g := mustParse(t, buildingNode(), roomNode("r1", "101", 0, 0, 240, 240))
	if err := Validate(g); err != nil {
		t.Errorf("contained room must validate, got %v", err)
	}
}

func TestValidateRoomOutsideOutline(t *testing.T) {
	g := mustParse(t, buildingNode(), roomNode("r1", "101", 700, 0, 240, 240))
	err := Validate(g)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonOutsideOutline {
		t.Fatalf("want outside error, got %v", err)
	}
	if len(verr.Rooms) != 1 || verr.Rooms[0] != "101" {
		t.Errorf("error must name room 101, got %v", verr.Rooms)
	}
}

func TestValidateOverlappingRooms(t *testing.T) {
	// 标杆场景第二步："102" 压在 "101" 上
	g := mustParse(t,
		buildingNode(),
		roomNode("r1", "101", 0, 0, 240, 240),
		roomNode("r2", "102", 0, 0, 160, 160),
	)
	err := Validate(g)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonOverlap {
		t.Fatalf("want overlap error, got %v", err)
	}
	if len(verr.Rooms) != 2 || verr.Rooms[0] != "101" || verr.Rooms[1] != "102" {
		t.Errorf("error must name both rooms, got %v", verr.Rooms)
	}
}

func TestValidateTouchingRoomsAllowed(t *testing.T) {
	// 共享边不算重叠
	g := mustParse(t,
		buildingNode(),
		roomNode("r1", "101", 0, 0, 240, 240),
		roomNode("r2", "102", 240, 0, 240, 240),
	)
	if err := Validate(g); err != nil {
		t.Errorf("touching rooms must validate, got %v", err)
	}
}

func TestValidateNonPositiveDimensions(t *testing.T) {
	g := mustParse(t, buildingNode(), roomNode("r1", "101", 0, 0, 0, 240))
	err := Validate(g)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonBadDimensions {
		t.Fatalf("want bad dimensions error, got %v", err)
	}
}
