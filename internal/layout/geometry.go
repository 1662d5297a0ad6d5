package layout

// Rect 轴对齐矩形（像素坐标）
type Rect struct {
	X, Y, W, H float64
}

// Corners 矩形四角（左上、右上、左下、右下）
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.W, Y: r.Y},
		{X: r.X, Y: r.Y + r.H},
		{X: r.X + r.W, Y: r.Y + r.H},
	}
}

// PointInPolygon 射线法点包含测试：从 p 向 +x 方向发射水平射线，
// 统计与多边形边的交点数，奇数为内。顶点数小于 3 的退化多边形不包含任何点。
func PointInPolygon(p Point, vertices []Point) bool {
	if len(vertices) < 3 {
		return false
	}
	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i++ {
		vi, vj := vertices[i], vertices[j]
		if (vi.Y > p.Y) != (vj.Y > p.Y) &&
			p.X < (vj.X-vi.X)*(p.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// RectanglesOverlap 半开区间轴对齐重叠测试：仅共享边或角不算重叠
func RectanglesOverlap(a, b Rect) bool {
	return a.X < b.X+b.W && a.X+a.W > b.X &&
		a.Y < b.Y+b.H && a.Y+a.H > b.Y
}

// roomRect 房间块节点的像素矩形；像素尺寸未提供时返回 false
func roomRect(n *Node) (Rect, bool) {
	if !n.Room.DimsPresent {
		return Rect{}, false
	}
	return Rect{X: n.Position.X, Y: n.Position.Y, W: n.Room.Width, H: n.Room.Height}, true
}

// roomLabel 校验错误中指代房间块的名称（优先房间号，缺失时用节点ID）
func roomLabel(n *Node) string {
	if n.Room.RoomNumber != "" {
		return n.Room.RoomNumber
	}
	return n.ID
}

// Validate 校验布局图的几何不变量：
//  1. 每个房间块的四角都在楼栋轮廓多边形内
//  2. 任意两个房间块矩形不重叠
//
// 没有房间块时跳过轮廓缺失检查（允许先画空楼层）。
// 所有失败都在持久化之前返回，错误中指名冲突房间号。
func Validate(g *Graph) error {
	rooms := g.RoomNodes()
	if len(rooms) == 0 {
		return nil
	}

	building := g.BuildingNode()
	if building == nil {
		return &ValidationError{Reason: ReasonMissingOutline}
	}

	// 轮廓顶点相对于 building 节点位置，换算为绝对坐标
	polygon := make([]Point, len(building.Building.Points))
	for i, pt := range building.Building.Points {
		polygon[i] = Point{X: building.Position.X + pt.X, Y: building.Position.Y + pt.Y}
	}

	// 含有像素尺寸的房间块逐一做包含检查
	type placed struct {
		node *Node
		rect Rect
	}
	var placedRooms []placed
	for _, n := range rooms {
		rect, ok := roomRect(n)
		if !ok {
			// 仅携带显式面积的房间块没有可校验的几何
			continue
		}
		if rect.W <= 0 || rect.H <= 0 {
			return &ValidationError{Reason: ReasonBadDimensions, Rooms: []string{roomLabel(n)}}
		}
		for _, corner := range rect.Corners() {
			if !PointInPolygon(corner, polygon) {
				return &ValidationError{Reason: ReasonOutsideOutline, Rooms: []string{roomLabel(n)}}
			}
		}
		placedRooms = append(placedRooms, placed{node: n, rect: rect})
	}

	// O(n²) 两两重叠检查
	for i := 0; i < len(placedRooms); i++ {
		for j := i + 1; j < len(placedRooms); j++ {
			if RectanglesOverlap(placedRooms[i].rect, placedRooms[j].rect) {
				return &ValidationError{
					Reason: ReasonOverlap,
					Rooms:  []string{roomLabel(placedRooms[i].node), roomLabel(placedRooms[j].node)},
				}
			}
		}
	}

	return nil
}
