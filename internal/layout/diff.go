package layout

// Outline 楼栋轮廓的可比较描述子（位置 + 顶点序列）。
// 用于更新路径的两阶段比对：先从新旧布局各提取描述子，
// 再比对决定是否允许写入（楼层存在锁定房间时轮廓不可变动）。
type Outline struct {
	Found    bool
	Position Point
	Points   []Point
}

// RoomRects 提取布局图中已绑定房间块的像素矩形（按房间ID索引）。
// 与轮廓描述子同属更新路径的两阶段比对：锁定房间的位置与尺寸
// 在合同存续期内不可变动，旧布局的矩形是比对基准。
func RoomRects(g *Graph) map[int64]Rect {
	rects := make(map[int64]Rect)
	for _, n := range g.RoomNodes() {
		if n.Room.RoomID <= 0 {
			continue
		}
		if rect, ok := roomRect(n); ok {
			rects[n.Room.RoomID] = rect
		}
	}
	return rects
}

// OutlineOf 提取布局图中楼栋轮廓的描述子（没有轮廓节点时 Found=false）
func OutlineOf(g *Graph) Outline {
	n := g.BuildingNode()
	if n == nil {
		return Outline{}
	}
	pts := make([]Point, len(n.Building.Points))
	copy(pts, n.Building.Points)
	return Outline{Found: true, Position: n.Position, Points: pts}
}

// OutlineChanged 比较两个轮廓描述子：位置或任一顶点不同即视为变动
func OutlineChanged(old, new Outline) bool {
	if old.Found != new.Found {
		return true
	}
	if !old.Found {
		return false
	}
	if old.Position != new.Position {
		return true
	}
	if len(old.Points) != len(new.Points) {
		return true
	}
	for i := range old.Points {
		if old.Points[i] != new.Points[i] {
			return true
		}
	}
	return false
}
