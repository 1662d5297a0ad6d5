package layout

// Annotation 同步完成后写回单个房间块节点的权威值
type Annotation struct {
	RoomID    int64
	FloorArea float64
}

// Annotate 同步完成后再次遍历布局图，把持久化房间ID与最终面积
// 写回对应的房间块节点（按节点ID索引）。非房间节点以及未出现在
// annotations 中的节点不做任何修改，节点顺序保持不变。
func Annotate(g *Graph, annotations map[string]Annotation) {
	for _, n := range g.Nodes {
		if !n.IsRoom() {
			continue
		}
		a, ok := annotations[n.ID]
		if !ok {
			continue
		}
		n.Room.RoomID = a.RoomID
		n.Room.Size = a.FloorArea
	}
}
