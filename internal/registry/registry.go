// Package registry 维护每个房间当前连接成员的内存记账。
//
// Registry 是显式创建的实例状态，由 Session Coordinator 独占持有，
// 只在协调器的单一事件循环中被读写，因此内部不加锁；
// 多进程部署时可以在不改动协调器逻辑的前提下替换为分布式实现。
package registry

// Departure 记录 LeaveAll 影响的一个房间及其剩余成员数
type Departure struct {
	RoomID    string
	Remaining int
}

// Registry 按房间跟踪当前连接的成员集合。
// 这里只做成员记账；持久化的房间数据不归它管。
type Registry struct {
	rooms map[string]map[string]struct{}
}

// New 创建空的 Registry 实例
func New() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]struct{}),
	}
}

// Join 将成员加入房间的成员集合，集合不存在则创建。
// 成员已在集合中时为幂等操作。返回该房间的最新成员数。
func (r *Registry) Join(roomID, memberID string) int {
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	members[memberID] = struct{}{}
	return len(members)
}

// Leave 将成员从房间的成员集合中移除。
// 集合变空时删除房间条目。返回 (最新成员数, 房间是否被跟踪过)。
// 未知房间或成员按无操作处理，绝不报错。
func (r *Registry) Leave(roomID, memberID string) (int, bool) {
	members, ok := r.rooms[roomID]
	if !ok {
		return 0, false
	}
	delete(members, memberID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
		return 0, true
	}
	return len(members), true
}

// LeaveAll 将成员从其所在的全部房间移除，
// 返回受影响的 (房间, 剩余成员数) 列表，用于断连时逐房间通知。
func (r *Registry) LeaveAll(memberID string) []Departure {
	var departures []Departure
	for roomID, members := range r.rooms {
		if _, ok := members[memberID]; !ok {
			continue
		}
		delete(members, memberID)
		remaining := len(members)
		if remaining == 0 {
			delete(r.rooms, roomID)
		}
		departures = append(departures, Departure{RoomID: roomID, Remaining: remaining})
	}
	return departures
}

// Count 返回房间当前的成员数，未知房间为 0。
func (r *Registry) Count(roomID string) int {
	return len(r.rooms[roomID])
}

// Members 返回房间当前成员标识符的快照，未知房间为空切片。
// 调用方拿到的是副本，后续的 Join/Leave 不会影响它。
func (r *Registry) Members(roomID string) []string {
	members := r.rooms[roomID]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// Contains 报告成员当前是否在房间的成员集合中。
func (r *Registry) Contains(roomID, memberID string) bool {
	_, ok := r.rooms[roomID][memberID]
	return ok
}
