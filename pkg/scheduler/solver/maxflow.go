package solver

import "context"

// flowEdge 残量网络中的边
type flowEdge struct {
	to, rev int
	cap     int
}

// flowNetwork Edmonds-Karp 最大流，邻接表按加边顺序遍历，结果确定
type flowNetwork struct {
	adj [][]flowEdge
}

func newFlowNetwork(n int) *flowNetwork {
	return &flowNetwork{adj: make([][]flowEdge, n)}
}

// addEdge 加边并返回 (from, 下标)，用于之后读取流量
func (g *flowNetwork) addEdge(from, to, cap int) [2]int {
	g.adj[from] = append(g.adj[from], flowEdge{to: to, rev: len(g.adj[to]), cap: cap})
	g.adj[to] = append(g.adj[to], flowEdge{to: from, rev: len(g.adj[from]) - 1, cap: 0})
	return [2]int{from, len(g.adj[from]) - 1}
}

// flowOn 边上已通过的流量（反向边残量）
func (g *flowNetwork) flowOn(ref [2]int) int {
	e := g.adj[ref[0]][ref[1]]
	return g.adj[e.to][e.rev].cap
}

// maxFlow 计算 s 到 t 的最大流，返回流量与增广次数
func (g *flowNetwork) maxFlow(ctx context.Context, s, t int) (int, int, error) {
	total, paths := 0, 0
	prevNode := make([]int, len(g.adj))
	prevEdge := make([]int, len(g.adj))

	for {
		if err := ctx.Err(); err != nil {
			return total, paths, err
		}
		for i := range prevNode {
			prevNode[i] = -1
		}
		prevNode[s] = s
		queue := []int{s}
		for len(queue) > 0 && prevNode[t] == -1 {
			u := queue[0]
			queue = queue[1:]
			for i, e := range g.adj[u] {
				if e.cap > 0 && prevNode[e.to] == -1 {
					prevNode[e.to] = u
					prevEdge[e.to] = i
					queue = append(queue, e.to)
				}
			}
		}
		if prevNode[t] == -1 {
			return total, paths, nil
		}

		bottleneck := -1
		for v := t; v != s; v = prevNode[v] {
			c := g.adj[prevNode[v]][prevEdge[v]].cap
			if bottleneck < 0 || c < bottleneck {
				bottleneck = c
			}
		}
		for v := t; v != s; v = prevNode[v] {
			e := &g.adj[prevNode[v]][prevEdge[v]]
			e.cap -= bottleneck
			g.adj[v][e.rev].cap += bottleneck
		}
		total += bottleneck
		paths++
	}
}
