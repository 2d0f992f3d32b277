package chain

import (
	"fmt"
	"strconv"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
)

// Validate checks that the constraints form exactly one cycle through every
// link: each link has two incident constraints and all links are reachable
// from link 0.
func (c *Chain) Validate() error {
	n := len(c.Links)
	if n < 2 {
		return fmt.Errorf("%w: %d links", ErrPathTooShort, n)
	}
	if len(c.Constraints) != n {
		return fmt.Errorf("%w: %d constraints for %d links", ErrBrokenLoop, len(c.Constraints), n)
	}

	// a two link chain has both constraints between the same pair
	g := core.NewGraph(core.WithMultiEdges())
	for i := range c.Links {
		if err := g.AddVertex(vertexID(i)); err != nil {
			return fmt.Errorf("adding link %d: %w", i, err)
		}
	}
	for k, con := range c.Constraints {
		if con.A < 0 || con.A >= n || con.B < 0 || con.B >= n {
			return fmt.Errorf("%w: constraint %d references link outside chain", ErrBrokenLoop, k)
		}
		if con.A == con.B {
			return fmt.Errorf("%w: constraint %d joins link %d to itself", ErrBrokenLoop, k, con.A)
		}
		if _, err := g.AddEdge(vertexID(con.A), vertexID(con.B), 0); err != nil {
			return fmt.Errorf("adding constraint %d: %w", k, err)
		}
	}

	for i := range c.Links {
		edges, err := g.Neighbors(vertexID(i))
		if err != nil {
			return fmt.Errorf("link %d: %w", i, err)
		}
		if len(edges) != 2 {
			return fmt.Errorf("%w: link %d has %d constraints", ErrBrokenLoop, i, len(edges))
		}
	}

	res, err := bfs.BFS(g, vertexID(0))
	if err != nil {
		return fmt.Errorf("walking chain: %w", err)
	}
	if len(res.Order) != n {
		return fmt.Errorf("%w: %d of %d links reachable", ErrBrokenLoop, len(res.Order), n)
	}
	return nil
}

func vertexID(i int) string {
	return "link-" + strconv.Itoa(i)
}
