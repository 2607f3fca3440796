// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netmod

import (
	"errors"
	"fmt"
)

// Standard optimization variable blocks.
const (
	Va = "Va" // Bus voltage angles (rad)
	Vm = "Vm" // Bus voltage magnitudes (p.u.)
	Pg = "Pg" // Generator active dispatch (p.u.)
	Qg = "Qg" // Generator reactive dispatch (p.u.)
)

// Block declares one named contiguous segment of the optimization vector.
type Block struct {
	Name string
	Size int
}

// Partition maps named blocks onto contiguous disjoint ranges of the
// optimization vector 𝐱 ∈ ℝⁿ. It is built once per problem instance
// and consumed read-only afterwards.
type Partition struct {
	blocks []Block
	first  []int
	index  map[string]int
	n      int
}

// NewPartition lays out the given blocks in order.
func NewPartition(blocks ...Block) (p *Partition, err error) {

	index := make(map[string]int, len(blocks))
	first := make([]int, len(blocks))

	n := 0
	for k, b := range blocks {
		switch {
		case b.Name == "":
			err = errors.New(fmt.Sprintf("unnamed variable block at %d", k))
		case b.Size <= 0:
			err = errors.New(fmt.Sprintf("variable block %s must not be empty", b.Name))
		}
		if _, dup := index[b.Name]; dup {
			err = errors.New(fmt.Sprintf("duplicated variable block %s", b.Name))
		}
		if err != nil {
			return nil, err
		}
		index[b.Name] = k
		first[k] = n
		n += b.Size
	}

	p = &Partition{
		blocks: append([]Block(nil), blocks...),
		first:  first,
		index:  index,
		n:      n,
	}
	return
}

// N returns the total variable count covered by the partition.
func (p *Partition) N() int { return p.n }

// Range returns the 1-based inclusive index range of a named block.
// It panics when the block was never declared.
func (p *Partition) Range(name string) (first, last int) {
	k, ok := p.index[name]
	if !ok {
		panic("unknown variable block " + name)
	}
	return p.first[k] + 1, p.first[k] + p.blocks[k].Size
}

// Slice returns the sub-slice of x holding a named block.
// The result aliases x and must be treated as read-only.
func (p *Partition) Slice(x []float64, name string) []float64 {
	first, last := p.Range(name)
	return x[first-1 : last]
}
